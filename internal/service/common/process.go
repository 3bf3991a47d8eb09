package common

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/go-ps"
)

// IsProcessRunning reports whether a process other than the current one
// runs an executable named name. The comparison ignores case so Windows
// image names match.
func IsProcessRunning(name string) (bool, error) {
	processList, err := ps.Processes()
	if err != nil {
		return false, err
	}

	name = filepath.Base(name)
	thisProcessID := os.Getpid()

	for _, process := range processList {
		if process.Pid() == thisProcessID {
			continue
		}

		if strings.EqualFold(process.Executable(), name) {
			return true, nil
		}
	}

	return false, nil
}
