package commontest

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// MakeNSIS emulates the installer compiler: it reads the script passed as
// the last argument and writes the script text to its OutFile.
func MakeNSIS(call Call) error {
	if len(call.Args) == 0 {
		return fmt.Errorf("makensis: no script")
	}

	script, err := os.ReadFile(call.Args[len(call.Args)-1])
	if err != nil {
		return err
	}

	scanner := bufio.NewScanner(strings.NewReader(string(script)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "OutFile ") {
			continue
		}

		output := strings.Trim(strings.TrimPrefix(line, "OutFile "), `"`)

		return os.WriteFile(output, script, 0o644)
	}

	return fmt.Errorf("makensis: script has no OutFile")
}
