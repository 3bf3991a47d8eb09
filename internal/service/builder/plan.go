package builder

import (
	"errors"

	"github.com/oshokin/desktop-packager/internal/config"
	"github.com/oshokin/desktop-packager/internal/domain/platform"
)

// ErrNoTask is returned when no platform and architecture pair is enabled.
var ErrNoTask = errors.New("no platform and architecture selected")

// Plan returns the enabled platform and architecture pairs in matrix
// order: platforms Windows, Mac, Linux, each with x86 then x64.
func Plan(settings *config.Settings) ([]platform.Task, error) {
	platforms := map[platform.Platform]bool{
		platform.Windows: settings.Win,
		platform.Mac:     settings.Mac,
		platform.Linux:   settings.Linux,
	}

	arches := map[platform.Arch]bool{
		platform.X86: settings.X86,
		platform.X64: settings.X64,
	}

	var tasks []platform.Task

	for _, p := range platform.All() {
		if !platforms[p] {
			continue
		}

		for _, arch := range platform.AllArches() {
			if arches[arch] {
				tasks = append(tasks, platform.Task{Platform: p, Arch: arch})
			}
		}
	}

	if len(tasks) == 0 {
		return nil, ErrNoTask
	}

	return tasks, nil
}
