// Package cloak is the embeddable facade over the secrets engine. Build
// tooling links it to run the sync without shelling out to the CLI.
//
// The surface is deliberately narrow: primitive parameters, error returns,
// progress to a plain log stream. Anything richer belongs in the internal
// workflow packages.
package cloak

import (
	"io"

	logger "github.com/hollowaylabs/cloak/internal/logging"
	"github.com/hollowaylabs/cloak/internal/ui"
	"github.com/hollowaylabs/cloak/internal/workflows"
)

// logStream is where facade runs write their progress. Defaults to
// discard; hosts that want output call SetLogStream first.
var logStream io.Writer = io.Discard

// SetLogStream directs progress and informational output to w.
func SetLogStream(w io.Writer) {
	if w == nil {
		w = io.Discard
	}
	logStream = w
}

func facadeLogger() logger.Logger {
	return logger.Logger{Verbose: true, Out: logStream}
}

// Initialize runs the interactive setup flow in the working directory.
// It requires a terminal.
func Initialize() error {
	log := facadeLogger()
	result, err := workflows.Init(workflows.InitOptions{
		Prompter: ui.TerminalPrompter{},
		Progress: func(line string) { log.Infof("%s", line) },
		Logger:   log,
	})
	if err != nil {
		return err
	}

	log.Infof("%s", workflows.KeyInstructions(result))

	if result.RunSync {
		if err := Update(true, result.ManifestPath); err != nil {
			return err
		}
	}
	return nil
}

// Apply decrypts the tracked blobs into their destinations. An empty
// manifestPath searches upward from the working directory.
func Apply(force bool, manifestPath string) error {
	log := facadeLogger()
	_, err := workflows.Apply(workflows.ApplyOptions{
		ManifestPath: manifestPath,
		Force:        force,
		Logger:       log,
	})
	return err
}

// Update synchronizes the encrypted blobs with the secrets repository and
// then applies them. force skips interactive prompts; an empty
// manifestPath searches upward from the working directory.
func Update(force bool, manifestPath string) error {
	log := facadeLogger()
	result, err := workflows.Update(workflows.UpdateOptions{
		ManifestPath: manifestPath,
		Force:        force,
		Progress:     func(line string) { log.Infof("%s", line) },
		Logger:       log,
	})
	if err != nil {
		return err
	}

	_, err = workflows.Apply(workflows.ApplyOptions{
		ManifestPath: result.ManifestPath,
		Logger:       log,
	})
	return err
}
