package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/briandowns/spinner"

	"github.com/hollowaylabs/cloak/internal/ui"
)

// startSpinner creates and starts a spinner with the given message when not
// in verbose or debug mode. Returns the spinner and a function that should
// be deferred to clean up.
//
// spinner.FinalMSG values do NOT need trailing newlines; the cleanup
// function calls ui.EnsureNewline() on the final message before printing.
func startSpinner(message string) (*spinner.Spinner, func()) {
	Logger.Debugf("Starting spinner with message: %s", message)
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " " + message

	if err := s.Color("cyan"); err != nil {
		Logger.Warnf("Failed to set spinner color: %v", err)
	}

	if !verbose && !debug {
		s.Start()
		// Ensure log output is discarded unless in verbose mode.
		log.SetOutput(io.Discard)
	} else {
		Logger.Infof("Running in verbose or debug mode: %s", message)
	}

	cleanup := func() {
		if !verbose && !debug {
			log.SetOutput(os.Stdout)
		}

		finalMsg := ""
		if s.FinalMSG != "" {
			finalMsg = ui.EnsureNewline(s.FinalMSG)
			// Clear FinalMSG so s.Stop() doesn't print it.
			s.FinalMSG = ""
		}

		if !verbose && !debug {
			s.Stop()
		}

		if finalMsg != "" {
			fmt.Print(finalMsg)
		}
	}

	return s, cleanup
}

// spinnerProgress feeds source connector progress lines into the spinner
// suffix so long clones show transfer counters.
func spinnerProgress(s *spinner.Spinner) func(line string) {
	return func(line string) {
		s.Suffix = " " + line
	}
}
