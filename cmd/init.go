package cmd

import (
	"fmt"

	"github.com/common-nighthawk/go-figure"
	"github.com/spf13/cobra"

	"github.com/hollowaylabs/cloak/internal/ui"
	"github.com/hollowaylabs/cloak/internal/workflows"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up secrets management for this project",
	Long: `Interactively creates the manifest, ensures an encryption key exists for
the project in the secrets repository's keys.json, and optionally records
the first tracked files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting init command")

		banner := figure.NewColorFigure("cloak", "alligator2", "green", true)
		banner.Print()
		fmt.Println()

		result, err := workflows.Init(workflows.InitOptions{
			Prompter: ui.TerminalPrompter{},
			Progress: func(line string) { Logger.Infof("%s", line) },
			Logger:   Logger,
		})
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Println(ui.Success.Sprint("✓") + " Initialized " + ui.Highlight.Sprint(result.ProjectName) +
			" with " + fmt.Sprintf("%d tracked files", result.TrackedFiles))
		fmt.Println(ui.Info.Sprint("→") + " Manifest written to " + ui.Path.Sprint(result.ManifestPath))
		fmt.Println()
		fmt.Println(workflows.KeyInstructions(result))

		if !result.RunSync {
			fmt.Println()
			fmt.Println(ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("cloak update") + " to encrypt the tracked files")
			return nil
		}

		s, cleanup := startSpinner("Syncing secrets...")
		defer cleanup()

		updated, err := workflows.Update(workflows.UpdateOptions{
			ManifestPath: result.ManifestPath,
			Force:        true,
			Progress:     spinnerProgress(s),
			Logger:       Logger,
		})
		if err != nil {
			return err
		}

		applied, err := workflows.Apply(workflows.ApplyOptions{
			ManifestPath: result.ManifestPath,
			Logger:       Logger,
		})
		if err != nil {
			return err
		}

		s.FinalMSG = ui.Success.Sprint("✓") + fmt.Sprintf(
			" Secrets synced: %d encrypted, %d files written", len(updated.Updated), len(applied.Written))
		return nil
	},
}
