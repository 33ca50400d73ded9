package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hollowaylabs/cloak/internal/ui"
	"github.com/hollowaylabs/cloak/internal/workflows"
)

var (
	updateForce        bool
	updateManifestPath string
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Re-encrypt secrets that changed in the secrets repository, then apply them",
	Long: `Fetches the secrets repository, re-encrypts every tracked file whose
content changed since the last sync, prunes entries whose source file
disappeared, pins the new commit hash, and then decrypts the blobs into
their working destinations.

Unchanged files are left byte-identical so version-control diffs stay
minimal.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting update command")
		s, cleanup := startSpinner("Syncing secrets...")
		defer cleanup()

		var prompter ui.Prompter
		if !updateForce {
			prompter = ui.TerminalPrompter{}
		}

		result, err := workflows.Update(workflows.UpdateOptions{
			ManifestPath: updateManifestPath,
			Force:        updateForce,
			Prompter:     prompter,
			Progress:     spinnerProgress(s),
			Logger:       Logger,
		})
		if err != nil {
			return err
		}

		s.Suffix = " Applying secrets..."
		applied, err := workflows.Apply(workflows.ApplyOptions{
			ManifestPath: result.ManifestPath,
			Logger:       Logger,
		})
		if err != nil {
			return err
		}

		s.FinalMSG = ui.Success.Sprint("✓") + fmt.Sprintf(
			" Secrets synced: %d updated, %d unchanged, %d pruned, %d files written",
			len(result.Updated), len(result.Unchanged), len(result.Pruned), len(applied.Written))
		return nil
	},
}

func init() {
	updateCmd.Flags().BoolVarP(&updateForce, "force", "f", false, "skip interactive prompts")
	updateCmd.Flags().StringVarP(&updateManifestPath, "configuration-file-path", "c", "", "path to the manifest (default: search upward from the working directory)")
}
