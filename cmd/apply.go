package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hollowaylabs/cloak/internal/ui"
	"github.com/hollowaylabs/cloak/internal/workflows"
)

var (
	applyForce        bool
	applyManifestPath string
	applyKeyOverride  string
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Decrypt the tracked blobs into their working destinations",
	Long: `Decrypts every tracked encrypted blob and writes the plaintext to its
destination path. Destinations that already match are left alone; a
destination with local changes is backed up next to itself before being
overwritten.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting apply command")
		s, cleanup := startSpinner("Applying secrets...")
		defer cleanup()

		result, err := workflows.Apply(workflows.ApplyOptions{
			ManifestPath: applyManifestPath,
			KeyOverride:  applyKeyOverride,
			Force:        applyForce,
			Logger:       Logger,
		})
		if err != nil {
			return err
		}

		s.FinalMSG = ui.Success.Sprint("✓") + fmt.Sprintf(
			" Secrets applied: %d written, %d unchanged, %d backed up",
			len(result.Written), len(result.Unchanged), len(result.BackedUp))
		return nil
	},
}

func init() {
	applyCmd.Flags().BoolVarP(&applyForce, "force", "f", false, "rewrite destinations even when their content already matches")
	applyCmd.Flags().StringVarP(&applyManifestPath, "configuration-file-path", "c", "", "path to the manifest (default: search upward from the working directory)")
	applyCmd.Flags().StringVarP(&applyKeyOverride, "key", "k", "", "base64 encryption key, bypassing key lookup")
}
