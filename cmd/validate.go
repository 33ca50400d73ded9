package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hollowaylabs/cloak/internal/ui"
	"github.com/hollowaylabs/cloak/internal/workflows"
)

var validateManifestPath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the manifest and the presence of every encrypted blob",
	RunE: func(cmd *cobra.Command, args []string) error {
		Logger.Infof("Starting validate command")
		s, cleanup := startSpinner("Validating manifest...")
		defer cleanup()

		result, err := workflows.Validate(workflows.ValidateOptions{
			ManifestPath: validateManifestPath,
			Logger:       Logger,
		})
		if err != nil {
			if result != nil && len(result.MissingBlobs) > 0 {
				s.FinalMSG = ui.Error.Sprint("✗") + fmt.Sprintf(
					" %d tracked files have no encrypted blob: %v\n", len(result.MissingBlobs), result.MissingBlobs) +
					ui.Info.Sprint("→") + " Run " + ui.Code.Sprint("cloak update")
			}
			return err
		}

		s.FinalMSG = ui.Success.Sprint("✓") + fmt.Sprintf(
			" Manifest for %s is valid: %d tracked files", ui.Highlight.Sprint(result.ProjectName), result.TrackedFiles)
		return nil
	},
}

func init() {
	validateCmd.Flags().StringVarP(&validateManifestPath, "configuration-file-path", "c", "", "path to the manifest (default: search upward from the working directory)")
}
