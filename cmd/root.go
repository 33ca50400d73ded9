package cmd

import (
	logger "github.com/hollowaylabs/cloak/internal/logging"
	"github.com/spf13/cobra"
)

var (
	verbose bool
	debug   bool
	Logger  logger.Logger

	RootCmd = &cobra.Command{
		Use:   "cloak",
		Short: "Keep secrets encrypted in your repository, synced from a secrets repository",
		Long: `Cloak keeps a project's secret files as encrypted blobs inside the project
repository and synchronizes them from an external git secrets repository.

Plaintext never touches the project repository: update re-encrypts what
changed upstream, apply decrypts the blobs into working files, and the
encryption key lives in the secrets repository or the environment.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			Logger = logger.Logger{
				Verbose: verbose,
				Debug:   debug,
			}
			Logger.Debugf("Initializing cloak with verbose=%t, debug=%t", verbose, debug)
		},
	}
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	RootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug output")

	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(updateCmd)
	RootCmd.AddCommand(applyCmd)
	RootCmd.AddCommand(validateCmd)
	RootCmd.AddCommand(createKeyCmd)
	RootCmd.AddCommand(encryptFileCmd)
	RootCmd.AddCommand(decryptFileCmd)
}

// GetRootCmd returns the root command for testing.
func GetRootCmd() *cobra.Command {
	return RootCmd
}
