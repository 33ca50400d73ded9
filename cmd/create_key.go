package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hollowaylabs/cloak/internal/keys"
	"github.com/hollowaylabs/cloak/internal/ui"
)

var createKeyCmd = &cobra.Command{
	Use:   "create-key",
	Short: "Generate a fresh encryption key",
	Long: `Prints a new random base64 encryption key. Add it to keys.json at the
secrets checkout root under your project name, or set it as
CLOAK_ENCRYPTION_KEY. Never commit it to the project repository.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := keys.Generate()
		if err != nil {
			return err
		}

		fmt.Println(key.String())
		fmt.Println()
		fmt.Println(ui.Info.Sprint("→") + " Store it in " + ui.Path.Sprint(keys.KeyFileName) +
			" at the secrets checkout root, or set " + ui.Code.Sprint(keys.EnvKey))
		return nil
	},
}
