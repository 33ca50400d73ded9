package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hollowaylabs/cloak/internal/crypto"
	cloakerrors "github.com/hollowaylabs/cloak/internal/errors"
	"github.com/hollowaylabs/cloak/internal/keys"
	"github.com/hollowaylabs/cloak/internal/manifest"
	"github.com/hollowaylabs/cloak/internal/ui"
)

var (
	encryptFileOutput string
	encryptFileKey    string
)

var encryptFileCmd = &cobra.Command{
	Use:   "encrypt-file <file>",
	Short: "Encrypt a single file outside the sync flow",
	Long: `Encrypts one file into a standalone blob, useful for moving a secret
between machines. The key comes from --key or the environment; the
manifest is not consulted or modified.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := standaloneKey(encryptFileKey)
		if err != nil {
			return err
		}

		plaintext, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("%w: reading %s: %v", cloakerrors.ErrIO, args[0], err)
		}

		blob, err := crypto.Encrypt(plaintext, key)
		if err != nil {
			return err
		}

		output := encryptFileOutput
		if output == "" {
			output = args[0] + ".enc"
		}
		if err := manifest.WriteFileAtomic(output, blob, 0600); err != nil {
			return err
		}

		fmt.Println(ui.Success.Sprint("✓") + " Encrypted " + ui.Path.Sprint(args[0]) + " to " + ui.Path.Sprint(output))
		return nil
	},
}

func init() {
	encryptFileCmd.Flags().StringVarP(&encryptFileOutput, "output", "o", "", "output path (default: <file>.enc)")
	encryptFileCmd.Flags().StringVarP(&encryptFileKey, "key", "k", "", "base64 encryption key (default: environment)")
}

// standaloneKey resolves a key for the single-file commands: the explicit
// flag, otherwise the environment. There is no manifest, so keys.json
// lookup does not apply.
func standaloneKey(override string) (crypto.Key, error) {
	if override != "" {
		return crypto.ParseKey(override)
	}
	return keys.Locate(keys.LocateOptions{})
}
