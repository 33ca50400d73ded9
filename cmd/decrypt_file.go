package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hollowaylabs/cloak/internal/crypto"
	cloakerrors "github.com/hollowaylabs/cloak/internal/errors"
	"github.com/hollowaylabs/cloak/internal/manifest"
	"github.com/hollowaylabs/cloak/internal/ui"
)

var (
	decryptFileOutput string
	decryptFileKey    string
)

var decryptFileCmd = &cobra.Command{
	Use:   "decrypt-file <file>",
	Short: "Decrypt a single blob outside the sync flow",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := standaloneKey(decryptFileKey)
		if err != nil {
			return err
		}

		blob, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("%w: reading %s: %v", cloakerrors.ErrIO, args[0], err)
		}

		plaintext, err := crypto.Decrypt(blob, key)
		if err != nil {
			return err
		}

		output := decryptFileOutput
		if output == "" {
			output = strings.TrimSuffix(args[0], ".enc")
			if output == args[0] {
				output = args[0] + ".dec"
			}
		}
		if err := manifest.WriteFileAtomic(output, plaintext, 0600); err != nil {
			return err
		}

		fmt.Println(ui.Success.Sprint("✓") + " Decrypted " + ui.Path.Sprint(args[0]) + " to " + ui.Path.Sprint(output))
		return nil
	},
}

func init() {
	decryptFileCmd.Flags().StringVarP(&decryptFileOutput, "output", "o", "", "output path (default: <file> without .enc)")
	decryptFileCmd.Flags().StringVarP(&decryptFileKey, "key", "k", "", "base64 encryption key (default: environment)")
}
