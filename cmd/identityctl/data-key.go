package main

import (
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/identity-in-go/pkg/db"
	"github.com/doodlesbykumbi/identity-in-go/pkg/slosilo"
)

const dataKeySize = 32

var dataKeyGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a data encryption key",
	Long: `Generate a Base64-encoded 256 bit data encryption key.

Every tenant's private signing key is encrypted with this key before it is
written to the primary database. Losing it makes existing tenants unusable.

Example:

$ export IDENTITY_DATA_KEY="$(identityctl data-key generate)"
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := slosilo.RandomBytes(dataKeySize)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), base64.StdEncoding.Strict().EncodeToString(key))
		return nil
	},
}

var dataKeyVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check IDENTITY_DATA_KEY",
	Long:  `Check that IDENTITY_DATA_KEY is set and decodes to a usable 256 bit key.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cipher, err := db.Cipher()
		if err != nil {
			return err
		}

		probe := []byte("identity data key")
		sealed, err := cipher.Encrypt(nil, probe)
		if err != nil {
			return fmt.Errorf("data key cannot encrypt: %w", err)
		}
		if _, err := cipher.Decrypt(nil, sealed); err != nil {
			return fmt.Errorf("data key cannot decrypt: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), "IDENTITY_DATA_KEY is valid")
		return nil
	},
}

func init() {
	dataKeyCmd.AddCommand(dataKeyGenerateCmd, dataKeyVerifyCmd)
}
