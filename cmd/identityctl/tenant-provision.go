package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/identity-in-go/pkg/config"
)

// tenantProvisionCmd represents the tenant provision command
var tenantProvisionCmd = &cobra.Command{
	Use:   "provision <tenant>",
	Short: "Provision a tenant or reset its superuser password",
	Long: `Provision a tenant.

On first run this creates the tenant's signing key, fixed salt, bootstrap
permittable groups, the SU_ROLE role and the "antony" superuser. When the
tenant already exists only the superuser password is reset.

The password is given either in clear text with --password, in which case it is
hashed with argon2id, or as a base64 encoded hash with --password-hash.
The latest signature set is printed as JSON.

Example:
  identityctl tenant provision acme --password 'initial password'
  identityctl tenant provision acme --password-hash "$(cat hash.b64)"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		password, _ := cmd.Flags().GetString("password")
		passwordHashB64, _ := cmd.Flags().GetString("password-hash")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		passwordHash, err := passwordHashFromFlags(password, passwordHashB64)
		if err != nil {
			return err
		}
		return provisionTenant(args[0], passwordHash, timeout)
	},
}

func init() {
	tenantCmd.AddCommand(tenantProvisionCmd)
	tenantProvisionCmd.Flags().String("password", "", "superuser password in clear text")
	tenantProvisionCmd.Flags().String("password-hash", "", "base64 encoded superuser password hash")
	tenantProvisionCmd.Flags().Duration("timeout", 2*time.Minute, "maximum time to wait for the tenant lock and stores")
}

func provisionTenant(tenantID string, passwordHash []byte, timeout time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger()
	s, err := newStack(cfg, logger, nil, false)
	if err != nil {
		return err
	}
	defer s.Close()

	p, err := s.provisioner(cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sigs, err := p.Provision(ctx, tenantID, passwordHash)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(sigs)
}
