package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// Command groups. Each only dispatches to its subcommands.
var (
	tenantCmd = &cobra.Command{
		Use:   "tenant",
		Short: "Manage tenants",
		Long:  `Provision and inspect tenants.`,
		RunE:  requireSubcommand,
	}

	dbCmd = &cobra.Command{
		Use:   "db",
		Short: "Manage the databases",
		Long:  `Manage the primary and mirror database schemas.`,
		RunE:  requireSubcommand,
	}

	configurationCmd = &cobra.Command{
		Use:   "configuration",
		Short: "Manage identity configuration",
		Long:  `Inspect and validate identity configuration settings.`,
		RunE:  requireSubcommand,
	}

	dataKeyCmd = &cobra.Command{
		Use:   "data-key",
		Short: "Manage the data encryption key",
		Long:  `Manage the key that encrypts private signing keys at rest.`,
		RunE:  requireSubcommand,
	}
)

func init() {
	rootCmd.AddCommand(tenantCmd, dbCmd, configurationCmd, dataKeyCmd)
}

func requireSubcommand(cmd *cobra.Command, args []string) error {
	var names []string
	for _, sub := range cmd.Commands() {
		if sub.IsAvailableCommand() {
			names = append(names, sub.Name())
		}
	}
	_ = cmd.Help()
	return fmt.Errorf("command %q requires a subcommand (%s)", cmd.Name(), strings.Join(names, ", "))
}
