package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/doodlesbykumbi/identity-in-go/pkg/config"
	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
	"github.com/doodlesbykumbi/identity-in-go/pkg/provisioning"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

// tenantShowCmd represents the tenant show command
var tenantShowCmd = &cobra.Command{
	Use:   "show <tenant>",
	Short: "Show the signature set and security parameters of a tenant",
	Long: `Show the latest signature set, password policy and permittable groups of a
tenant. Neither the salt nor any private key is printed.

Example:
  identityctl tenant show acme`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return showTenant(args[0])
	},
}

func init() {
	tenantCmd.AddCommand(tenantShowCmd)
}

// tenantInfo is the output of tenant show
type tenantInfo struct {
	Tenant                                    string              `json:"tenant"`
	SignatureSet                              *model.SignatureSet `json:"signature_set,omitempty"`
	PasswordExpiresInDays                     int                 `json:"password_expires_in_days,omitempty"`
	TimeToChangePasswordAfterExpirationInDays int                 `json:"time_to_change_password_after_expiration_in_days,omitempty"`
	PermittableGroups                         []string            `json:"permittable_groups"`
}

func showTenant(tenantID string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	s, err := newStack(cfg, newLogger(), nil, false)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	info, err := describeTenant(ctx, s.stores, tenantID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(info)
}

func describeTenant(ctx context.Context, stores provisioning.Stores, tenantID string) (*tenantInfo, error) {
	info := &tenantInfo{Tenant: tenantID, PermittableGroups: []string{}}

	latest, err := stores.SigningKeys.GetLatest(ctx, tenantID)
	switch {
	case err == nil:
		sigs, err := latest.SignatureSet()
		if err != nil {
			return nil, err
		}
		info.SignatureSet = &sigs
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	security, err := stores.Security.Get(ctx, tenantID)
	switch {
	case err == nil:
		info.PasswordExpiresInDays = security.PasswordExpiresInDays
		info.TimeToChangePasswordAfterExpirationInDays = security.TimeToChangePasswordAfterExpirationInDays
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	if info.SignatureSet == nil && security == nil {
		return nil, fmt.Errorf("tenant %s is not provisioned", tenantID)
	}

	groups, err := stores.PermittableGroups.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	for _, group := range groups {
		info.PermittableGroups = append(info.PermittableGroups, group.Identifier)
	}

	return info, nil
}
