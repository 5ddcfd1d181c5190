package provisioning

import (
	"time"

	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
)

// Superuser account created for every tenant
const (
	SuperuserIdentifier     = "antony"
	SuperuserRoleIdentifier = "SU_ROLE"
)

// RoleAndUserBuilder assembles the superuser role and user accounts. It has
// no side effects; callers persist what it builds.
type RoleAndUserBuilder struct {
	groupIdentifiers []string
	now              func() time.Time
}

// NewRoleAndUserBuilder grants the superuser role full access over groupIdentifiers.
// A nil now uses time.Now.
func NewRoleAndUserBuilder(groupIdentifiers []string, now func() time.Time) *RoleAndUserBuilder {
	if now == nil {
		now = time.Now
	}
	return &RoleAndUserBuilder{
		groupIdentifiers: append([]string(nil), groupIdentifiers...),
		now:              now,
	}
}

// BuildSuperuserRole returns SU_ROLE with one full-access permission per group
func (b *RoleAndUserBuilder) BuildSuperuserRole() model.Role {
	permissions := make(model.Permissions, 0, len(b.groupIdentifiers))
	for _, id := range b.groupIdentifiers {
		permissions = append(permissions, model.Permission{
			PermittableGroupIdentifier: id,
			AllowedOperations:          model.AllOperations(),
		})
	}
	return model.Role{
		Identifier:  SuperuserRoleIdentifier,
		Permissions: permissions,
	}
}

// BuildUser returns a user account. When passwordMustChange is set the
// password expires timeToChangeAfterExpiry days from now.
func (b *RoleAndUserBuilder) BuildUser(identifier, roleIdentifier string, passwordHash []byte, passwordMustChange bool, salt []byte, timeToChangeAfterExpiry int) model.User {
	user := model.User{
		Identifier:         identifier,
		Role:               roleIdentifier,
		PasswordHash:       append([]byte(nil), passwordHash...),
		Salt:               append([]byte(nil), salt...),
		PasswordMustChange: passwordMustChange,
		TimeToChangePasswordAfterExpirationInDays: timeToChangeAfterExpiry,
	}

	if passwordMustChange {
		expiresOn := b.now().UTC().AddDate(0, 0, timeToChangeAfterExpiry)
		user.PasswordExpiresOn = &expiresOn
	}

	return user
}
