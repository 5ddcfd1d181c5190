package model

// Role grants permissions over permittable groups within a tenant
type Role struct {
	TenantID    string      `gorm:"column:tenant_id;primaryKey" json:"-"`
	Identifier  string      `gorm:"column:identifier;primaryKey" json:"identifier"`
	Permissions Permissions `gorm:"column:permissions;type:jsonb;not null" json:"permissions"`
}

func (Role) TableName() string {
	return "roles"
}

// PermissionFor returns the permission for a permittable group, if the role has one.
func (r Role) PermissionFor(groupIdentifier string) (Permission, bool) {
	for _, p := range r.Permissions {
		if p.PermittableGroupIdentifier == groupIdentifier {
			return p, true
		}
	}
	return Permission{}, false
}
