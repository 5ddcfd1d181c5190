package provisioning

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/doodlesbykumbi/identity-in-go/pkg/model"
	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

// DefaultApplicationName prefixes every permittable path
const DefaultApplicationName = "identity-v1"

// Bootstrap permittable group identifiers
const (
	RoleManagement            = "ROLE_MANAGEMENT"
	IdentityManagement        = "IDENTITY_MANAGEMENT"
	SelfManagement            = "SELF_MANAGEMENT"
	ApplicationSelfManagement = "APPLICATION_SELF_MANAGEMENT"
)

// GroupTemplate names a permittable group and the path templates it covers
type GroupTemplate struct {
	Identifier string
	Paths      []string
}

// BootstrapGroups are created for every new tenant, in this order.
var BootstrapGroups = []GroupTemplate{
	{
		Identifier: RoleManagement,
		Paths:      []string{"/roles/*", "/permittablegroups/*"},
	},
	{
		Identifier: IdentityManagement,
		Paths:      []string{"/users/*"},
	},
	{
		Identifier: SelfManagement,
		Paths: []string{
			"/users/{useridentifier}/password",
			"/applications/*/permissions/*/users/{useridentifier}/enabled",
		},
	},
	{
		Identifier: ApplicationSelfManagement,
		Paths:      []string{"/applications/{applicationidentifier}/permissions"},
	},
}

// BootstrapGroupIdentifiers lists the identifiers of BootstrapGroups
func BootstrapGroupIdentifiers() []string {
	ids := make([]string, 0, len(BootstrapGroups))
	for _, group := range BootstrapGroups {
		ids = append(ids, group.Identifier)
	}
	return ids
}

// Registry expands path templates into permittable groups and writes them to
// the primary store and the mirror.
type Registry struct {
	groups          store.PermittableGroupStore
	mirror          store.PermittableGroupMirror
	applicationName string
}

// NewRegistry creates a Registry. An empty applicationName uses DefaultApplicationName.
func NewRegistry(groups store.PermittableGroupStore, mirror store.PermittableGroupMirror, applicationName string) *Registry {
	if applicationName == "" {
		applicationName = DefaultApplicationName
	}
	return &Registry{
		groups:          groups,
		mirror:          mirror,
		applicationName: applicationName,
	}
}

// ApplicationName returns the path prefix
func (r *Registry) ApplicationName() string {
	return r.applicationName
}

// Expand turns each path template into one permittable per method.
func (r *Registry) Expand(paths ...string) model.Permittables {
	permittables := make(model.Permittables, 0, len(paths)*len(model.Methods))
	for _, path := range paths {
		for _, method := range model.Methods {
			permittables = append(permittables, model.Permittable{
				Path:   r.applicationName + path,
				Method: method,
			})
		}
	}
	return permittables
}

// Create writes the group to the primary store, then to the mirror. A mirror
// failure leaves the primary write in place and is reported as MirrorWriteFailed.
func (r *Registry) Create(ctx context.Context, tenantID, identifier string, paths ...string) (model.PermittableGroup, error) {
	group := model.PermittableGroup{
		TenantID:     tenantID,
		Identifier:   identifier,
		Permittables: r.Expand(paths...),
	}

	if err := r.groups.Put(ctx, tenantID, group); err != nil {
		return group, wrap(tenantID, err)
	}

	record, err := EncodeMirrorRecord(group)
	if err != nil {
		return group, &Error{Kind: MirrorWriteFailed, TenantID: tenantID, Err: err}
	}

	err = r.mirror.Insert(ctx, tenantID, record)
	if err != nil && !errors.Is(err, store.ErrAlreadyExists) {
		return group, &Error{Kind: MirrorWriteFailed, TenantID: tenantID, Err: err}
	}

	return group, nil
}

// Bootstrap creates every group in BootstrapGroups. It stops at the first failure.
func (r *Registry) Bootstrap(ctx context.Context, tenantID string) error {
	for _, template := range BootstrapGroups {
		if _, err := r.Create(ctx, tenantID, template.Identifier, template.Paths...); err != nil {
			return err
		}
	}
	return nil
}

// Find reads a group back from the primary store
func (r *Registry) Find(ctx context.Context, tenantID, identifier string) (*model.PermittableGroup, error) {
	return r.groups.Get(ctx, tenantID, identifier)
}

// FindAll reads every group of the tenant from the primary store
func (r *Registry) FindAll(ctx context.Context, tenantID string) ([]model.PermittableGroup, error) {
	return r.groups.List(ctx, tenantID)
}

// EncodeMirrorRecord flattens a group into its mirror form: the permittables
// as a JSON array.
func EncodeMirrorRecord(group model.PermittableGroup) (store.MirrorRecord, error) {
	permittables := group.Permittables
	if permittables == nil {
		permittables = model.Permittables{}
	}

	data, err := json.Marshal(permittables)
	if err != nil {
		return store.MirrorRecord{}, err
	}
	return store.MirrorRecord{Identifier: group.Identifier, Permittables: string(data)}, nil
}

// DecodeMirrorRecord is the inverse of EncodeMirrorRecord
func DecodeMirrorRecord(record store.MirrorRecord) (model.PermittableGroup, error) {
	var permittables model.Permittables
	if err := json.Unmarshal([]byte(record.Permittables), &permittables); err != nil {
		return model.PermittableGroup{}, err
	}
	return model.PermittableGroup{Identifier: record.Identifier, Permittables: permittables}, nil
}
