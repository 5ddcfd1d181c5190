package provisioning

import (
	"context"
	"errors"
	"fmt"

	"github.com/doodlesbykumbi/identity-in-go/pkg/store"
)

// ErrProvisioningFailed matches every *Error with errors.Is.
var ErrProvisioningFailed = errors.New("provisioning failed")

// Kind classifies a provisioning failure
type Kind int

const (
	// KeyGenerationFailed means signing key material could not be produced. Not retryable.
	KeyGenerationFailed Kind = iota + 1
	// StoreUnavailable means a store failed or the call was cancelled. Provision may be called again.
	StoreUnavailable
	// SchemaNotReady means migrations have not run. Fatal until remediated.
	SchemaNotReady
	// MirrorWriteFailed means the primary write committed but the mirror write did not.
	MirrorWriteFailed
	// AlreadyProvisioning means a non-blocking lock found the tenant busy.
	AlreadyProvisioning
)

func (k Kind) String() string {
	switch k {
	case KeyGenerationFailed:
		return "key generation failed"
	case StoreUnavailable:
		return "store unavailable"
	case SchemaNotReady:
		return "schema not ready"
	case MirrorWriteFailed:
		return "mirror write failed"
	case AlreadyProvisioning:
		return "already provisioning"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is the single error type returned by Provision. Its message never
// includes the cause, which stays reachable through Unwrap for logging.
type Error struct {
	Kind     Kind
	TenantID string
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("provisioning failed: %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	return target == ErrProvisioningFailed
}

// KindOf returns the kind of a provisioning error
func KindOf(err error) (Kind, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind, true
	}
	return 0, false
}

// wrap classifies err. An err that is already an *Error is returned unchanged.
func wrap(tenantID string, err error) error {
	if err == nil {
		return nil
	}

	var perr *Error
	if errors.As(err, &perr) {
		return err
	}

	kind := StoreUnavailable
	switch {
	case errors.Is(err, ErrLockHeld):
		kind = AlreadyProvisioning
	case errors.Is(err, store.ErrKeyGeneration):
		kind = KeyGenerationFailed
	case errors.Is(err, store.ErrSchemaNotReady):
		kind = SchemaNotReady
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		kind = StoreUnavailable
	}

	return &Error{Kind: kind, TenantID: tenantID, Err: err}
}
