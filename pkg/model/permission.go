package model

import (
	"database/sql/driver"
	"encoding/json"
)

// AllowedOperation is an operation a permission grants over a permittable group.
type AllowedOperation string

const (
	OperationRead   AllowedOperation = "READ"
	OperationChange AllowedOperation = "CHANGE"
	OperationDelete AllowedOperation = "DELETE"
)

// AllOperations is the full-access operation set.
func AllOperations() []AllowedOperation {
	return []AllowedOperation{OperationRead, OperationChange, OperationDelete}
}

// Permission references a permittable group by identifier. The group is not owned.
type Permission struct {
	PermittableGroupIdentifier string             `json:"permittable_group_identifier"`
	AllowedOperations          []AllowedOperation `json:"allowed_operations"`
}

// Allows reports whether op is granted.
func (p Permission) Allows(op AllowedOperation) bool {
	for _, allowed := range p.AllowedOperations {
		if allowed == op {
			return true
		}
	}
	return false
}

// Permissions is persisted as a JSON column.
type Permissions []Permission

func (p Permissions) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (p *Permissions) Scan(src interface{}) error {
	return scanJSON(src, p)
}
