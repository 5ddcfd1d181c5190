package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// HTTP methods a permittable may grant
const (
	MethodGet    = "GET"
	MethodPost   = "POST"
	MethodPut    = "PUT"
	MethodDelete = "DELETE"
)

// Methods lists every method a path template expands into, in expansion order.
var Methods = []string{MethodGet, MethodPost, MethodPut, MethodDelete}

// Permittable is a single (path, method) authorization unit.
type Permittable struct {
	Path   string `json:"path"`
	Method string `json:"method"`
}

func (p Permittable) String() string {
	return p.Method + " " + p.Path
}

// Permittables is an ordered list persisted as a JSON column.
type Permittables []Permittable

func (p Permittables) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func (p *Permittables) Scan(src interface{}) error {
	return scanJSON(src, p)
}

// PermittableGroup is a named bundle of permittables, the unit of permission granting.
type PermittableGroup struct {
	TenantID     string       `gorm:"column:tenant_id;primaryKey" json:"-"`
	Identifier   string       `gorm:"column:identifier;primaryKey" json:"identifier"`
	Permittables Permittables `gorm:"column:permittables;type:jsonb;not null" json:"permittables"`
}

func (PermittableGroup) TableName() string {
	return "permittable_groups"
}

func scanJSON(src interface{}, dest interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("cannot scan %T into %T", src, dest)
	}
}
