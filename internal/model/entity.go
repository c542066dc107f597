package model

import "strings"

// SupplierType distinguishes producers from tier-1 suppliers.
type SupplierType string

const (
	SupplierProducer   SupplierType = "producer"
	SupplierT1Supplier SupplierType = "t1supplier"
)

// EntityKind names one of the organizational trees.
type EntityKind string

const (
	KindMaterial     EntityKind = "material"
	KindAdminRegion  EntityKind = "admin_region"
	KindSupplier     EntityKind = "supplier"
	KindBusinessUnit EntityKind = "business_unit"
)

// Table returns the table that stores entities of kind k.
func (k EntityKind) Table() string {
	switch k {
	case KindMaterial:
		return "materials"
	case KindAdminRegion:
		return "admin_regions"
	case KindSupplier:
		return "suppliers"
	case KindBusinessUnit:
		return "business_units"
	}
	return ""
}

// MPathSeparator joins ids in a materialized ancestry path.
const MPathSeparator = "."

// IsDescendantPath reports whether path lies under the node whose own path is
// ancestor. A node counts as its own descendant.
func IsDescendantPath(path, ancestor string) bool {
	return path == ancestor || strings.HasPrefix(path, ancestor+MPathSeparator)
}

// Material is a node of the material tree.
type Material struct {
	ID       string     `json:"id" yaml:"id"`
	Name     string     `json:"name" yaml:"name"`
	ParentID string     `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	MPath    string     `json:"mpath,omitempty" yaml:"mpath,omitempty"`
	HSCode   string     `json:"hs_code,omitempty" yaml:"hs_code,omitempty"`
	Children []Material `json:"children,omitempty" yaml:"children,omitempty"`
}

func (m Material) NodeID() string                     { return m.ID }
func (m Material) NodeParentID() string               { return m.ParentID }
func (m Material) NodeName() string                   { return m.Name }
func (m Material) NodeChildren() []Material           { return m.Children }
func (m Material) WithChildren(c []Material) Material { m.Children = c; return m }

// AdminRegion is a node of the administrative region tree.
type AdminRegion struct {
	ID          string        `json:"id" yaml:"id"`
	Name        string        `json:"name" yaml:"name"`
	ParentID    string        `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	MPath       string        `json:"mpath,omitempty" yaml:"mpath,omitempty"`
	ISOA2       string        `json:"iso_a2,omitempty" yaml:"iso_a2,omitempty"`
	Level       int           `json:"level" yaml:"level"`
	GeoRegionID string        `json:"geo_region_id,omitempty" yaml:"geo_region_id,omitempty"`
	Children    []AdminRegion `json:"children,omitempty" yaml:"children,omitempty"`
}

func (a AdminRegion) NodeID() string                           { return a.ID }
func (a AdminRegion) NodeParentID() string                     { return a.ParentID }
func (a AdminRegion) NodeName() string                         { return a.Name }
func (a AdminRegion) NodeChildren() []AdminRegion              { return a.Children }
func (a AdminRegion) WithChildren(c []AdminRegion) AdminRegion { a.Children = c; return a }

// Supplier is a node of the supplier tree. It is either a producer or a
// tier-1 supplier.
type Supplier struct {
	ID       string       `json:"id" yaml:"id"`
	Name     string       `json:"name" yaml:"name"`
	ParentID string       `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	MPath    string       `json:"mpath,omitempty" yaml:"mpath,omitempty"`
	Type     SupplierType `json:"type,omitempty" yaml:"type,omitempty"`
	Children []Supplier   `json:"children,omitempty" yaml:"children,omitempty"`
}

func (s Supplier) NodeID() string                     { return s.ID }
func (s Supplier) NodeParentID() string               { return s.ParentID }
func (s Supplier) NodeName() string                   { return s.Name }
func (s Supplier) NodeChildren() []Supplier           { return s.Children }
func (s Supplier) WithChildren(c []Supplier) Supplier { s.Children = c; return s }

// BusinessUnit is a node of the business unit tree.
type BusinessUnit struct {
	ID       string         `json:"id" yaml:"id"`
	Name     string         `json:"name" yaml:"name"`
	ParentID string         `json:"parent_id,omitempty" yaml:"parent_id,omitempty"`
	MPath    string         `json:"mpath,omitempty" yaml:"mpath,omitempty"`
	Children []BusinessUnit `json:"children,omitempty" yaml:"children,omitempty"`
}

func (b BusinessUnit) NodeID() string                             { return b.ID }
func (b BusinessUnit) NodeParentID() string                       { return b.ParentID }
func (b BusinessUnit) NodeName() string                           { return b.Name }
func (b BusinessUnit) NodeChildren() []BusinessUnit               { return b.Children }
func (b BusinessUnit) WithChildren(c []BusinessUnit) BusinessUnit { b.Children = c; return b }

// GeoRegion binds an id to a compacted set of H3 cells. It is never mutated
// after creation.
type GeoRegion struct {
	ID        string   `json:"id" yaml:"id"`
	Name      string   `json:"name,omitempty" yaml:"name,omitempty"`
	H3Compact []string `json:"h3_compacted,omitempty" yaml:"h3_compacted,omitempty"`
	IsRadius  bool     `json:"is_radius" yaml:"is_radius"`
}
