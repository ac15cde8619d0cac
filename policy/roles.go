package policy

import (
	"errors"
	"sync"
)

// Capability names. The set is closed: UI code tags elements with these
// strings and the table is the only place they map to roles.
const (
	CanViewDocuments   = "canViewDocuments"
	CanEditDocuments   = "canEditDocuments"
	CanDeleteDocuments = "canDeleteDocuments"
	CanFlagDocuments   = "canFlagDocuments"
	CanVerifyDocuments = "canVerifyDocuments"

	CanAccessDocumentManagement = "canAccessDocumentManagement"
	CanAccessUserManagement     = "canAccessUserManagement"
	CanAccessRoleManagement     = "canAccessRoleManagement"
	CanAccessSystemConfig       = "canAccessSystemConfig"
)

// Capabilities lists every registered capability name in bit order.
var Capabilities = []string{
	CanViewDocuments,
	CanEditDocuments,
	CanDeleteDocuments,
	CanFlagDocuments,
	CanVerifyDocuments,
	CanAccessDocumentManagement,
	CanAccessUserManagement,
	CanAccessRoleManagement,
	CanAccessSystemConfig,
}

// Table maps role names to capability masks. It replaces the per-page
// permission tables the UI layer used to duplicate: one frozen lookup,
// default-false for anything unknown. It is declarative UI gating only, not
// a security boundary.
type Table struct {
	registry *Registry

	mu     sync.RWMutex
	roles  map[string]*Mask64
	frozen bool
}

// NewTable creates an empty role table over the given capability registry.
func NewTable(registry *Registry) *Table {
	return &Table{
		registry: registry,
		roles:    make(map[string]*Mask64),
	}
}

// RegisterRole binds a role name to a capability list. Must be called before
// [Table.Freeze].
func (t *Table) RegisterRole(roleName string, capabilities []string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.frozen {
		return errors.New("role table frozen")
	}
	if roleName == "" {
		return errors.New("role name empty")
	}
	if _, exists := t.roles[roleName]; exists {
		return errors.New("role already registered")
	}

	mask := Mask64(0)
	for _, capability := range capabilities {
		bit, ok := t.registry.Bit(capability)
		if !ok {
			return errors.New("capability not registered: " + capability)
		}
		mask.Set(bit)
	}

	t.roles[roleName] = &mask
	return nil
}

// Freeze prevents further role registrations.
func (t *Table) Freeze() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frozen = true
}

// HasPermission is a pure lookup: false for unknown roles and unknown
// capabilities, never an error.
func (t *Table) HasPermission(role, capability string) bool {
	bit, ok := t.registry.Bit(capability)
	if !ok {
		return false
	}

	t.mu.RLock()
	mask, ok := t.roles[role]
	t.mu.RUnlock()
	if !ok {
		return false
	}
	return mask.Has(bit)
}

// Mask returns the capability mask registered for a role.
func (t *Table) Mask(role string) (Mask64, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	mask, ok := t.roles[role]
	if !ok {
		return 0, false
	}
	return *mask, true
}

// CapabilitiesOf lists the capability names held by a role, in bit order.
func (t *Table) CapabilitiesOf(role string) []string {
	t.mu.RLock()
	mask, ok := t.roles[role]
	t.mu.RUnlock()
	if !ok {
		return nil
	}

	var out []string
	for bit := 0; bit < t.registry.Count(); bit++ {
		name, ok := t.registry.Name(bit)
		if !ok {
			continue
		}
		if mask.Has(bit) {
			out = append(out, name)
		}
	}
	return out
}

// DefaultTable builds the platform role table: admin everything, dean
// document oversight plus role management, teacher document curation,
// student read-only.
func DefaultTable() *Table {
	registry := NewRegistry()
	for _, capability := range Capabilities {
		if _, err := registry.Register(capability); err != nil {
			panic("policy: default capability registration: " + err.Error())
		}
	}
	registry.Freeze()

	table := NewTable(registry)
	roles := map[string][]string{
		"admin": Capabilities,
		"dean": {
			CanViewDocuments,
			CanEditDocuments,
			CanFlagDocuments,
			CanVerifyDocuments,
			CanAccessDocumentManagement,
			CanAccessRoleManagement,
		},
		"teacher": {
			CanViewDocuments,
			CanEditDocuments,
			CanFlagDocuments,
			CanAccessDocumentManagement,
		},
		"student": {
			CanViewDocuments,
		},
	}
	for role, capabilities := range roles {
		if err := table.RegisterRole(role, capabilities); err != nil {
			panic("policy: default role registration: " + err.Error())
		}
	}
	table.Freeze()

	return table
}
