package policy

// Element is an interactive page element tagged with the capability it
// requires. Elements without a tag are always visible.
type Element struct {
	ID         string
	Capability string
}

// NavEntry is a navigation item gated by a role group rather than a single
// capability.
type NavEntry struct {
	ID    string
	Group string
}

// Role groups recognized on navigation entries.
const (
	GroupAdminOnly   = "admin-only"
	GroupAdminOrDean = "admin-or-dean"
	GroupStaff       = "staff" // admin, dean, or teacher
)

// VisibleElements returns the subset of elements the role may see. This is
// the applyPermissions walk: anything requiring a capability the role lacks
// is dropped.
func (t *Table) VisibleElements(role string, elements []Element) []Element {
	visible := make([]Element, 0, len(elements))
	for _, element := range elements {
		if element.Capability == "" || t.HasPermission(role, element.Capability) {
			visible = append(visible, element)
		}
	}
	return visible
}

// VisibleNav returns the navigation entries the role may see. Unknown groups
// hide the entry for everyone.
func (t *Table) VisibleNav(role string, entries []NavEntry) []NavEntry {
	visible := make([]NavEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.Group == "" || groupAllows(entry.Group, role) {
			visible = append(visible, entry)
		}
	}
	return visible
}

func groupAllows(group, role string) bool {
	switch group {
	case GroupAdminOnly:
		return role == "admin"
	case GroupAdminOrDean:
		return role == "admin" || role == "dean"
	case GroupStaff:
		return role == "admin" || role == "dean" || role == "teacher"
	default:
		return false
	}
}
