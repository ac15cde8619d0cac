package policy

import "testing"

func TestDefaultTableMatrix(t *testing.T) {
	table := DefaultTable()

	cases := []struct {
		role       string
		capability string
		want       bool
	}{
		{"admin", CanAccessUserManagement, true},
		{"admin", CanAccessSystemConfig, true},
		{"admin", CanDeleteDocuments, true},

		{"dean", CanVerifyDocuments, true},
		{"dean", CanAccessRoleManagement, true},
		{"dean", CanAccessUserManagement, false},
		{"dean", CanDeleteDocuments, false},

		{"teacher", CanEditDocuments, true},
		{"teacher", CanFlagDocuments, true},
		{"teacher", CanVerifyDocuments, false},
		{"teacher", CanAccessRoleManagement, false},

		{"student", CanViewDocuments, true},
		{"student", CanEditDocuments, false},
		{"student", CanAccessUserManagement, false},
		{"student", CanAccessDocumentManagement, false},
	}

	for _, tc := range cases {
		if got := table.HasPermission(tc.role, tc.capability); got != tc.want {
			t.Errorf("HasPermission(%s, %s) = %v, want %v", tc.role, tc.capability, got, tc.want)
		}
	}
}

func TestHasPermissionDefaultsFalse(t *testing.T) {
	table := DefaultTable()

	// Unknown roles and capabilities answer false, never panic or error.
	if table.HasPermission("superuser", CanViewDocuments) {
		t.Error("unknown role granted a capability")
	}
	if table.HasPermission("admin", "canLaunchRockets") {
		t.Error("unknown capability granted")
	}
	if table.HasPermission("", "") {
		t.Error("empty lookup granted")
	}
}

func TestRegisterRoleAfterFreeze(t *testing.T) {
	table := DefaultTable()
	if err := table.RegisterRole("auditor", []string{CanViewDocuments}); err == nil {
		t.Fatal("RegisterRole after Freeze should fail")
	}
}

func TestRegisterRoleUnknownCapability(t *testing.T) {
	registry := NewRegistry()
	if _, err := registry.Register(CanViewDocuments); err != nil {
		t.Fatalf("Register: %v", err)
	}
	registry.Freeze()

	table := NewTable(registry)
	if err := table.RegisterRole("student", []string{"notACapability"}); err == nil {
		t.Fatal("RegisterRole with unregistered capability should fail")
	}
}

func TestCapabilitiesOf(t *testing.T) {
	table := DefaultTable()

	student := table.CapabilitiesOf("student")
	if len(student) != 1 || student[0] != CanViewDocuments {
		t.Fatalf("student capabilities = %v", student)
	}

	admin := table.CapabilitiesOf("admin")
	if len(admin) != len(Capabilities) {
		t.Fatalf("admin holds %d capabilities, want %d", len(admin), len(Capabilities))
	}

	if got := table.CapabilitiesOf("ghost"); got != nil {
		t.Fatalf("unknown role capabilities = %v, want nil", got)
	}
}

func TestVisibleElements(t *testing.T) {
	table := DefaultTable()

	elements := []Element{
		{ID: "download-btn"},
		{ID: "edit-btn", Capability: CanEditDocuments},
		{ID: "delete-btn", Capability: CanDeleteDocuments},
		{ID: "verify-btn", Capability: CanVerifyDocuments},
	}

	got := table.VisibleElements("teacher", elements)
	want := map[string]bool{"download-btn": true, "edit-btn": true}
	if len(got) != len(want) {
		t.Fatalf("teacher sees %d elements, want %d: %v", len(got), len(want), got)
	}
	for _, element := range got {
		if !want[element.ID] {
			t.Errorf("teacher should not see %s", element.ID)
		}
	}

	if got := table.VisibleElements("ghost", elements); len(got) != 1 || got[0].ID != "download-btn" {
		t.Fatalf("unknown role sees %v, want only untagged elements", got)
	}
}

func TestVisibleNav(t *testing.T) {
	table := DefaultTable()

	entries := []NavEntry{
		{ID: "home"},
		{ID: "users", Group: GroupAdminOnly},
		{ID: "verification", Group: GroupAdminOrDean},
		{ID: "documents", Group: GroupStaff},
		{ID: "mystery", Group: "unrecognized"},
	}

	cases := []struct {
		role string
		want []string
	}{
		{"admin", []string{"home", "users", "verification", "documents"}},
		{"dean", []string{"home", "verification", "documents"}},
		{"teacher", []string{"home", "documents"}},
		{"student", []string{"home"}},
	}

	for _, tc := range cases {
		got := table.VisibleNav(tc.role, entries)
		if len(got) != len(tc.want) {
			t.Errorf("%s nav = %v, want %v", tc.role, got, tc.want)
			continue
		}
		for i, entry := range got {
			if entry.ID != tc.want[i] {
				t.Errorf("%s nav[%d] = %s, want %s", tc.role, i, entry.ID, tc.want[i])
			}
		}
	}
}

func TestMask64Bounds(t *testing.T) {
	var mask Mask64
	mask.Set(-1)
	mask.Set(64)
	if mask.Raw() != 0 {
		t.Fatalf("out-of-range Set mutated mask: %x", mask.Raw())
	}
	if mask.Has(-1) || mask.Has(64) {
		t.Fatal("out-of-range Has returned true")
	}

	mask.Set(3)
	if !mask.Has(3) {
		t.Fatal("Set(3) not observed")
	}
	mask.Clear(3)
	if mask.Has(3) {
		t.Fatal("Clear(3) not observed")
	}
}
