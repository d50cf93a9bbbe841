package fleet

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultWhenNoPath(t *testing.T) {
	entries, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 7 || entries[0].ID != "TAXI001" {
		t.Fatalf("unexpected default fleet: %+v", entries)
	}
	if err := Validate(entries); err != nil {
		t.Fatalf("default fleet invalid: %v", err)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fleet.yaml")
	body := `fleet:
  - id: CAB1
    type: mini
    lat: 10.5
    lng: 76.2
  - id: CAB2
    type: SUV
    lat: 10.6
    lng: 76.3
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	entries, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(entries) != 2 || entries[1].ID != "CAB2" || entries[1].Lat != 10.6 {
		t.Fatalf("unexpected entries: %+v", entries)
	}
}

func TestValidateRejectsBadEntries(t *testing.T) {
	err := Validate([]Entry{
		{ID: "A", Type: "sedan"},
		{ID: "A", Type: "sedan"},
		{ID: "", Type: "mini"},
		{ID: "B", Type: "tuk-tuk"},
		{ID: "C", Type: "mini", Lat: 95},
	})
	if err == nil {
		t.Fatal("expected validation errors")
	}
	if err := Validate(nil); err == nil {
		t.Fatal("empty fleet must be rejected")
	}
}
