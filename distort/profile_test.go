package distort

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLookupExactAndFuzzy(t *testing.T) {
	store := NewProfileStore()

	p, err := store.Lookup("ARRI Alexa Mini")
	if err != nil {
		t.Fatal(err)
	}
	if p.Manufacturer != "ARRI" {
		t.Errorf("incorrect manufacturer: %q", p.Manufacturer)
	}

	// Case-insensitive
	if _, err := store.Lookup("arri alexa mini"); err != nil {
		t.Errorf("case-insensitive lookup failed: %v", err)
	}

	// Substring
	p, err = store.Lookup("komodo")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name != "RED Komodo 6K" {
		t.Errorf("substring lookup resolved to %q", p.Name)
	}

	if _, err := store.Lookup("nonexistent camera"); err == nil {
		t.Error("expected error for unknown profile")
	}
}

func TestLoadFileTOML(t *testing.T) {
	content := `
[[profiles]]
name = "Test Cam"
manufacturer = "Testco"
model = "T1"
sensor_width = 23.5
sensor_height = 15.6
focal_length = 50.0
crop_factor = 1.5

[profiles.distortion]
k1 = -0.05
k2 = 0.01
p1 = 0.0002
`
	path := filepath.Join(t.TempDir(), "profiles.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	store := NewProfileStore()
	if err := store.LoadFile(path); err != nil {
		t.Fatal(err)
	}
	p, err := store.Lookup("Test Cam")
	if err != nil {
		t.Fatal(err)
	}
	if p.SensorWidth != 23.5 || p.Distortion.K1 != -0.05 || p.Distortion.P1 != 0.0002 {
		t.Errorf("profile fields did not round-trip: %+v", p)
	}
}

func TestAddInvalidProfile(t *testing.T) {
	store := NewProfileStore()
	if err := store.Add(CameraProfile{Name: "bad", SensorWidth: 0, SensorHeight: 24}); err == nil {
		t.Error("expected error for zero sensor width")
	}
	if err := store.Add(CameraProfile{SensorWidth: 36, SensorHeight: 24}); err == nil {
		t.Error("expected error for empty name")
	}
}
