package distort

import (
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
)

// CameraProfile describes a lens/sensor combination. Sensor dimensions and
// focal length are in millimeters. Immutable once loaded into a store.
type CameraProfile struct {
	Name         string       `toml:"name"`
	Manufacturer string       `toml:"manufacturer"`
	Model        string       `toml:"model"`
	SensorWidth  float64      `toml:"sensor_width"`
	SensorHeight float64      `toml:"sensor_height"`
	FocalLength  float64      `toml:"focal_length"`
	CropFactor   float64      `toml:"crop_factor"`
	Distortion   Coefficients `toml:"distortion"`
}

// Validate checks profile invariants at load time.
func (p *CameraProfile) Validate() error {
	if p.Name == "" {
		return errors.New("camera profile has empty name")
	}
	if p.SensorWidth <= 0 || p.SensorHeight <= 0 {
		return errors.Errorf("camera profile %q has invalid sensor dimensions %.2fx%.2f",
			p.Name, p.SensorWidth, p.SensorHeight)
	}
	if err := p.Distortion.Validate(); err != nil {
		return errors.Wrapf(err, "camera profile %q", p.Name)
	}
	return nil
}

// builtinProfiles is the built-in lens/sensor table. External TOML files
// extend or override it.
var builtinProfiles = []CameraProfile{
	{Name: "Generic Full Frame", SensorWidth: 36.0, SensorHeight: 24.0, FocalLength: 35.0, CropFactor: 1.0},
	{Name: "ARRI Alexa Mini", Manufacturer: "ARRI", Model: "Alexa Mini", SensorWidth: 28.25, SensorHeight: 18.17, FocalLength: 32.0, CropFactor: 1.27},
	{Name: "RED Komodo 6K", Manufacturer: "RED", Model: "Komodo 6K", SensorWidth: 27.03, SensorHeight: 14.26, FocalLength: 35.0, CropFactor: 1.33},
	{Name: "Sony A7S III", Manufacturer: "Sony", Model: "A7S III", SensorWidth: 35.6, SensorHeight: 23.8, FocalLength: 35.0, CropFactor: 1.0},
	{Name: "Blackmagic Pocket 6K", Manufacturer: "Blackmagic", Model: "Pocket Cinema 6K", SensorWidth: 23.1, SensorHeight: 12.99, FocalLength: 28.0, CropFactor: 1.56},
	{
		Name: "GoPro HERO11 Wide", Manufacturer: "GoPro", Model: "HERO11",
		SensorWidth: 6.17, SensorHeight: 4.63, FocalLength: 2.92, CropFactor: 5.6,
		Distortion: Coefficients{K1: -0.12, K2: 0.03, P1: 0.0005, P2: -0.0003},
	},
}

// ProfileStore holds camera profiles looked up by name.
type ProfileStore struct {
	profiles map[string]CameraProfile
	order    []string
}

// NewProfileStore creates a store seeded with the built-in profile table.
func NewProfileStore() *ProfileStore {
	s := &ProfileStore{
		profiles: make(map[string]CameraProfile, len(builtinProfiles)),
	}
	for _, p := range builtinProfiles {
		s.profiles[p.Name] = p
		s.order = append(s.order, p.Name)
	}
	return s
}

// Add registers a profile, replacing any existing profile with the same name.
func (s *ProfileStore) Add(p CameraProfile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if _, exists := s.profiles[p.Name]; !exists {
		s.order = append(s.order, p.Name)
	}
	s.profiles[p.Name] = p
	return nil
}

// profileFile is the TOML layout of an external profile file.
type profileFile struct {
	Profiles []CameraProfile `toml:"profiles"`
}

// LoadFile adds all profiles from a TOML file. A malformed file or profile
// is a configuration error.
func (s *ProfileStore) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "can't read profile file %s", path)
	}
	var file profileFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return errors.Wrapf(err, "can't parse profile file %s", path)
	}
	for _, p := range file.Profiles {
		if err := s.Add(p); err != nil {
			return errors.Wrapf(err, "profile file %s", path)
		}
	}
	return nil
}

// Lookup finds a profile by name: exact match first, then case-insensitive,
// then case-insensitive substring. Ambiguous substring matches resolve to
// the first registered profile.
func (s *ProfileStore) Lookup(name string) (CameraProfile, error) {
	if p, ok := s.profiles[name]; ok {
		return p, nil
	}
	lower := strings.ToLower(name)
	for _, n := range s.order {
		if strings.ToLower(n) == lower {
			return s.profiles[n], nil
		}
	}
	for _, n := range s.order {
		if strings.Contains(strings.ToLower(n), lower) {
			return s.profiles[n], nil
		}
	}
	return CameraProfile{}, errors.Errorf("no camera profile matches %q", name)
}

// Names returns the registered profile names, sorted.
func (s *ProfileStore) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	sort.Strings(out)
	return out
}
