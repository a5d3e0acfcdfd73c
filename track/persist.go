package track

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
)

// sessionFile is the on-disk form of a TrackingSession. Every field of the
// in-memory model round-trips losslessly.
type sessionFile struct {
	Version       int         `json:"version"`
	Footage       Footage     `json:"footage"`
	CameraProfile string      `json:"camera_profile"`
	Tracks        []trackJSON `json:"tracks"`
}

const sessionFileVersion = 1

// SaveSession writes the session to path as JSON.
func SaveSession(path string, s *TrackingSession) error {
	file := sessionFile{
		Version:       sessionFileVersion,
		Footage:       s.Footage,
		CameraProfile: s.CameraProfile,
		Tracks:        make([]trackJSON, 0, len(s.Tracks)),
	}
	for _, t := range s.Tracks {
		file.Tracks = append(file.Tracks, t.toJSON())
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return errors.Wrap(err, "can't encode session")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.Wrapf(err, "can't write session to %s", path)
	}
	return nil
}

// LoadSession reads a session previously written by SaveSession.
func LoadSession(path string) (*TrackingSession, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "can't read session from %s", path)
	}
	var file sessionFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, errors.Wrap(err, "can't decode session")
	}
	if file.Version != sessionFileVersion {
		return nil, errors.Errorf("unsupported session version %d", file.Version)
	}
	s, err := NewSession(file.Footage)
	if err != nil {
		return nil, errors.Wrap(err, "session file has invalid footage")
	}
	s.CameraProfile = file.CameraProfile
	for _, tj := range file.Tracks {
		t, err := trackFromJSON(tj)
		if err != nil {
			return nil, err
		}
		s.Tracks = append(s.Tracks, t)
	}
	return s, nil
}
