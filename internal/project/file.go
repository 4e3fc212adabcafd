package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks the encoding from the file extension; anything that is
// not .yaml or .yml is JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

func Encode(s Snapshot, format Format) ([]byte, error) {
	if s.Version == 0 {
		s.Version = SchemaVersion
	}
	switch format {
	case FormatYAML:
		return yaml.Marshal(s)
	case FormatJSON:
		return json.MarshalIndent(s, "", "  ")
	default:
		return nil, fmt.Errorf("unsupported project format %q", format)
	}
}

func Decode(blob []byte, format Format) (Snapshot, error) {
	var s Snapshot
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(blob, &s)
	case FormatJSON:
		err = json.Unmarshal(blob, &s)
	default:
		return Snapshot{}, fmt.Errorf("unsupported project format %q", format)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("decode %s project: %w", format, err)
	}
	if s.Version == 0 {
		s.Version = SchemaVersion
	}
	if s.Phase == "" {
		s.Phase = PhaseSwot
	}
	return s, nil
}

// LoadFile reads a project file. A missing file is reported as
// os.ErrNotExist so callers can start a fresh project.
func LoadFile(path string) (Snapshot, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return Snapshot{}, err
	}
	s, err := Decode(blob, FormatForPath(path))
	if err != nil {
		return Snapshot{}, err
	}
	if err := ValidateSnapshot(s); err != nil {
		return Snapshot{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// SaveFile writes the snapshot through a temp file and rename so a crash
// never leaves a half-written project behind.
func SaveFile(path string, s Snapshot) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	s.SavedAt = time.Now().UTC()
	blob, err := Encode(s, FormatForPath(path))
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
