package seed

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/beacon/internal/domain"
)

// Loader handles loading and parsing of the seed file
type Loader struct {
	filePath string
}

// NewLoader creates a new seed loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// Load reads, expands and validates the seed file.
func (l *Loader) Load() (*File, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes seed YAML. ${VAR} references are expanded from the
// environment before decoding and unknown keys are rejected.
func Parse(data []byte) (*File, error) {
	data = []byte(os.ExpandEnv(string(data)))

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file File
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse seed yaml: %w", err)
	}

	if err := file.validate(); err != nil {
		return nil, err
	}
	return &file, nil
}

func (f *File) validate() error {
	seen := make(map[string]bool, len(f.Services))
	for i, entry := range f.Services {
		if err := domain.ValidateName(entry.Name); err != nil {
			return fmt.Errorf("seed entry %d: %w", i, err)
		}
		if err := domain.ValidatePeriod(entry.Period); err != nil {
			return fmt.Errorf("seed entry %d (%s): %w", i, entry.Name, err)
		}
		if seen[entry.Name] {
			return fmt.Errorf("seed entry %d: %w: duplicate name %s", i, domain.ErrInvalidInput, entry.Name)
		}
		seen[entry.Name] = true
	}
	return nil
}
