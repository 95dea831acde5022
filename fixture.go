package gcsmock

import (
	"encoding/base64"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixture is the declarative YAML description of an initial simulated state:
// buckets and the member objects they start with. Objects are applied with
// Put semantics, in file order, so a fixture-seeded Storage lists them in
// declaration order.
type Fixture struct {
	Buckets []FixtureBucket `yaml:"buckets"`
}

// FixtureBucket declares one bucket and its initial member objects.
type FixtureBucket struct {
	Name    string          `yaml:"name"`
	Objects []FixtureObject `yaml:"objects"`
}

// FixtureObject declares one object. Contents and ContentsBase64 are
// mutually exclusive; an object with neither starts empty.
type FixtureObject struct {
	Name string `yaml:"name"`
	// Contents is an inline UTF-8 payload.
	Contents string `yaml:"contents"`
	// ContentsBase64 is a base64-encoded payload for binary data.
	ContentsBase64 string `yaml:"contents_base64"`
	// Metadata is applied with SetMetadata merge semantics over the default
	// metadata.
	Metadata Metadata `yaml:"metadata"`
}

// LoadFixture reads and validates the YAML fixture file at path.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture file: %w", err)
	}

	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing fixture file: %w", err)
	}

	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks the fixture for empty or duplicate names and conflicting
// contents declarations.
func (f *Fixture) Validate() error {
	seenBuckets := make(map[string]bool)
	for _, b := range f.Buckets {
		if b.Name == "" {
			return fmt.Errorf("fixture: bucket with empty name")
		}
		if seenBuckets[b.Name] {
			return fmt.Errorf("fixture: duplicate bucket %q", b.Name)
		}
		seenBuckets[b.Name] = true

		seenObjects := make(map[string]bool)
		for _, o := range b.Objects {
			if o.Name == "" {
				return fmt.Errorf("fixture: bucket %q: object with empty name", b.Name)
			}
			if seenObjects[o.Name] {
				return fmt.Errorf("fixture: bucket %q: duplicate object %q", b.Name, o.Name)
			}
			seenObjects[o.Name] = true

			if o.Contents != "" && o.ContentsBase64 != "" {
				return fmt.Errorf("fixture: bucket %q: object %q sets both contents and contents_base64", b.Name, o.Name)
			}
			if o.ContentsBase64 != "" {
				if _, err := base64.StdEncoding.DecodeString(o.ContentsBase64); err != nil {
					return fmt.Errorf("fixture: bucket %q: object %q: invalid base64 contents: %w", b.Name, o.Name, err)
				}
			}
		}
	}
	return nil
}

// Apply seeds s with the fixture's buckets and objects. The fixture must
// have been validated; Apply itself never fails.
func (f *Fixture) Apply(s *Storage) {
	for _, fb := range f.Buckets {
		bucket := s.Bucket(fb.Name)
		for _, fo := range fb.Objects {
			contents := []byte(fo.Contents)
			if fo.ContentsBase64 != "" {
				// Validate already checked the encoding.
				contents, _ = base64.StdEncoding.DecodeString(fo.ContentsBase64)
			}
			bucket.Put(fo.Name, contents, fo.Metadata)
		}
	}
}
