package placeholder

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadFile reads marker families from a YAML document such as
//
//	signature: ["<<firma>>", "[FIRMA]"]
//	name: ["<<nombre>>"]
//	id: ["<<dni>>"]
//
// Families left empty keep their defaults.
func LoadFile(path string) (Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Set{}, fmt.Errorf("failed to read placeholder file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML placeholder document and validates it
func Parse(data []byte) (Set, error) {
	var set Set
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&set); err != nil && err != io.EOF {
		return Set{}, fmt.Errorf("invalid placeholder file: %w", err)
	}

	def := Default()
	if len(set.Signature) == 0 {
		set.Signature = def.Signature
	}
	if len(set.Name) == 0 {
		set.Name = def.Name
	}
	if len(set.ID) == 0 {
		set.ID = def.ID
	}

	if err := set.Validate(); err != nil {
		return Set{}, err
	}
	return set, nil
}

// Validate rejects empty literals and literals shared between families
func (s Set) Validate() error {
	owner := make(map[string]Family)
	for _, f := range Families {
		for _, lit := range s.Literals(f) {
			if lit == "" {
				return fmt.Errorf("placeholder family %q contains an empty literal", f)
			}
			if prev, ok := owner[lit]; ok && prev != f {
				return fmt.Errorf("placeholder %q is declared for both %q and %q", lit, prev, f)
			}
			owner[lit] = f
		}
	}
	return nil
}
