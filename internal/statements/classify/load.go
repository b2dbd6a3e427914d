package classify

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a rule file:
//
//	contexts:
//	  value_added:
//	    default: unallocated
//	    rules:
//	      - bucket: personnel
//	        any: [salário, férias]
type File struct {
	Contexts map[Context]Table `yaml:"contexts"`
}

// ParseRules decodes a YAML rule file. Unknown fields are rejected so typos
// in keys surface instead of silently falling back to defaults.
func ParseRules(data []byte) (*Classifier, error) {
	var file File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return Default(), nil
		}
		return nil, fmt.Errorf("classify: decode rules: %w", err)
	}
	return New(file.Contexts)
}

// LoadRules reads a rule file. An empty path yields the built-in tables.
func LoadRules(path string) (*Classifier, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("classify: read rules: %w", err)
	}
	return ParseRules(data)
}

// MarshalRules renders the classifier's tables as a rule file.
func MarshalRules(c *Classifier) ([]byte, error) {
	return yaml.Marshal(File{Contexts: c.Tables()})
}
