package schema

import (
	"fmt"
	"os"

	"github.com/solatis/ordergate/internal/types"
	"gopkg.in/yaml.v3"
)

// fileSchema is the YAML shape of a schema file:
//
//	relations:
//	  - name: Order
//	    fields:
//	      - key: poids_total
//	        type: number
//	      - key: statut
//	        type: select
//	        options: [en_attente, validee]
type fileSchema struct {
	Relations []struct {
		Name   string `yaml:"name"`
		Fields []struct {
			Key     string   `yaml:"key"`
			Type    string   `yaml:"type"`
			Options []string `yaml:"options"`
		} `yaml:"fields"`
	} `yaml:"relations"`
}

// LoadFile reads a YAML schema file into a new registry.
func LoadFile(path string) (*Registry, error) {
	// #nosec G304 -- path comes from operator configuration.
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Load(data)
}

// Load parses YAML schema bytes into a new registry.
func Load(data []byte) (*Registry, error) {
	var fs fileSchema
	if err := yaml.Unmarshal(data, &fs); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	r := NewRegistry()
	for _, rel := range fs.Relations {
		desc := RelationDescriptor{Name: rel.Name}
		for _, f := range rel.Fields {
			vt, err := types.ParseValueType(f.Type)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", rel.Name, f.Key, err)
			}
			desc.Fields = append(desc.Fields, FieldDescriptor{Key: f.Key, Type: vt, Options: f.Options})
		}
		if err := r.Register(desc); err != nil {
			return nil, err
		}
	}
	return r, nil
}
