// Package parser reads permstore configuration files.
package parser

import (
	"bytes"
	"errors"
	"io"

	"github.com/reglet-dev/permstore/domain/entities"
	"github.com/reglet-dev/permstore/domain/ports"
	"gopkg.in/yaml.v3"
)

// YamlConfigParser implements ConfigParser for YAML.
type YamlConfigParser struct{}

// NewYamlConfigParser creates a new YamlConfigParser.
func NewYamlConfigParser() ports.ConfigParser {
	return &YamlConfigParser{}
}

// Parse unmarshals YAML bytes over base. Unknown keys are rejected.
func (p *YamlConfigParser) Parse(data []byte, base entities.Config) (entities.Config, error) {
	cfg := base
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// An empty document leaves the base untouched.
		if errors.Is(err, io.EOF) {
			return base, nil
		}
		return base, err
	}
	return cfg, nil
}
