package ports

import "github.com/reglet-dev/permstore/domain/entities"

// ConfigParser parses raw configuration bytes over a base Config.
type ConfigParser interface {
	// Parse overlays the settings in data onto base. Keys absent from data
	// keep their base values.
	Parse(data []byte, base entities.Config) (entities.Config, error)
}
