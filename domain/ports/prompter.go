package ports

import "github.com/reglet-dev/permstore/domain/entities"

// Prompter handles interactive grant confirmation.
type Prompter interface {
	// IsInteractive returns true if running in an interactive terminal.
	IsInteractive() bool

	// ConfirmGrant asks the user whether resource should keep persistent access.
	ConfirmGrant(resource entities.ResourceID) (bool, error)

	// ConfirmGrants asks once for several resources and returns the approved ones.
	ConfirmGrants(resources []entities.ResourceID) ([]entities.ResourceID, error)
}
