package ports

import "github.com/reglet-dev/permstore/domain/entities"

// CoverageChecker decides which granted resource gives access to a path.
type CoverageChecker interface {
	// Covering returns the most specific grant among granted that covers path.
	Covering(path string, granted []entities.ResourceID) (entities.ResourceID, bool)
}

// DenialHandler is called when no grant covers a requested path.
// Implementations can log, collect metrics, or take other actions.
type DenialHandler interface {
	OnDenial(path string, reason string)
}
