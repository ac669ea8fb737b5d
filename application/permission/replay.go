package permission

import (
	"errors"

	domainerrors "github.com/reglet-dev/permstore/domain/errors"
)

// load replaces the table with the persisted one. Any failure leaves the
// empty table in place.
func (s *Store) load() {
	data, found, err := s.durable.Read()
	var corrupt *domainerrors.CorruptDataError
	if errors.As(err, &corrupt) {
		s.config.logger.Warn("permission store is corrupt; starting empty",
			"path", s.durable.Path(), "error", err)
		return
	}
	if err != nil {
		s.persistent = false
		s.config.logger.Warn("permission store unreadable; starting empty",
			"path", s.durable.Path(), "error", err)
		return
	}
	if !found {
		s.config.logger.Debug("no permission store yet", "path", s.durable.Path())
		return
	}

	table, err := s.config.codec.Decode(data)
	if err != nil {
		s.config.logger.Warn("permission store is corrupt; starting empty",
			"path", s.durable.Path(), "error", err)
		return
	}
	s.table = table
	s.config.logger.Debug("loaded permission store", "path", s.durable.Path(), "resources", table.Len())
}

// replay tries once to activate every recorded resource. Failed resources
// stay in the table unless they have reached the prune threshold.
func (s *Store) replay() {
	changed := false
	for _, id := range s.table.Resources() {
		if err := s.activateLocked(id); err != nil {
			failures := s.table.RecordFailure(id)
			changed = true
			if s.config.pruneAfter > 0 && failures >= s.config.pruneAfter {
				s.table.Delete(id)
				delete(s.failures, id)
				s.config.logger.Info("pruned grant after repeated activation failures",
					"resource", id, "failures", failures)
			}
			continue
		}
		if s.table.ResetFailures(id) {
			changed = true
		}
	}

	if changed {
		_ = s.flushLocked()
	}
	s.config.logger.Debug("replayed grants", "recorded", s.table.Len(), "active", len(s.active))
}
