package policy

import (
	"log/slog"

	"github.com/reglet-dev/permstore/domain/ports"
)

// Ensure implementations satisfy the interface.
var _ ports.DenialHandler = (*LogDenialHandler)(nil)
var _ ports.DenialHandler = (*NopDenialHandler)(nil)

// LogDenialHandler logs denials through slog.
type LogDenialHandler struct {
	Logger *slog.Logger
}

func (h *LogDenialHandler) OnDenial(path string, reason string) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("no grant covers path", "path", path, "reason", reason)
}

// NopDenialHandler does nothing.
type NopDenialHandler struct{}

func (h *NopDenialHandler) OnDenial(path string, reason string) {}
