package bookmark

import (
	"os"
	"sync"

	"github.com/reglet-dev/permstore/domain/entities"
	"github.com/reglet-dev/permstore/domain/ports"
)

// handle holds an open descriptor on the resource while access is started.
type handle struct {
	resource entities.ResourceID

	mu   sync.Mutex
	file *os.File
}

var _ ports.ResourceHandle = (*handle)(nil)

func newHandle(resource entities.ResourceID) *handle {
	return &handle{resource: resource}
}

func (h *handle) Resource() entities.ResourceID {
	return h.resource
}

func (h *handle) StartAccess() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.file != nil {
		return true
	}
	f, err := os.Open(h.resource.Path())
	if err != nil {
		return false
	}
	h.file = f
	return true
}

func (h *handle) StopAccess() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.file != nil {
		h.file.Close()
		h.file = nil
	}
}
