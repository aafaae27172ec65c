// Package ethtool provides the link carrier adapter implementation.
package ethtool

import (
	"fmt"
	"sync"

	"netifmgr/internal/port"

	"github.com/safchain/ethtool"
)

// InspectorAdapter implements the LinkInspector port using safchain/ethtool.
// The ethtool socket is opened lazily and reused.
type InspectorAdapter struct {
	mu     sync.Mutex
	handle *ethtool.Ethtool
}

// Ensure InspectorAdapter implements the LinkInspector port
var _ port.LinkInspector = (*InspectorAdapter)(nil)

// NewInspectorAdapter creates a new link inspector adapter.
func NewInspectorAdapter() *InspectorAdapter {
	return &InspectorAdapter{}
}

// Carrier returns true when ETHTOOL_GLINK reports link.
func (i *InspectorAdapter) Carrier(device string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.handle == nil {
		h, err := ethtool.NewEthtool()
		if err != nil {
			return false, fmt.Errorf("failed to open ethtool handle: %w", err)
		}
		i.handle = h
	}

	state, err := i.handle.LinkState(device)
	if err != nil {
		return false, fmt.Errorf("failed to read link state of %s: %w", device, err)
	}
	return state == 1, nil
}

// Close releases the ethtool socket.
func (i *InspectorAdapter) Close() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.handle != nil {
		i.handle.Close()
		i.handle = nil
	}
}
