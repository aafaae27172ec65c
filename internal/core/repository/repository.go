// Package repository holds the canonical in-memory model of hardware and logical interfaces.
//
// The model is an immutable snapshot published through an atomic pointer. Readers load the
// pointer and never lock; writers serialize on a mutex, copy the snapshot, modify the copy
// and publish it.
package repository

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"netifmgr/internal/types"

	"github.com/google/uuid"
)

type snapshot struct {
	hardware    []types.HardwareInterface
	refreshedAt time.Time
}

// Repository is the sole owner of HardwareInterface and LogicInterface values.
type Repository struct {
	mu      sync.Mutex
	current atomic.Pointer[snapshot]
	newID   func() string
}

// New creates an empty repository.
func New() *Repository {
	r := &Repository{newID: uuid.NewString}
	r.current.Store(&snapshot{})
	return r
}

// ListHardwareInterfaces returns a deep copy of the current snapshot.
func (r *Repository) ListHardwareInterfaces() []types.HardwareInterface {
	return cloneAll(r.current.Load().hardware)
}

// RefreshedAt returns when the hardware set was last replaced; zero before the first refresh.
func (r *Repository) RefreshedAt() time.Time {
	return r.current.Load().refreshedAt
}

// Device returns one hardware interface.
func (r *Repository) Device(device string) (types.HardwareInterface, error) {
	for _, h := range r.current.Load().hardware {
		if h.Device == device {
			return h.Clone(), nil
		}
	}
	return types.HardwareInterface{}, &types.Error{Kind: types.KindNotFound, Op: "device", Field: "device", Value: device}
}

// GetLogicInterface looks a logical interface up by id.
func (r *Repository) GetLogicInterface(id string) (types.LogicInterface, error) {
	for _, h := range r.current.Load().hardware {
		for _, l := range h.LogicInterfaces {
			if l.ID == id {
				return l, nil
			}
		}
	}
	return types.LogicInterface{}, &types.Error{Kind: types.KindNotFound, Op: "get logic interface", Field: "id", Value: id}
}

// FindLogicInterfaceByName looks a logical interface up by its unique name.
func (r *Repository) FindLogicInterfaceByName(name string) (types.LogicInterface, error) {
	for _, h := range r.current.Load().hardware {
		for _, l := range h.LogicInterfaces {
			if l.Name == name {
				return l, nil
			}
		}
	}
	return types.LogicInterface{}, &types.Error{Kind: types.KindNotFound, Op: "find logic interface", Field: "name", Value: name}
}

// UpsertLogicInterface inserts entry under device, or replaces the entry with the same id.
// An empty id gets a fresh one. The stored value is returned.
func (r *Repository) UpsertLogicInterface(device string, entry types.LogicInterface) (types.LogicInterface, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.current.Load()
	hw := cloneAll(cur.hardware)

	owner := -1
	for i := range hw {
		if hw[i].Device == device {
			owner = i
			break
		}
	}
	if owner < 0 {
		return types.LogicInterface{}, &types.Error{Kind: types.KindNotFound, Op: "upsert logic interface", Device: device, Field: "device", Value: device}
	}
	if entry.Device != "" && entry.Device != device {
		return types.LogicInterface{}, &types.Error{Kind: types.KindConflict, Op: "upsert logic interface", Device: device, Field: "device", Value: entry.Device,
			Err: fmt.Errorf("entry belongs to %s", entry.Device)}
	}
	entry.Device = device

	// An existing id may only be updated in place on its own device.
	if entry.ID != "" {
		for i := range hw {
			for _, l := range hw[i].LogicInterfaces {
				if l.ID == entry.ID && i != owner {
					return types.LogicInterface{}, &types.Error{Kind: types.KindConflict, Op: "upsert logic interface", Device: device, Field: "id", Value: entry.ID,
						Err: fmt.Errorf("id is bound to %s", hw[i].Device)}
				}
			}
		}
	} else {
		entry.ID = r.newID()
	}

	if entry.Name != "" {
		for _, h := range hw {
			for _, l := range h.LogicInterfaces {
				if l.Name == entry.Name && l.ID != entry.ID {
					return types.LogicInterface{}, &types.Error{Kind: types.KindConflict, Op: "upsert logic interface", Device: device, Field: "name", Value: entry.Name,
						Err: fmt.Errorf("name is used on %s", h.Device)}
				}
			}
		}
	}

	replaced := false
	for i, l := range hw[owner].LogicInterfaces {
		if l.ID == entry.ID {
			hw[owner].LogicInterfaces[i] = entry
			replaced = true
			break
		}
	}
	if !replaced {
		hw[owner].LogicInterfaces = append(hw[owner].LogicInterfaces, entry)
	}

	r.current.Store(&snapshot{hardware: hw, refreshedAt: cur.refreshedAt})
	return entry, nil
}

// RemoveLogicInterface deletes the entry with id.
func (r *Repository) RemoveLogicInterface(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := r.current.Load()
	hw := cloneAll(cur.hardware)

	for i := range hw {
		for j, l := range hw[i].LogicInterfaces {
			if l.ID == id {
				hw[i].LogicInterfaces = append(hw[i].LogicInterfaces[:j], hw[i].LogicInterfaces[j+1:]...)
				r.current.Store(&snapshot{hardware: hw, refreshedAt: cur.refreshedAt})
				return nil
			}
		}
	}
	return &types.Error{Kind: types.KindNotFound, Op: "remove logic interface", Field: "id", Value: id}
}

// ReplaceHardwareSnapshot swaps the whole hardware set in one step. Entries without an id
// get one. Devices must be unique, every entry must reference its owner, and ids and
// names must be unique across the set; otherwise nothing is replaced.
func (r *Repository) ReplaceHardwareSnapshot(set []types.HardwareInterface) error {
	hw := cloneAll(set)

	devices := make(map[string]struct{}, len(hw))
	ids := make(map[string]struct{})
	names := make(map[string]struct{})
	for i := range hw {
		h := &hw[i]
		if _, dup := devices[h.Device]; dup {
			return &types.Error{Kind: types.KindConflict, Op: "replace snapshot", Device: h.Device, Field: "device", Value: h.Device}
		}
		devices[h.Device] = struct{}{}

		for j := range h.LogicInterfaces {
			l := &h.LogicInterfaces[j]
			if l.Device == "" {
				l.Device = h.Device
			}
			if l.Device != h.Device {
				return &types.Error{Kind: types.KindConflict, Op: "replace snapshot", Device: h.Device, Field: "device", Value: l.Device,
					Err: fmt.Errorf("logic interface %q references another device", l.Name)}
			}
			if l.ID == "" {
				l.ID = r.newID()
			}
			if _, dup := ids[l.ID]; dup {
				return &types.Error{Kind: types.KindConflict, Op: "replace snapshot", Device: h.Device, Field: "id", Value: l.ID}
			}
			ids[l.ID] = struct{}{}
			if l.Name != "" {
				if _, dup := names[l.Name]; dup {
					return &types.Error{Kind: types.KindConflict, Op: "replace snapshot", Device: h.Device, Field: "name", Value: l.Name}
				}
				names[l.Name] = struct{}{}
			}
		}
	}

	r.mu.Lock()
	r.current.Store(&snapshot{hardware: hw, refreshedAt: time.Now()})
	r.mu.Unlock()
	return nil
}

func cloneAll(in []types.HardwareInterface) []types.HardwareInterface {
	out := make([]types.HardwareInterface, len(in))
	for i, h := range in {
		out[i] = h.Clone()
	}
	return out
}
