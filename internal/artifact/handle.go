package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrReleased is returned when a released handle is read.
var ErrReleased = errors.New("artifact handle released")

// Stats summarizes registry activity.
type Stats struct {
	Created  uint64
	Released uint64
	Live     int
}

// Registry tracks live handles.
type Registry struct {
	mu       sync.Mutex
	next     uint64
	live     map[uint64]*Handle
	created  uint64
	released uint64
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{live: make(map[uint64]*Handle)}
}

// Create registers a handle over data. The registry takes ownership of data.
func (r *Registry) Create(data []byte, contentType, name string) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	r.created++
	h := &Handle{
		id:          r.next,
		registry:    r,
		data:        data,
		size:        len(data),
		contentType: contentType,
		name:        name,
	}
	r.live[h.id] = h
	return h
}

// Stats returns a snapshot of creation and release counters.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Stats{Created: r.created, Released: r.released, Live: len(r.live)}
}

// Live reports how many handles are still held.
func (r *Registry) Live() int {
	return r.Stats().Live
}

// ReleaseAll releases every live handle and returns how many were released.
func (r *Registry) ReleaseAll() int {
	r.mu.Lock()
	handles := make([]*Handle, 0, len(r.live))
	for _, h := range r.live {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	count := 0
	for _, h := range handles {
		if h.Release() {
			count++
		}
	}
	return count
}

func (r *Registry) forget(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.live[id]; ok {
		delete(r.live, id)
		r.released++
	}
}

// Handle is a revocable reference to downloaded bytes.
type Handle struct {
	id          uint64
	registry    *Registry
	size        int
	contentType string
	name        string

	mu       sync.Mutex
	data     []byte
	released bool
}

// URL returns an opaque identifier for the handle, in the spirit of a blob URL.
func (h *Handle) URL() string {
	return fmt.Sprintf("blob:mediaconv/%d", h.id)
}

// Name is the suggested file name for saving.
func (h *Handle) Name() string { return h.name }

// ContentType is the MIME type reported by the server.
func (h *Handle) ContentType() string { return h.contentType }

// Size is the byte length captured at creation.
func (h *Handle) Size() int { return h.size }

// Bytes returns the held data.
func (h *Handle) Bytes() ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.released {
		return nil, ErrReleased
	}
	return h.data, nil
}

// Reader returns a reader over the held data.
func (h *Handle) Reader() (io.Reader, error) {
	data, err := h.Bytes()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(data), nil
}

// SaveTo writes the data into dir using name (or the handle name when empty)
// and returns the path written.
func (h *Handle) SaveTo(dir, name string) (string, error) {
	data, err := h.Bytes()
	if err != nil {
		return "", err
	}
	if name == "" {
		name = h.name
	}
	return SaveFile(dir, name, data)
}

// Release drops the data and reports whether this call did the release.
// Later calls are no-ops.
func (h *Handle) Release() bool {
	h.mu.Lock()
	if h.released {
		h.mu.Unlock()
		return false
	}
	h.released = true
	h.data = nil
	h.mu.Unlock()

	if h.registry != nil {
		h.registry.forget(h.id)
	}
	return true
}

// Released reports whether the handle has been released.
func (h *Handle) Released() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.released
}
