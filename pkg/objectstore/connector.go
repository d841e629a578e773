package objectstore

import (
	"context"
	"errors"
	"sync"

	"github.com/taskmesh/taskmesh/pkg/ids"
)

// ErrObjectNotFound is returned by Connector.Get for an unknown or
// already-deleted ObjectID.
var ErrObjectNotFound = errors.New("objectstore: object not found")

// Connector is the content-addressed payload store the futures bridge
// and the task descriptor depend on. The real store and its wire
// protocol are out of scope; MemoryConnector below exists to let the
// rest of this module be tested against the contract.
type Connector interface {
	// Get fetches the payload stored under id. Returns ErrObjectNotFound
	// if id is unknown.
	Get(ctx context.Context, id ids.ObjectID) ([]byte, error)

	// Set stores payload under a fresh ObjectID and returns it.
	Set(ctx context.Context, payload []byte) (ids.ObjectID, error)

	// Delete removes id's payload. A no-op if id is unknown.
	Delete(ctx context.Context, id ids.ObjectID) error
}

// MemoryConnector is an in-process Connector backed by a map, for tests
// and local demos. It never evicts on its own; callers are expected to
// Delete objects once they're no longer needed, the same contract
// pkg/future relies on for non-graph results.
type MemoryConnector struct {
	mu      sync.Mutex
	objects map[ids.ObjectID][]byte
}

// NewMemoryConnector returns an empty MemoryConnector.
func NewMemoryConnector() *MemoryConnector {
	return &MemoryConnector{objects: make(map[ids.ObjectID][]byte)}
}

func (m *MemoryConnector) Get(_ context.Context, id ids.ObjectID) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	payload, ok := m.objects[id]
	if !ok {
		return nil, ErrObjectNotFound
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

func (m *MemoryConnector) Set(_ context.Context, payload []byte) (ids.ObjectID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := ids.NewObjectID()
	stored := make([]byte, len(payload))
	copy(stored, payload)
	m.objects[id] = stored
	return id, nil
}

func (m *MemoryConnector) Delete(_ context.Context, id ids.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.objects, id)
	return nil
}

var _ Connector = (*MemoryConnector)(nil)
