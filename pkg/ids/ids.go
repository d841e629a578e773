// Package ids defines the opaque, fixed-width identifiers shared across
// the scheduler core: task, worker and object identifiers.
package ids

import (
	"encoding/hex"

	"github.com/google/uuid"
)

const byteLen = 16

// TaskID identifies a single submitted unit of work.
type TaskID [byteLen]byte

// WorkerID identifies a worker process known to the scheduler.
type WorkerID [byteLen]byte

// ObjectID identifies a payload stored in the content-addressed object store.
type ObjectID [byteLen]byte

// InvalidTaskID is the sentinel value distinct from every valid TaskID.
var InvalidTaskID = TaskID{}

// InvalidWorkerID is the sentinel value distinct from every valid WorkerID.
var InvalidWorkerID = WorkerID{}

// InvalidObjectID is the sentinel value distinct from every valid ObjectID.
var InvalidObjectID = ObjectID{}

// NewTaskID generates a fresh, non-sentinel TaskID.
func NewTaskID() TaskID { return TaskID(uuid.New()) }

// NewWorkerID generates a fresh, non-sentinel WorkerID.
func NewWorkerID() WorkerID { return WorkerID(uuid.New()) }

// NewObjectID generates a fresh, non-sentinel ObjectID.
func NewObjectID() ObjectID { return ObjectID(uuid.New()) }

// IsValid reports whether id is not the invalid sentinel.
func (id TaskID) IsValid() bool { return id != InvalidTaskID }

// IsValid reports whether id is not the invalid sentinel.
func (id WorkerID) IsValid() bool { return id != InvalidWorkerID }

// IsValid reports whether id is not the invalid sentinel.
func (id ObjectID) IsValid() bool { return id != InvalidObjectID }

func (id TaskID) String() string   { return hex.EncodeToString(id[:]) }
func (id WorkerID) String() string { return hex.EncodeToString(id[:]) }
func (id ObjectID) String() string { return hex.EncodeToString(id[:]) }

// Less gives the deterministic byte-wise ordering used by the allocator's
// tie-breaking rules (lowest worker_id wins ties).
func (id WorkerID) Less(other WorkerID) bool {
	for i := range id {
		if id[i] != other[i] {
			return id[i] < other[i]
		}
	}
	return false
}
