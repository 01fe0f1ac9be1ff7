package bulk

import (
	"time"

	"github.com/google/uuid"

	"github.com/kbukum/bulkflow/record"
)

// Batch is a group of entities submitted in one bulk request.
type Batch struct {
	// ID correlates the batch across logs and spans.
	ID string
	// Seq is the 0-based position of the batch in the run.
	Seq      int
	Entities []record.Entity
}

// NewBatch returns a batch with a fresh random ID.
func NewBatch(seq int, entities []record.Entity) Batch {
	return Batch{ID: uuid.NewString(), Seq: seq, Entities: entities}
}

// Len returns the number of entities in the batch.
func (b Batch) Len() int { return len(b.Entities) }

// Result describes one successful submission.
type Result struct {
	BatchID  string
	Seq      int
	Branch   int
	Endpoint string
	Entities int

	StatusCode int
	Body       []byte
	Duration   time.Duration

	// Items is the number of per-document results the endpoint reported.
	Items int
	// ItemErrors lists documents the endpoint accepted the request for but
	// failed to index.
	ItemErrors []ItemError
}

// ItemError is a per-document failure inside an otherwise successful bulk
// response.
type ItemError struct {
	Position int    `json:"position"`
	Status   int    `json:"status"`
	Type     string `json:"type"`
	Reason   string `json:"reason"`
}
