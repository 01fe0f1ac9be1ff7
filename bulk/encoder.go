package bulk

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kbukum/bulkflow/record"
)

// Bulk payload defaults.
const (
	DefaultIndex = "vikings"
	DefaultType  = "vikings"
	ContentType  = "application/x-ndjson"
)

// Encoder writes bulk payloads for one index and document type.
type Encoder struct {
	Index string
	Type  string
}

// NewEncoder returns an Encoder, using the defaults for empty names.
func NewEncoder(index, docType string) Encoder {
	if index == "" {
		index = DefaultIndex
	}
	if docType == "" {
		docType = DefaultType
	}
	return Encoder{Index: index, Type: docType}
}

type actionLine struct {
	Index actionMeta `json:"index"`
}

type actionMeta struct {
	Index string `json:"_index"`
	Type  string `json:"_type"`
}

// Encode writes the action and document line of every entity to w. Every
// line, including the last, ends with a newline.
func (e Encoder) Encode(w io.Writer, entities []record.Entity) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	action := actionLine{Index: actionMeta{Index: e.Index, Type: e.Type}}
	for i, entity := range entities {
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("encode action %d: %w", i, err)
		}
		if err := enc.Encode(entity); err != nil {
			return fmt.Errorf("encode entity %d: %w", i, err)
		}
	}
	return nil
}

// Payload returns the encoded payload for entities.
func (e Encoder) Payload(entities []record.Entity) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(entities) * 96)
	if err := e.Encode(&buf, entities); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
