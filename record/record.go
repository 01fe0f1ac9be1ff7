// Package record turns raw delimited frames into entities.
package record

import (
	"bytes"
)

// DefaultSeparator splits a frame into fields.
const DefaultSeparator = ";"

// Entity is one named place read from the input.
type Entity struct {
	Name  string `json:"name"`
	Place string `json:"place"`
}

// Parse splits raw on sep and builds an Entity from the first and last
// fields. Frames with fewer than two fields are not entities and report false.
// A trailing carriage return is ignored.
func Parse(raw []byte, sep string) (Entity, bool) {
	if sep == "" {
		sep = DefaultSeparator
	}
	raw = bytes.TrimRight(raw, "\r")
	fields := bytes.Split(raw, []byte(sep))
	if len(fields) < 2 {
		return Entity{}, false
	}
	return Entity{
		Name:  string(fields[0]),
		Place: string(fields[len(fields)-1]),
	}, true
}

// Mapper returns Parse bound to sep, in the shape pipeline.FilterMap expects.
func Mapper(sep string) func([]byte) (Entity, bool) {
	return func(raw []byte) (Entity, bool) {
		return Parse(raw, sep)
	}
}
