package eventmodel

import (
	"fmt"
	"strings"
)

// Coordinate identifies a replaceable event by (kind, author, identifier),
// the same triple an "a" tag encodes as "kind:author:identifier".
type Coordinate struct {
	Kind       Kind
	Author     string
	Identifier string
}

func coordString(kind Kind, author, identifier string) string {
	return fmt.Sprintf("%d:%s:%s", int(kind), author, identifier)
}

// String renders the coordinate in "kind:author:identifier" form.
func (c Coordinate) String() string {
	return coordString(c.Kind, c.Author, c.Identifier)
}

// ParseCoordinate parses the value of an "a" tag into its three parts.
func ParseCoordinate(s string) (Coordinate, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 {
		return Coordinate{}, fe(-1, TagA, "expected kind:author:identifier")
	}
	var kind int
	if _, err := fmt.Sscanf(parts[0], "%d", &kind); err != nil {
		return Coordinate{}, fe(-1, TagA, "non-numeric kind")
	}
	if parts[1] == "" {
		return Coordinate{}, fe(-1, TagA, "missing author")
	}
	return Coordinate{Kind: Kind(kind), Author: parts[1], Identifier: parts[2]}, nil
}

// Coordinate returns the event's own (kind, author, d-tag) coordinate.
func (e *Event) Coordinate() Coordinate {
	return Coordinate{Kind: e.Kind, Author: e.PubKey, Identifier: e.DTag()}
}
