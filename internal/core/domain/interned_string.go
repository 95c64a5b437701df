package domain

import (
	"slices"
	"strings"
	"unique"
)

// InternedString wraps a unique.Handle[string] so task names compare by handle.
type InternedString struct {
	h unique.Handle[string]
}

// NewInternedString interns s.
func NewInternedString(s string) InternedString {
	return InternedString{h: unique.Make(s)}
}

// NewInternedStrings interns every element of ss, preserving order.
func NewInternedStrings(ss []string) []InternedString {
	if len(ss) == 0 {
		return nil
	}
	out := make([]InternedString, len(ss))
	for i, s := range ss {
		out[i] = NewInternedString(s)
	}
	return out
}

// String returns the interned value.
func (s InternedString) String() string {
	return s.h.Value()
}

// Value returns the underlying handle.
func (s InternedString) Value() unique.Handle[string] {
	return s.h
}

// IsZero reports whether s was never assigned.
func (s InternedString) IsZero() bool {
	return s == InternedString{}
}

// Compare orders two interned strings by their string value.
func (s InternedString) Compare(other InternedString) int {
	return strings.Compare(s.String(), other.String())
}

// SortInterned sorts names in place by value and returns them.
func SortInterned(names []InternedString) []InternedString {
	slices.SortFunc(names, func(a, b InternedString) int { return a.Compare(b) })
	return names
}

// MarshalText implements encoding.TextMarshaler.
func (s InternedString) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *InternedString) UnmarshalText(text []byte) error {
	*s = NewInternedString(string(text))
	return nil
}
