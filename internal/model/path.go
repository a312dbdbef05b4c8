package model

import (
	"slices"
	"strconv"
	"strings"
)

// Path is the coordinate of a node in the root's locally computed spanning
// tree, as reported by the daemon's lookup table. The root has an empty path.
type Path []uint64

// Parent returns the path with its last element removed.
// The parent of the root is the root itself.
func (p Path) Parent() Path {
	if len(p) == 0 {
		return Path{}
	}
	return slices.Clone(p[:len(p)-1])
}

// IsRoot reports whether p is the empty root path.
func (p Path) IsRoot() bool {
	return len(p) == 0
}

// Equal reports whether p and other hold the same coordinates.
func (p Path) Equal(other Path) bool {
	return slices.Equal(p, other)
}

// Compare orders paths lexicographically, shorter prefixes first.
func (p Path) Compare(other Path) int {
	return slices.Compare(p, other)
}

// MapKey returns a string usable as a map key for this path.
// Slices are not comparable, so maps keyed by path use this form.
func (p Path) MapKey() string {
	return p.String()
}

// String formats the path as "[0 1 2]".
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, v := range p {
		parts[i] = strconv.FormatUint(v, 10)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
