package model

import (
	"bytes"
	"errors"
	"math/big"

	"golang.org/x/crypto/sha3"
)

// NodeID is the numeric identity of a node in an exported graph.
// Keys are 256-bit integers, so the value is kept as decimal digits and
// written to JSON as a bare number rather than a float64.
type NodeID string

// KeyID derives a NodeID by reading the key as a base-16 integer.
// The mapping is injective over valid keys.
func KeyID(key Key) NodeID {
	n, ok := new(big.Int).SetString(string(key), 16)
	if !ok {
		return hashID([]byte(key))
	}
	return NodeID(n.String())
}

// PlaceholderID derives a NodeID for a node without a usable key from a
// SHA3-256 digest over its address, key, name and path.
func PlaceholderID(address string, key Key, name string, path Path) NodeID {
	var buf bytes.Buffer
	buf.WriteString(address)
	buf.WriteByte(0)
	buf.WriteString(string(key))
	buf.WriteByte(0)
	buf.WriteString(name)
	buf.WriteByte(0)
	buf.WriteString(path.String())
	return hashID(buf.Bytes())
}

func hashID(data []byte) NodeID {
	sum := sha3.Sum256(data)
	return NodeID(new(big.Int).SetBytes(sum[:]).String())
}

// String returns the decimal representation.
func (id NodeID) String() string {
	return string(id)
}

// MarshalJSON writes the id as a JSON number.
func (id NodeID) MarshalJSON() ([]byte, error) {
	if id == "" {
		return nil, errors.New("empty node id")
	}
	return []byte(id), nil
}

// UnmarshalJSON reads a JSON number into the id.
func (id *NodeID) UnmarshalJSON(data []byte) error {
	n, ok := new(big.Int).SetString(string(data), 10)
	if !ok {
		return errors.New("node id is not an integer")
	}
	*id = NodeID(n.String())
	return nil
}
