package database

import (
	"github.com/google/uuid"
)

// UUIDToBinary encodes id for BINARY(16) columns.
func UUIDToBinary(id uuid.UUID) []byte {
	b, _ := id.MarshalBinary()
	return b
}

// NullableUUIDToBinary encodes an optional id for BINARY(16) columns.
func NullableUUIDToBinary(id *uuid.UUID) any {
	if id == nil {
		return nil
	}
	return UUIDToBinary(*id)
}

// UUIDFromBinary decodes a BINARY(16) column. Empty input yields uuid.Nil.
func UUIDFromBinary(b []byte) (uuid.UUID, error) {
	if len(b) == 0 {
		return uuid.Nil, nil
	}
	return uuid.FromBytes(b)
}

// NullableUUIDFromBinary decodes an optional BINARY(16) column.
func NullableUUIDFromBinary(b []byte) (*uuid.UUID, error) {
	if b == nil {
		return nil, nil
	}
	id, err := uuid.FromBytes(b)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
