package domain

import (
	"github.com/allisson/workforce-sync/internal/errors"
)

// Person-specific error definitions.
var (
	// ErrPersonNotFound indicates no person exists for a source id.
	ErrPersonNotFound = errors.Wrap(errors.ErrNotFound, "person not found")

	// ErrDuplicateSourceID indicates a CREATE for a source id already on file.
	ErrDuplicateSourceID = errors.Wrap(errors.ErrConflict, "source id already exists")

	// ErrNationalIDTaken indicates the national id belongs to another source id.
	ErrNationalIDTaken = errors.Wrap(errors.ErrConflict, "national id belongs to another person")
)

// NaturalKey names a business key that must be unique across persons.
type NaturalKey string

const (
	KeyNationalID         NaturalKey = "national_id"
	KeySecondaryID        NaturalKey = "secondary_id"
	KeyRegistrationNumber NaturalKey = "registration_number"
	KeyLaborCard          NaturalKey = "labor_card"
)

// Valid reports whether k is one of the known keys.
func (k NaturalKey) Valid() bool {
	switch k {
	case KeyNationalID, KeySecondaryID, KeyRegistrationNumber, KeyLaborCard:
		return true
	}
	return false
}
