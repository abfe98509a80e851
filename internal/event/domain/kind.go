package domain

import (
	"encoding/json"
	"strings"

	"github.com/allisson/workforce-sync/internal/errors"
)

// MutationKind is the type of change carried by a ChangeEvent.
type MutationKind string

const (
	KindCreate MutationKind = "CREATE"
	KindUpdate MutationKind = "UPDATE"
	KindDelete MutationKind = "DELETE"
)

// ErrUnknownMutationKind is returned when an event type cannot be mapped to a kind.
var ErrUnknownMutationKind = errors.Wrap(errors.ErrInvalidInput, "unknown mutation kind")

// Regulatory type codes seen on the wire. Every termination family is a DELETE.
var typeCodes = map[string]MutationKind{
	"S-2300": KindCreate,
	"S-2306": KindCreate,
	"S-2400": KindUpdate,
	"S-2405": KindUpdate,
	"S-2410": KindUpdate,
	"S-2420": KindDelete,
	"S-3000": KindDelete,
}

// ParseMutationKind accepts either a kind name or one of the regulatory type codes.
func ParseMutationKind(raw string) (MutationKind, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	switch MutationKind(value) {
	case KindCreate, KindUpdate, KindDelete:
		return MutationKind(value), nil
	}
	if kind, ok := typeCodes[value]; ok {
		return kind, nil
	}
	return "", errors.Wrapf(ErrUnknownMutationKind, "%q", raw)
}

// UnmarshalJSON normalizes type codes into kinds.
func (k *MutationKind) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind, err := ParseMutationKind(raw)
	if err != nil {
		return err
	}
	*k = kind
	return nil
}
