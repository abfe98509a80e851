// Package dto provides data transfer objects for the dead letter HTTP API.
package dto

import (
	"encoding/json"

	validation "github.com/jellydator/validation"
)

// ReprocessRequest optionally carries an edited payload that replaces the stored one.
type ReprocessRequest struct {
	Payload json.RawMessage `json:"payload"`
}

// Validate checks that an edited payload, when given, is a JSON object.
func (r *ReprocessRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Payload, validation.By(validateJSONObject)),
	)
}

func validateJSONObject(value interface{}) error {
	raw, _ := value.(json.RawMessage)
	if len(raw) == 0 {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return validation.NewError("validation_json_object", "must be a JSON object")
	}
	return nil
}
