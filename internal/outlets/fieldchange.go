package outlets

import (
	"encoding/json"
	"fmt"
	"strings"

	"walkin/internal/shared/apperr"
)

// FieldName identifies an outlet field that may be changed after approval
type FieldName string

const (
	FieldNameName                  FieldName = "name"
	FieldDefaultReservationPercent FieldName = "default_reservation_percent"
	FieldQueueEnabled              FieldName = "queue_enabled"
	FieldMaxPartySize              FieldName = "max_party_size"
)

// FieldChange is one typed outlet field update. The concrete types below are the only variants.
type FieldChange interface {
	Field() FieldName
	validate() error
}

type NameChange struct{ Value string }

type DefaultReservationPercentChange struct{ Value int }

type QueueEnabledChange struct{ Value bool }

type MaxPartySizeChange struct{ Value int }

func (NameChange) Field() FieldName                      { return FieldNameName }
func (DefaultReservationPercentChange) Field() FieldName { return FieldDefaultReservationPercent }
func (QueueEnabledChange) Field() FieldName              { return FieldQueueEnabled }
func (MaxPartySizeChange) Field() FieldName              { return FieldMaxPartySize }

func (c NameChange) validate() error {
	if strings.TrimSpace(c.Value) == "" {
		return fmt.Errorf("name must not be empty: %w", apperr.ErrInvalidInput)
	}
	return nil
}

func (c DefaultReservationPercentChange) validate() error {
	if c.Value < 0 || c.Value > 100 {
		return fmt.Errorf("reservation percent %d outside 0..100: %w", c.Value, apperr.ErrInvalidInput)
	}
	return nil
}

func (QueueEnabledChange) validate() error { return nil }

func (c MaxPartySizeChange) validate() error {
	if c.Value < 1 {
		return fmt.Errorf("max party size %d must be positive: %w", c.Value, apperr.ErrInvalidInput)
	}
	return nil
}

// ParseFieldChange decodes a raw JSON value for the named field into its typed variant
func ParseFieldChange(field string, raw json.RawMessage) (FieldChange, error) {
	var (
		change FieldChange
		err    error
	)

	switch FieldName(field) {
	case FieldNameName:
		var v string
		err = json.Unmarshal(raw, &v)
		change = NameChange{Value: v}
	case FieldDefaultReservationPercent:
		var v int
		err = json.Unmarshal(raw, &v)
		change = DefaultReservationPercentChange{Value: v}
	case FieldQueueEnabled:
		var v bool
		err = json.Unmarshal(raw, &v)
		change = QueueEnabledChange{Value: v}
	case FieldMaxPartySize:
		var v int
		err = json.Unmarshal(raw, &v)
		change = MaxPartySizeChange{Value: v}
	default:
		return nil, fmt.Errorf("unknown outlet field %q: %w", field, apperr.ErrInvalidInput)
	}

	if err != nil {
		return nil, fmt.Errorf("invalid value for %s: %v: %w", field, err, apperr.ErrInvalidInput)
	}
	if err := change.validate(); err != nil {
		return nil, err
	}
	return change, nil
}

// columnUpdate maps a change onto the column update the repository applies
func columnUpdate(change FieldChange) (map[string]interface{}, error) {
	switch c := change.(type) {
	case NameChange:
		return map[string]interface{}{"name": strings.TrimSpace(c.Value)}, nil
	case DefaultReservationPercentChange:
		return map[string]interface{}{"default_reservation_percent": c.Value}, nil
	case QueueEnabledChange:
		return map[string]interface{}{"queue_enabled": c.Value}, nil
	case MaxPartySizeChange:
		return map[string]interface{}{"max_party_size": c.Value}, nil
	default:
		return nil, fmt.Errorf("unsupported field change %T: %w", change, apperr.ErrInvalidInput)
	}
}
