package models

import (
	"encoding/json"
	"math"
)

// NullFloat is a numeric result that may be undefined, e.g. a ratio whose
// denominator is zero. Undefined values encode as JSON null.
type NullFloat struct {
	Value float64
	Valid bool
}

func Float(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat{}
	}
	return NullFloat{Value: v, Valid: true}
}

func Undefined() NullFloat {
	return NullFloat{}
}

func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

func (n *NullFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Float(v)
	return nil
}

// MarshalYAML lets the report CLI print undefined values as null.
func (n NullFloat) MarshalYAML() (any, error) {
	if !n.Valid {
		return nil, nil
	}
	return n.Value, nil
}
