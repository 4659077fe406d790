package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
)

// Recognized attribute keys. Any other key is allowed.
const (
	AttrSource    = "source"
	AttrTier      = "tier"
	AttrLocalName = "local_name"
	AttrEstYear   = "est_year"
	AttrRating    = "rating"
	AttrSubtype   = "subtype"
	AttrSourceURL = "source_url"
)

// Attributes is the open additional_attributes JSONB mapping.
type Attributes map[string]any

// Get returns the value stored under key rendered as a string.
func (a Attributes) Get(key string) string {
	v, ok := a[key]
	if !ok || v == nil {
		return ""
	}
	if s, isString := v.(string); isString {
		return s
	}
	return fmt.Sprint(v)
}

// Source returns the contributing source name.
func (a Attributes) Source() string {
	return a.Get(AttrSource)
}

// Clone returns a shallow copy that can be mutated independently.
func (a Attributes) Clone() Attributes {
	out := make(Attributes, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Value implements driver.Valuer.
func (a Attributes) Value() (driver.Value, error) {
	if a == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]any(a))
	if err != nil {
		return nil, fmt.Errorf("marshal attributes: %w", err)
	}
	// lib/pq sends []byte as bytea; jsonb needs text.
	return string(b), nil
}

// Scan implements sql.Scanner.
func (a *Attributes) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*a = Attributes{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return errors.New("attributes: unsupported scan source")
	}

	m := make(map[string]any)
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("unmarshal attributes: %w", err)
	}
	*a = m
	return nil
}
