package domain

import "strings"

// RawRecord is an adapter's unvalidated candidate institution. Coordinates
// may arrive as text in LatitudeText/LongitudeText; the normalizer parses
// them into Latitude/Longitude.
type RawRecord struct {
	Name          string
	Type          InstitutionType
	Country       string
	State         string
	City          string
	Address       string
	Website       string
	Latitude      *float64
	Longitude     *float64
	LatitudeText  string
	LongitudeText string
	Attributes    Attributes
}

// SetAttr stores an attribute, allocating the map on first use.
func (r *RawRecord) SetAttr(key string, value any) {
	if r.Attributes == nil {
		r.Attributes = Attributes{}
	}
	r.Attributes[key] = value
}

// Institution converts the record into its persisted shape. Empty optional
// strings become NULL.
func (r *RawRecord) Institution() Institution {
	return Institution{
		Name:       r.Name,
		Type:       r.Type,
		Country:    r.Country,
		State:      optional(r.State),
		City:       optional(r.City),
		Address:    optional(r.Address),
		Website:    optional(r.Website),
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
		Attributes: r.Attributes,
	}
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// Float is a convenience for building coordinate pointers.
func Float(f float64) *float64 {
	return &f
}
