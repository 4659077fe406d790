// Package domain defines the institution records that flow through the pipeline.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidRecord is returned when a record cannot be persisted.
var ErrInvalidRecord = errors.New("invalid institution record")

// InstitutionType classifies an institution.
type InstitutionType string

const (
	TypeHospital              InstitutionType = "hospital"
	TypeClinic                InstitutionType = "clinic"
	TypeMedicalSchool         InstitutionType = "medical_school"
	TypeVeterinarySchool      InstitutionType = "veterinary_school"
	TypeAcademicMedicalCenter InstitutionType = "academic_medical_center"
	TypeOther                 InstitutionType = "other"
)

// InstitutionTypes lists every valid type in schema order.
var InstitutionTypes = []InstitutionType{
	TypeHospital,
	TypeClinic,
	TypeMedicalSchool,
	TypeVeterinarySchool,
	TypeAcademicMedicalCenter,
	TypeOther,
}

// Valid reports whether t is one of the known types.
func (t InstitutionType) Valid() bool {
	for _, known := range InstitutionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseInstitutionType maps free text onto a type. Unknown values become TypeOther.
func ParseInstitutionType(s string) InstitutionType {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)

	switch key {
	case "vet_school", "veterinary_college":
		return TypeVeterinarySchool
	case "medical_college", "med_school":
		return TypeMedicalSchool
	case "amc", "teaching_hospital":
		return TypeAcademicMedicalCenter
	}
	if t := InstitutionType(key); t.Valid() {
		return t
	}
	return TypeOther
}

// Coordinate bounds.
const (
	MaxLatitude  = 90.0
	MaxLongitude = 180.0
)

// Institution is a persisted row of the institutions table.
type Institution struct {
	ID          int64           `db:"id"`
	Name        string          `db:"name"`
	Type        InstitutionType `db:"type"`
	Country     string          `db:"country"`
	State       *string         `db:"state"`
	City        *string         `db:"city"`
	Address     *string         `db:"address"`
	Website     *string         `db:"website"`
	Latitude    *float64        `db:"latitude"`
	Longitude   *float64        `db:"longitude"`
	Attributes  Attributes      `db:"additional_attributes"`
	LastUpdated time.Time       `db:"last_updated"`
}

// Validate checks the persistence invariants against the run's target country.
func (i *Institution) Validate(country string) error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidRecord)
	}
	if !i.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidRecord, i.Type)
	}
	if i.Country != country {
		return fmt.Errorf("%w: country %q does not match run country %q", ErrInvalidRecord, i.Country, country)
	}
	if i.Latitude != nil && (*i.Latitude < -MaxLatitude || *i.Latitude > MaxLatitude) {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidRecord, *i.Latitude)
	}
	if i.Longitude != nil && (*i.Longitude < -MaxLongitude || *i.Longitude > MaxLongitude) {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidRecord, *i.Longitude)
	}
	if i.Attributes.Source() == "" {
		return fmt.Errorf("%w: source attribute is required", ErrInvalidRecord)
	}
	return nil
}

// DedupCandidate is the projection the deduplicator compares.
type DedupCandidate struct {
	ID      int64  `db:"id"`
	Name    string `db:"name"`
	Address string `db:"address"`
}
