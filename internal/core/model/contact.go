package model

import (
	"fmt"
	"strings"
)

// ContactFields holds the nine fields extracted from a business card.
// Absent values are empty strings, never null.
type ContactFields struct {
	Name     string `json:"name"`
	Title    string `json:"title"`
	Company  string `json:"company"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Website  string `json:"website"`
	Address  string `json:"address"`
	LinkedIn string `json:"linkedin"`
	Notes    string `json:"notes"`
}

// FieldNames is the canonical field order used by the extraction schema
// and the CSV exporter.
var FieldNames = []string{
	"name", "title", "company", "email", "phone",
	"website", "address", "linkedin", "notes",
}

// Contact is one person record in the session collection. IDs are assigned
// at ingestion and never reused. IsEdited is set once a manual edit is
// committed and never reverts.
type Contact struct {
	ID string `json:"id"`
	ContactFields
	IsEdited bool `json:"isEdited"`
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (f ContactFields) Trimmed() ContactFields {
	return ContactFields{
		Name:     strings.TrimSpace(f.Name),
		Title:    strings.TrimSpace(f.Title),
		Company:  strings.TrimSpace(f.Company),
		Email:    strings.TrimSpace(f.Email),
		Phone:    strings.TrimSpace(f.Phone),
		Website:  strings.TrimSpace(f.Website),
		Address:  strings.TrimSpace(f.Address),
		LinkedIn: strings.TrimSpace(f.LinkedIn),
		Notes:    strings.TrimSpace(f.Notes),
	}
}

// CoerceFields turns a raw field map from the extraction endpoint into a
// strict ContactFields. This is the single boundary where loosely-typed
// external data enters the system: null, missing and non-string values all
// collapse to trimmed strings.
func CoerceFields(raw map[string]any) ContactFields {
	return ContactFields{
		Name:     coerce(raw["name"]),
		Title:    coerce(raw["title"]),
		Company:  coerce(raw["company"]),
		Email:    coerce(raw["email"]),
		Phone:    coerce(raw["phone"]),
		Website:  coerce(raw["website"]),
		Address:  coerce(raw["address"]),
		LinkedIn: coerce(raw["linkedin"]),
		Notes:    coerce(raw["notes"]),
	}
}

func coerce(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}
