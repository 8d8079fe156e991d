package models

import (
	"sort"
	"strings"
	"unicode"
)

// FormSubmission is the raw field set posted by the browser.
type FormSubmission map[string]string

// Get returns the trimmed value of key, or "" when absent.
func (s FormSubmission) Get(key string) string {
	return strings.TrimSpace(s[key])
}

// LabeledValue is one "Label: value" line of a certificate body.
type LabeledValue struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// FieldSet is the typed view of a submission for a single document type.
type FieldSet interface {
	DocumentType() DocumentType
	// Labeled returns the body lines in print order.
	Labeled() []LabeledValue
	// FullName is used in the closing text and logs.
	FullName() string
}

type ClearanceFields struct {
	FirstName  string
	MiddleName string
	LastName   string
	Address    string
	Purpose    string
}

func (f ClearanceFields) DocumentType() DocumentType { return BarangayClearance }

func (f ClearanceFields) Labeled() []LabeledValue {
	return []LabeledValue{
		{Name: "first_name", Label: "First Name", Value: f.FirstName},
		{Name: "middle_name", Label: "Middle Name", Value: f.MiddleName},
		{Name: "last_name", Label: "Last Name", Value: f.LastName},
		{Name: "address", Label: "Address", Value: f.Address},
		{Name: "purpose", Label: "Purpose", Value: f.Purpose},
	}
}

func (f ClearanceFields) FullName() string {
	return joinName(f.FirstName, f.MiddleName, f.LastName)
}

type ResidenceFields struct {
	FirstName        string
	MiddleName       string
	LastName         string
	Address          string
	YearsOfResidence string
	Purpose          string
}

func (f ResidenceFields) DocumentType() DocumentType { return ResidenceCertification }

func (f ResidenceFields) Labeled() []LabeledValue {
	return []LabeledValue{
		{Name: "first_name", Label: "First Name", Value: f.FirstName},
		{Name: "middle_name", Label: "Middle Name", Value: f.MiddleName},
		{Name: "last_name", Label: "Last Name", Value: f.LastName},
		{Name: "address", Label: "Address", Value: f.Address},
		{Name: "years_of_residence", Label: "Years of Residence", Value: f.YearsOfResidence},
		{Name: "purpose", Label: "Purpose", Value: f.Purpose},
	}
}

func (f ResidenceFields) FullName() string {
	return joinName(f.FirstName, f.MiddleName, f.LastName)
}

// IndigencyFields has an open schema: every posted field is printed.
type IndigencyFields struct {
	Entries []LabeledValue
}

func (f IndigencyFields) DocumentType() DocumentType { return Indigency }

func (f IndigencyFields) Labeled() []LabeledValue { return f.Entries }

func (f IndigencyFields) FullName() string {
	var first, middle, last string
	for _, e := range f.Entries {
		switch e.Name {
		case "first_name":
			first = e.Value
		case "middle_name":
			middle = e.Value
		case "last_name":
			last = e.Value
		}
	}
	return joinName(first, middle, last)
}

// Bind converts a raw submission into the typed field set for t.
// Missing keys bind to the empty string.
func Bind(t DocumentType, s FormSubmission) FieldSet {
	switch t {
	case ResidenceCertification:
		return ResidenceFields{
			FirstName:        s.Get("first_name"),
			MiddleName:       s.Get("middle_name"),
			LastName:         s.Get("last_name"),
			Address:          s.Get("address"),
			YearsOfResidence: s.Get("years_of_residence"),
			Purpose:          s.Get("purpose"),
		}
	case Indigency:
		return IndigencyFields{Entries: openEntries(s)}
	default:
		return ClearanceFields{
			FirstName:  s.Get("first_name"),
			MiddleName: s.Get("middle_name"),
			LastName:   s.Get("last_name"),
			Address:    s.Get("address"),
			Purpose:    s.Get("purpose"),
		}
	}
}

// ControlFields are posted by the forms but never printed.
var ControlFields = map[string]bool{
	"document_type": true,
	"csrf_token":    true,
	"submit":        true,
}

var knownOrder = map[string]int{
	"first_name":  0,
	"middle_name": 1,
	"last_name":   2,
	"address":     3,
	"purpose":     100,
}

// openEntries orders the known name/address fields first, purpose last and
// everything else alphabetically in between.
func openEntries(s FormSubmission) []LabeledValue {
	names := make([]string, 0, len(s))
	for k := range s {
		if !ControlFields[k] {
			names = append(names, k)
		}
	}
	rank := func(n string) int {
		if r, ok := knownOrder[n]; ok {
			return r
		}
		return 50
	}
	sort.Slice(names, func(i, j int) bool {
		ri, rj := rank(names[i]), rank(names[j])
		if ri != rj {
			return ri < rj
		}
		return names[i] < names[j]
	})
	out := make([]LabeledValue, 0, len(names))
	for _, n := range names {
		out = append(out, LabeledValue{Name: n, Label: LabelFor(n), Value: s.Get(n)})
	}
	return out
}

// LabelFor turns a form field name into a printable label: "monthly_income" → "Monthly Income".
func LabelFor(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func joinName(parts ...string) string {
	nonEmpty := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}
