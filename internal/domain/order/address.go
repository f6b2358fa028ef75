package order

import "strings"

// Address is the shipping snapshot stored on an order.
type Address struct {
	FullName   string
	Line1      string
	Line2      string
	City       string
	State      string
	PostalCode string
	Country    string
}

var countryAliases = map[string]string{
	"USA":                      "US",
	"UNITED STATES":            "US",
	"UNITED STATES OF AMERICA": "US",
}

// Normalize trims every field and maps the country to an upper-case
// ISO 3166-1 alpha-2 code where a known alias is given.
func (a Address) Normalize() Address {
	n := Address{
		FullName:   strings.TrimSpace(a.FullName),
		Line1:      strings.TrimSpace(a.Line1),
		Line2:      strings.TrimSpace(a.Line2),
		City:       strings.TrimSpace(a.City),
		State:      strings.TrimSpace(a.State),
		PostalCode: strings.TrimSpace(a.PostalCode),
		Country:    strings.ToUpper(strings.TrimSpace(a.Country)),
	}
	if code, ok := countryAliases[n.Country]; ok {
		n.Country = code
	}
	return n
}

const (
	msgRequired    = "This field is required."
	msgCountryCode = "Must be a 2-letter country code."
)

// FieldErrors maps each invalid field to a message: blank required fields,
// and a country that is not a 2-letter code after normalization. Line2 and
// the recipient name are optional.
func (a Address) FieldErrors() map[string]string {
	problems := make(map[string]string)
	required := []struct {
		name  string
		value string
	}{
		{"line1", a.Line1},
		{"city", a.City},
		{"state", a.State},
		{"postal_code", a.PostalCode},
		{"country", a.Country},
	}
	for _, f := range required {
		if strings.TrimSpace(f.value) == "" {
			problems[f.name] = msgRequired
		}
	}
	if c := strings.TrimSpace(a.Country); c != "" && len(c) != 2 {
		problems["country"] = msgCountryCode
	}
	return problems
}

func (a Address) IsZero() bool { return a == Address{} }
