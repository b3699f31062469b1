// Package fieldmap translates extraction field names into farm form fields,
// applying per-field type coercions. Mapping failures are never swallowed:
// every input field yields either a mapped value or a drop with a reason the
// caller can surface.
package fieldmap

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind selects the coercion applied to a field's raw string value.
type Kind string

const (
	KindText   Kind = "text"
	KindNumber Kind = "number"
	KindList   Kind = "list"
	KindEmail  Kind = "email"
)

// Rule maps one extraction field name to its destination form field.
type Rule struct {
	Target    string `yaml:"target"`
	Kind      Kind   `yaml:"kind"`
	Delimiter string `yaml:"delimiter,omitempty"`
}

// Dictionary is the lookup table from extraction field names to rules.
type Dictionary map[string]Rule

// DropReason explains why a field was excluded from the mapped output.
type DropReason string

const (
	DropUnknownField DropReason = "unknown_field"
	DropEmptyValue   DropReason = "empty_value"
	DropNotANumber   DropReason = "not_a_number"
	DropNonPositive  DropReason = "non_positive"
	DropInvalidEmail DropReason = "invalid_email"
)

// MappedField is a successfully coerced output field.
type MappedField struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// DroppedField reports a field excluded from the output, with its reason.
type DroppedField struct {
	Key    string     `json:"key"`
	Reason DropReason `json:"reason"`
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Default returns the built-in extraction-name to farm-field table.
func Default() Dictionary {
	return Dictionary{
		"farmName":          {Target: "name", Kind: KindText},
		"ownerName":         {Target: "owner_name", Kind: KindText},
		"address":           {Target: "address", Kind: KindText},
		"region":            {Target: "region", Kind: KindText},
		"legalStatus":       {Target: "legal_status", Kind: KindText},
		"totalHectares":     {Target: "total_hectares", Kind: KindNumber},
		"irrigatedHectares": {Target: "irrigated_hectares", Kind: KindNumber},
		"livestockCount":    {Target: "livestock_count", Kind: KindNumber},
		"landUseTypes":      {Target: "land_use_types", Kind: KindList, Delimiter: ","},
		"certifications":    {Target: "certifications", Kind: KindList, Delimiter: ","},
		"contactEmail":      {Target: "contact_email", Kind: KindEmail},
		"phone":             {Target: "phone", Kind: KindText},
	}
}

// MapField applies the dictionary to a single field. Exactly one of the
// returned values is meaningful: ok reports which.
func (d Dictionary) MapField(name, raw string) (MappedField, DroppedField, bool) {
	rule, known := d[name]
	if !known {
		return MappedField{}, DroppedField{Key: name, Reason: DropUnknownField}, false
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return MappedField{}, DroppedField{Key: name, Reason: DropEmptyValue}, false
	}

	switch rule.Kind {
	case KindNumber:
		n, err := strconv.ParseFloat(value, 64)
		// ParseFloat accepts literal "NaN" and "Inf"; both belong under
		// the not-a-number reason.
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return MappedField{}, DroppedField{Key: name, Reason: DropNotANumber}, false
		}
		if n <= 0 {
			return MappedField{}, DroppedField{Key: name, Reason: DropNonPositive}, false
		}
		return MappedField{Key: rule.Target, Value: n}, DroppedField{}, true

	case KindList:
		delim := rule.Delimiter
		if delim == "" {
			delim = ","
		}
		parts := strings.Split(value, delim)
		items := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				items = append(items, trimmed)
			}
		}
		if len(items) == 0 {
			return MappedField{}, DroppedField{Key: name, Reason: DropEmptyValue}, false
		}
		return MappedField{Key: rule.Target, Value: items}, DroppedField{}, true

	case KindEmail:
		if !emailPattern.MatchString(value) {
			return MappedField{}, DroppedField{Key: name, Reason: DropInvalidEmail}, false
		}
		return MappedField{Key: rule.Target, Value: value}, DroppedField{}, true

	default:
		return MappedField{Key: rule.Target, Value: value}, DroppedField{}, true
	}
}

// Apply maps a whole field set. Output order follows no particular order;
// callers needing determinism should sort on Key.
func (d Dictionary) Apply(fields map[string]string) ([]MappedField, []DroppedField) {
	var mapped []MappedField
	var dropped []DroppedField
	for name, raw := range fields {
		m, dr, ok := d.MapField(name, raw)
		if ok {
			mapped = append(mapped, m)
		} else {
			dropped = append(dropped, dr)
		}
	}
	return mapped, dropped
}

// Validate checks a dictionary loaded from configuration.
func (d Dictionary) Validate() error {
	for name, rule := range d {
		if rule.Target == "" {
			return fmt.Errorf("field %q: target is required", name)
		}
		switch rule.Kind {
		case KindText, KindNumber, KindList, KindEmail:
		default:
			return fmt.Errorf("field %q: unknown kind %q", name, rule.Kind)
		}
	}
	return nil
}
