// Package specs decides SKU identity: two items in the same
// warehouse+category are the same SKU iff their attribute value sets
// match exactly.
package specs

import (
	"fmt"

	"litewms/internal/models"
)

// SameSpec reports whether a and b hold the same attribute values.
// Keys are compared as sets (order-independent) and values with exact,
// case-sensitive string equality.
func SameSpec(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok || av != bv {
			return false
		}
	}
	return true
}

// Validate checks an item's specs against its category schema: every
// key must name a category attribute, and when the attribute declares
// options the value must be one of them. An attribute with no options
// accepts any value.
func Validate(cat *models.Category, sp map[string]string) error {
	defs := make(map[string][]string, len(cat.Attributes))
	for _, def := range cat.Attributes {
		defs[def.Name] = def.Options
	}

	for name, value := range sp {
		options, ok := defs[name]
		if !ok {
			return fmt.Errorf("attribute %q is not defined on category %q: %w",
				name, cat.Name, models.ErrAttributeMismatch)
		}
		if len(options) == 0 {
			continue
		}
		found := false
		for _, opt := range options {
			if opt == value {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("value %q is not an option of attribute %q: %w",
				value, name, models.ErrAttributeMismatch)
		}
	}
	return nil
}
