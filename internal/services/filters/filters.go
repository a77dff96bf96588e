// Package filters holds the per-ticker predicates evaluated over a window.
package filters

import (
	"fmt"
	"strings"

	"ScreenerView/internal/domain/models"
)

// Filter passes or rejects one ticker from its recent window.
type Filter interface {
	Name() string
	Pass(window []models.Record) bool
}

type unconditional struct{}

// Unconditional always passes.
func Unconditional() Filter { return unconditional{} }

func (unconditional) Name() string                { return "all" }
func (unconditional) Pass(_ []models.Record) bool { return true }

type anyNonBlank struct{ field string }

// AnyNonBlank passes when some record has a non-blank field.
func AnyNonBlank(field string) Filter { return anyNonBlank{field: field} }

func (f anyNonBlank) Name() string { return fmt.Sprintf("%s:any", f.field) }

func (f anyNonBlank) Pass(window []models.Record) bool {
	for _, r := range window {
		if r.Text(f.field) != "" {
			return true
		}
	}
	return false
}

type exactMatch struct{ field, value string }

// ExactMatch passes when some record has field equal to value, both trimmed.
func ExactMatch(field, value string) Filter {
	return exactMatch{field: field, value: strings.TrimSpace(value)}
}

func (f exactMatch) Name() string { return fmt.Sprintf("%s=%s", f.field, f.value) }

func (f exactMatch) Pass(window []models.Record) bool {
	if f.value == "" {
		return false
	}
	for _, r := range window {
		if r.Text(f.field) == f.value {
			return true
		}
	}
	return false
}

type booleanPresence struct {
	field    string
	wantTrue bool
}

// BooleanPresence passes when some record is truthy on field (wantTrue) or
// when none is (!wantTrue).
func BooleanPresence(field string, wantTrue bool) Filter {
	return booleanPresence{field: field, wantTrue: wantTrue}
}

func (f booleanPresence) Name() string { return fmt.Sprintf("%s:%t", f.field, f.wantTrue) }

func (f booleanPresence) Pass(window []models.Record) bool {
	found := false
	for _, r := range window {
		if v, ok := r.Indicator(f.field); ok && IsTruthy(v) {
			found = true
			break
		}
	}
	return found == f.wantTrue
}

// IsTruthy is the strict boolean contract: only the text "true", in any
// case, is true. "1", "yes" and numbers are false.
func IsTruthy(v models.Value) bool {
	return strings.EqualFold(strings.TrimSpace(v.Text), "true")
}
