package usecase

import (
	"fmt"
	"sort"
	"strings"

	"ScreenerView/internal/domain/models"
)

// FlagMode selects how the flag field filters tickers.
type FlagMode string

const (
	FlagAll   FlagMode = "all"   // no flag filtering
	FlagAny   FlagMode = "any"   // some non-blank flag in the window
	FlagExact FlagMode = "exact" // a specific flag value in the window
)

// ParseFlagMode maps a command value to a FlagMode.
func ParseFlagMode(s string) (FlagMode, error) {
	switch m := FlagMode(strings.ToLower(strings.TrimSpace(s))); m {
	case FlagAll, FlagAny, FlagExact:
		return m, nil
	default:
		return "", fmt.Errorf("%w: unknown flag mode %q", models.ErrInvalidFilter, s)
	}
}

// TriState is the state of one boolean signal filter.
type TriState string

const (
	TriAny   TriState = "any"
	TriTrue  TriState = "true"
	TriFalse TriState = "false"
)

// ParseTriState maps a command value to a TriState.
func ParseTriState(s string) (TriState, error) {
	switch v := TriState(strings.ToLower(strings.TrimSpace(s))); v {
	case TriAny, TriTrue, TriFalse:
		return v, nil
	default:
		return "", fmt.Errorf("%w: unknown boolean state %q", models.ErrInvalidFilter, s)
	}
}

// Selection is the user's current filter choice.
type Selection struct {
	FlagMode  FlagMode            `json:"flag_mode"`
	FlagValue string              `json:"flag_value,omitempty"`
	Booleans  map[string]TriState `json:"booleans"`
}

func (s Selection) clone() Selection {
	out := s
	out.Booleans = make(map[string]TriState, len(s.Booleans))
	for k, v := range s.Booleans {
		out.Booleans[k] = v
	}
	return out
}

// booleanNames returns the boolean filter names in sorted order.
func (s Selection) booleanNames() []string {
	names := make([]string, 0, len(s.Booleans))
	for k := range s.Booleans {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Label renders the selection the way the status line shows it: ALL, ANY or
// the selected flag, followed by any boolean filters.
func (s Selection) Label() string {
	var b strings.Builder
	switch s.FlagMode {
	case FlagAny:
		b.WriteString("ANY")
	case FlagExact:
		b.WriteString(s.FlagValue)
	default:
		b.WriteString("ALL")
	}
	for _, name := range s.booleanNames() {
		fmt.Fprintf(&b, ", %s=%s", name, s.Booleans[name])
	}
	return b.String()
}
