package parser

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ScreenerView/internal/domain/models"
)

var header = []string{"Date", "Ticker", "Open", "High", "Low", "Close", "Volume", "BB_Flag", "SMA_22", "Breakout"}

func TestParseValidRow(t *testing.T) {
	p := New(header, DefaultSchema())

	rec, err := p.Parse([]string{"2024/01/02", " AAA ", "10.5", "12", "10", "11", "150", " X ", "10.75", "TRUE"})
	require.NoError(t, err)

	assert.Equal(t, "AAA", rec.Ticker)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), rec.Date)
	assert.Equal(t, 10.5, rec.Open)
	assert.Equal(t, 12.0, rec.High)
	assert.Equal(t, 10.0, rec.Low)
	assert.Equal(t, 11.0, rec.Close)
	require.True(t, rec.HasVolume())
	assert.Equal(t, 150.0, *rec.Volume)
	assert.Equal(t, "X", rec.Text(FieldBBFlag))

	sma, ok := rec.Float(FieldSMA22)
	require.True(t, ok)
	assert.Equal(t, 10.75, sma)

	assert.Equal(t, "TRUE", rec.Text("Breakout"))
}

func TestParseRejections(t *testing.T) {
	p := New(header, DefaultSchema())

	tests := []struct {
		name string
		row  []string
		want error
	}{
		{"missing ticker", []string{"2024-01-02", "", "1", "1", "1", "1", "", "", "", ""}, models.ErrMissingTicker},
		{"bad date", []string{"02.01.2024x", "AAA", "1", "1", "1", "1", "", "", "", ""}, models.ErrDateUnparseable},
		{"impossible date", []string{"2024-02-30", "AAA", "1", "1", "1", "1", "", "", "", ""}, models.ErrDateUnparseable},
		{"close non numeric", []string{"2024-01-02", "AAA", "1", "1", "1", "n/a", "", "", "", ""}, models.ErrMissingPrice},
		{"open missing", []string{"2024-01-02", "AAA", "", "1", "1", "1", "", "", "", ""}, models.ErrMissingPrice},
		{"close infinite", []string{"2024-01-02", "AAA", "1", "1", "1", "Inf", "", "", "", ""}, models.ErrMissingPrice},
		{"short row", []string{"2024-01-02", "AAA", "1"}, models.ErrMissingPrice},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(tt.row)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, models.ErrRowRejected)
		})
	}
}

func TestParseBlankRowIsSkippedNotRejected(t *testing.T) {
	p := New(header, DefaultSchema())

	_, err := p.Parse([]string{"", "  ", "", "", "", "", "", "", "", ""})
	assert.ErrorIs(t, err, ErrBlankRow)
	assert.False(t, errors.Is(err, models.ErrRowRejected))
}

func TestParseOptionalNumericFields(t *testing.T) {
	p := New(header, DefaultSchema())

	rec, err := p.Parse([]string{"2024-01-02", "AAA", "1", "2", "0.5", "1.5", "lots", "", "abc", ""})
	require.NoError(t, err)
	assert.False(t, rec.HasVolume())

	v, ok := rec.Indicator(FieldSMA22)
	require.True(t, ok)
	assert.Equal(t, "abc", v.Text)
	assert.False(t, v.IsNum)

	_, ok = rec.Indicator(FieldBBFlag)
	assert.False(t, ok)
}

func TestFlagAliasesFirstNonBlankWins(t *testing.T) {
	h := []string{"Ticker", "Date", "Open", "High", "Low", "Close", "BB Flag", `BB\_Flag`, "BB_Flag"}
	p := New(h, DefaultSchema())

	rec, err := p.Parse([]string{"AAA", "2024-01-02", "1", "1", "1", "1", "third", "second", ""})
	require.NoError(t, err)
	assert.Equal(t, "second", rec.Text(FieldBBFlag))

	rec, err = p.Parse([]string{"AAA", "2024-01-02", "1", "1", "1", "1", "third", "", "first"})
	require.NoError(t, err)
	assert.Equal(t, "first", rec.Text(FieldBBFlag))

	// alias columns are folded into one logical field
	assert.NotContains(t, p.Indicators(), "BB Flag")
	assert.NotContains(t, p.Indicators(), `BB\_Flag`)
}

func TestLowerCaseAndSymbolHeaders(t *testing.T) {
	h := []string{"\ufeffsymbol", "date", "open", "high", "low", "close", "volume"}
	p := New(h, DefaultSchema())

	rec, err := p.Parse([]string{"INFY.NS", "2024-03-04", "1", "2", "1", "2", "0"})
	require.NoError(t, err)
	assert.Equal(t, "INFY.NS", rec.Ticker)
	require.True(t, rec.HasVolume())
	assert.Zero(t, *rec.Volume)
}

func TestWithAliases(t *testing.T) {
	s := DefaultSchema().WithAliases(map[string][]string{
		"Breakout":   {"Breakout", "breakout_signal"},
		FieldBBFlag:  {"Band"},
		"":           {"ignored"},
		"EmptyAlias": {" "},
	})

	h := []string{"Ticker", "Date", "Open", "High", "Low", "Close", "breakout_signal", "Band", "BB_Flag"}
	p := New(h, s)

	rec, err := p.Parse([]string{"AAA", "2024-01-02", "1", "1", "1", "1", "true", "BBH", "ignored-now"})
	require.NoError(t, err)
	assert.Equal(t, "true", rec.Text("Breakout"))
	// a header named like a logical field never shadows it
	assert.Equal(t, "BBH", rec.Text(FieldBBFlag))
	assert.Len(t, DefaultSchema().Fields, len(s.Fields)-1)
}
