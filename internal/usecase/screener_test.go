package usecase

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ScreenerView/internal/domain/models"
	"ScreenerView/internal/services/indicators"
	"ScreenerView/internal/services/window"
	"ScreenerView/pkg/logger"
)

var csvHeader = []string{"Date", "Ticker", "Open", "High", "Low", "Close", "Volume", "BB_Flag"}

type fakeSource struct {
	name   string
	chunks []models.Chunk
	err    error
	// gate, when set, blocks the stream after the first chunk until closed
	gate chan struct{}
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Stream(ctx context.Context) (<-chan models.Chunk, <-chan error) {
	out := make(chan models.Chunk)
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		defer close(out)
		for i, c := range f.chunks {
			select {
			case out <- c:
			case <-ctx.Done():
				errs <- ctx.Err()
				return
			}
			if i == 0 && f.gate != nil {
				<-f.gate
			}
		}
		if f.err != nil {
			errs <- f.err
		}
	}()
	return out, errs
}

func source(rows ...[]string) *fakeSource {
	return &fakeSource{name: "fake", chunks: []models.Chunk{{Header: csvHeader, Rows: rows}}}
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev models.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) types() []models.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.EventType, len(n.events))
	for i, ev := range n.events {
		out[i] = ev.Type
	}
	return out
}

func (n *recordingNotifier) last() models.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		return models.Event{}
	}
	return n.events[len(n.events)-1]
}

// stallingNotifier holds filter events until release is closed.
type stallingNotifier struct {
	recordingNotifier
	release chan struct{}
}

func (n *stallingNotifier) Notify(ctx context.Context, ev models.Event) error {
	if ev.Type == models.EventFilterChanged {
		select {
		case <-n.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return n.recordingNotifier.Notify(ctx, ev)
}

func (n *recordingNotifier) count(typ models.EventType) int {
	c := 0
	for _, t := range n.types() {
		if t == typ {
			c++
		}
	}
	return c
}

func fixedClock(s string) func() time.Time {
	t, _ := time.Parse(time.DateOnly, s)
	return func() time.Time { return t }
}

func exampleRows() [][]string {
	return [][]string{
		{"2024-01-01", "AAA", "10", "11", "9", "10.5", "100", ""},
		{"2024-01-02", "AAA", "10.5", "12", "10", "11", "150", "X"},
		{"2024-01-02", "BBB", "5", "5", "4", "4", "90", ""},
	}
}

func TestScreenerEndToEndExactMatch(t *testing.T) {
	s := NewScreener(WithPolicy(window.LastNRecords(7)))

	res, err := s.Load(context.Background(), source(exampleRows()...))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Records)
	assert.Equal(t, 2, res.Tickers)
	assert.Equal(t, "Loaded 2 tickers", s.Status().Message)

	require.NoError(t, s.SetFlagFilter(FlagExact, "X"))
	assert.Equal(t, []string{"AAA"}, s.ListTickers())
	assert.Equal(t, "Filter: X — 1 tickers", s.Status().Message)

	recs := s.RecordsFor("AAA")
	require.Len(t, recs, 2)
	assert.Equal(t, "2024-01-01", recs[0].DateString())
	assert.Equal(t, "X", recs[1].Text("BB_Flag"))
}

func TestScreenerDropsTickerWithOnlyInvalidRows(t *testing.T) {
	s := NewScreener()
	rows := append(exampleRows()[:2],
		[]string{"2024-01-02", "BBB", "5", "5", "4", "n/a", "90", ""},
		[]string{"", "", "", "", "", "", "", ""},
	)

	res, err := s.Load(context.Background(), source(rows...))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Rejected, "blank rows are not rejections")
	assert.Equal(t, []string{"AAA"}, s.ListTickers())
	assert.Nil(t, s.RecordsFor("BBB"))
	assert.Equal(t, 1, s.Status().Rejected)
}

func TestScreenerFailureBeforeData(t *testing.T) {
	n := &recordingNotifier{}
	s := NewScreener(WithNotifier(n))
	_, err := s.Load(context.Background(), source(exampleRows()...))
	require.NoError(t, err)

	boom := errors.New("dial tcp: connection refused")
	_, err = s.Load(context.Background(), &fakeSource{name: "fake", err: boom})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrSourceUnavailable)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, boom.Error(), err.Error(), "surfaced verbatim")

	var serr *models.SourceError
	require.ErrorAs(t, err, &serr)
	assert.False(t, serr.Partial)

	// previous snapshot kept
	assert.Equal(t, []string{"AAA", "BBB"}, s.ListTickers())
	st := s.Status()
	assert.Equal(t, "Failed to load CSV.", st.Message)
	assert.True(t, st.Failed)
	assert.Equal(t, boom.Error(), st.Error)

	assert.Equal(t, []models.EventType{
		models.EventLoading, models.EventLoaded,
		models.EventLoading, models.EventLoadFailed,
	}, n.types())
}

func TestScreenerMidStreamFailureRestoresPrevious(t *testing.T) {
	s := NewScreener()
	_, err := s.Load(context.Background(), source(exampleRows()[2]))
	require.NoError(t, err)
	require.Equal(t, []string{"BBB"}, s.ListTickers())

	src := &fakeSource{
		name: "fake",
		chunks: []models.Chunk{
			{Header: csvHeader, Rows: exampleRows()[:2]},
			{Header: csvHeader, Rows: [][]string{{"2024-01-03", "CCC", "1", "1", "1", "1", "", ""}}},
		},
		err: errors.New("unexpected EOF"),
	}
	_, err = s.Load(context.Background(), src)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrSourceUnavailable)

	var serr *models.SourceError
	require.ErrorAs(t, err, &serr)
	assert.True(t, serr.Partial)

	assert.Equal(t, []string{"BBB"}, s.ListTickers())
	assert.True(t, s.Snapshot().Complete)
}

func TestScreenerPublishesPartialSnapshots(t *testing.T) {
	gate := make(chan struct{})
	src := &fakeSource{
		name: "fake",
		chunks: []models.Chunk{
			{Header: csvHeader, Rows: exampleRows()[:2]},
			{Header: csvHeader, Rows: exampleRows()[2:]},
		},
		gate: gate,
	}
	s := NewScreener()

	done := make(chan error, 1)
	go func() {
		_, err := s.Load(context.Background(), src)
		done <- err
	}()

	assert.Eventually(t, func() bool {
		snap := s.Snapshot()
		return !snap.Complete && snap.Partition.Has("AAA")
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"AAA"}, s.ListTickers())
	assert.True(t, s.Status().Loading)

	close(gate)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"AAA", "BBB"}, s.ListTickers())
	assert.True(t, s.Snapshot().Complete)
}

func TestScreenerContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewScreener()
	_, err := s.Load(ctx, source(exampleRows()...))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrSourceUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScreenerFlagModes(t *testing.T) {
	s := NewScreener()
	_, err := s.Load(context.Background(), source(
		[]string{"2024-01-01", "AAA", "1", "1", "1", "1", "", "BBH"},
		[]string{"2024-01-01", "BBB", "1", "1", "1", "1", "", " BBL "},
		[]string{"2024-01-01", "CCC", "1", "1", "1", "1", "", ""},
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"BBH", "BBL"}, s.Flags())

	require.NoError(t, s.SetFlagFilter(FlagAny, ""))
	assert.Equal(t, []string{"AAA", "BBB"}, s.ListTickers())
	assert.Equal(t, "Filter: ANY — 2 tickers", s.Status().Message)

	require.NoError(t, s.SetFlagFilter(FlagExact, "BBL"))
	assert.Equal(t, []string{"BBB"}, s.ListTickers())

	require.NoError(t, s.SetFlagFilter(FlagAll, "ignored"))
	assert.Equal(t, []string{"AAA", "BBB", "CCC"}, s.ListTickers())
	assert.Equal(t, Selection{FlagMode: FlagAll, Booleans: map[string]TriState{}}, s.Selection())

	assert.ErrorIs(t, s.SetFlagFilter(FlagExact, "  "), models.ErrInvalidFilter)
	assert.ErrorIs(t, s.SetFlagFilter(FlagMode("some"), "x"), models.ErrInvalidFilter)
}

func TestScreenerBooleanFilters(t *testing.T) {
	header := append(append([]string{}, csvHeader...), "Breakout", "Squeeze")
	s := NewScreener()
	_, err := s.Load(context.Background(), &fakeSource{name: "fake", chunks: []models.Chunk{{
		Header: header,
		Rows: [][]string{
			{"2024-01-01", "AAA", "1", "1", "1", "1", "", "", "true", "true"},
			{"2024-01-01", "BBB", "1", "1", "1", "1", "", "", "TRUE", "no"},
			{"2024-01-01", "CCC", "1", "1", "1", "1", "", "", "1", "True"},
		},
	}}})
	require.NoError(t, err)

	require.NoError(t, s.SetBooleanFilter("Breakout", TriTrue))
	assert.Equal(t, []string{"AAA", "BBB"}, s.ListTickers())

	require.NoError(t, s.SetBooleanFilter("Squeeze", TriFalse))
	assert.Equal(t, []string{"BBB"}, s.ListTickers())
	assert.Len(t, s.ActiveFilters(), 3)
	assert.Equal(t, "Filter: ALL, Breakout=true, Squeeze=false — 1 tickers", s.Status().Message)

	require.NoError(t, s.SetBooleanFilter("Breakout", TriAny))
	assert.Equal(t, []string{"BBB"}, s.ListTickers())
	assert.Len(t, s.ActiveFilters(), 2)

	assert.ErrorIs(t, s.SetBooleanFilter(" ", TriTrue), models.ErrInvalidFilter)
	assert.ErrorIs(t, s.SetBooleanFilter("Breakout", TriState("maybe")), models.ErrInvalidFilter)
}

func TestScreenerSearchAndLookup(t *testing.T) {
	s := NewScreener()
	_, err := s.Load(context.Background(), source(
		[]string{"2024-01-01", "INFY.NS", "1", "1", "1", "1", "", ""},
		[]string{"2024-01-01", "TCS.NS", "1", "1", "1", "1", "", ""},
		[]string{"2024-01-01", "INFRA.BO", "1", "1", "1", "1", "", ""},
	))
	require.NoError(t, err)

	assert.Equal(t, []string{"INFRA.BO", "INFY.NS"}, s.Search(" inf "))
	assert.Equal(t, []string{"INFRA.BO", "INFY.NS", "TCS.NS"}, s.Search(""))
	assert.Empty(t, s.Search("xyz"))

	assert.True(t, s.Lookup("TCS.NS"))
	assert.False(t, s.Lookup("tcs.ns"))
	assert.False(t, s.Lookup(""))
}

func TestScreenerDatasetAnchor(t *testing.T) {
	rows := [][]string{
		{"2024-01-01", "AAA", "1", "1", "1", "1", "", "X"},
		{"2024-01-10", "AAA", "1", "1", "1", "1", "", ""},
		{"2024-01-09", "BBB", "1", "1", "1", "1", "", "X"},
	}
	wall := NewScreener(WithPolicy(window.LastNCalendarDays(3)), WithClock(fixedClock("2025-01-01")))
	_, err := wall.Load(context.Background(), source(rows...))
	require.NoError(t, err)
	require.NoError(t, wall.SetFlagFilter(FlagExact, "X"))
	assert.Empty(t, wall.ListTickers(), "data is a year old")

	latest := NewScreener(
		WithPolicy(window.LastNCalendarDays(3)),
		WithAnchor(window.AnchorDatasetLatest),
		WithClock(fixedClock("2025-01-01")),
	)
	_, err = latest.Load(context.Background(), source(rows...))
	require.NoError(t, err)
	require.NoError(t, latest.SetFlagFilter(FlagExact, "X"))
	assert.Equal(t, []string{"BBB"}, latest.ListTickers())
}

func TestScreenerEnricherComputesFlags(t *testing.T) {
	rows := make([][]string, 0, 10)
	for i := 1; i <= 9; i++ {
		rows = append(rows, []string{"2024-01-0" + string(rune('0'+i)), "AAA", "10", "11", "9", "10", "", ""})
	}
	rows = append(rows, []string{"2024-01-10", "AAA", "20", "21", "19", "20", "", ""})

	s := NewScreener(WithEnricher(indicators.Enricher(indicators.DefaultConfig())))
	_, err := s.Load(context.Background(), source(rows...))
	require.NoError(t, err)

	assert.Equal(t, []string{"BBH"}, s.Flags())
	require.NoError(t, s.SetFlagFilter(FlagExact, "BBH"))
	assert.Equal(t, []string{"AAA"}, s.ListTickers())
}

func TestScreenerIdempotentListing(t *testing.T) {
	s := NewScreener(WithClock(fixedClock("2024-01-05")))
	_, err := s.Load(context.Background(), source(exampleRows()...))
	require.NoError(t, err)
	require.NoError(t, s.SetFlagFilter(FlagAny, ""))

	assert.Equal(t, s.ListTickers(), s.ListTickers())
}

func TestScreenerReloadClearsComplete(t *testing.T) {
	s := NewScreener()
	_, err := s.Load(context.Background(), source(exampleRows()...))
	require.NoError(t, err)
	require.True(t, s.Status().Complete)

	gate := make(chan struct{})
	src := &fakeSource{
		name: "fake",
		chunks: []models.Chunk{
			{Header: csvHeader, Rows: exampleRows()[:1]},
			{Header: csvHeader, Rows: exampleRows()[1:]},
		},
		gate: gate,
	}
	done := make(chan error, 1)
	go func() {
		_, err := s.Load(context.Background(), src)
		done <- err
	}()

	require.Eventually(t, func() bool { return s.Status().Loading }, time.Second, 5*time.Millisecond)
	st := s.Status()
	assert.False(t, st.Complete)
	assert.Equal(t, "Loading CSV...", st.Message)

	close(gate)
	require.NoError(t, <-done)
	st = s.Status()
	assert.True(t, st.Complete)
	assert.False(t, st.Loading)
}

func TestPublishPartialCadence(t *testing.T) {
	for n, want := range map[int]bool{
		0: false, 1: true, 2: true, 3: false, 4: true,
		5: false, 7: false, 8: true, 12: false, 64: true,
	} {
		assert.Equal(t, want, publishPartial(n), "chunk %d", n)
	}
}

func TestScreenerFilterChangeDoesNotWaitForNotifier(t *testing.T) {
	n := &stallingNotifier{release: make(chan struct{})}
	s := NewScreener(WithNotifier(n))
	_, err := s.Load(context.Background(), source(exampleRows()...))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.SetFlagFilter(FlagAny, "") }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("SetFlagFilter waited on the notifier")
	}
	require.NoError(t, s.SetFlagFilter(FlagExact, "X"))
	require.NoError(t, s.SetFlagFilter(FlagAll, ""))
	assert.Equal(t, "Filter: ALL — 2 tickers", s.Status().Message)

	close(n.release)
	require.Eventually(t, func() bool {
		return n.last().Message == "Filter: ALL — 2 tickers"
	}, time.Second, 5*time.Millisecond)
	assert.LessOrEqual(t, n.count(models.EventFilterChanged), 2, "queued changes collapse to the newest")
	assert.Equal(t, []models.EventType{models.EventLoading, models.EventLoaded}, n.types()[:2])
}

func TestScreenerLogsBooleanSelection(t *testing.T) {
	var buf bytes.Buffer
	s := NewScreener(WithLogger(logger.NewWriter(&buf, zerolog.DebugLevel)))
	_, err := s.Load(context.Background(), source(exampleRows()...))
	require.NoError(t, err)

	buf.Reset()
	require.NoError(t, s.SetBooleanFilter("Breakout", TriTrue))
	assert.Contains(t, buf.String(), `"booleans":{"Breakout":"true"}`)
}
