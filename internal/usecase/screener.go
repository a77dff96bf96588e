package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ScreenerView/internal/domain/models"
	drepo "ScreenerView/internal/domain/repository"
	"ScreenerView/internal/services/filters"
	"ScreenerView/internal/services/parser"
	"ScreenerView/internal/services/partition"
	"ScreenerView/internal/services/window"
	"ScreenerView/pkg/logger"
	"ScreenerView/pkg/metrics"
)

const (
	defaultWindowSize = 7
	defaultFlagField  = parser.FieldBBFlag
	notifyTimeout     = 5 * time.Second

	msgLoading    = "Loading CSV..."
	msgLoadFailed = "Failed to load CSV."
)

// Snapshot is one published partition. Snapshots are replaced, never
// modified.
type Snapshot struct {
	Partition *partition.Partition
	Source    string
	Complete  bool // false while chunks are still arriving
	LoadedAt  time.Time
}

// LoadResult summarises a load attempt.
type LoadResult struct {
	Source   string        `json:"source"`
	Chunks   int           `json:"chunks"`
	Records  int           `json:"records"`
	Rejected int           `json:"rejected"`
	Tickers  int           `json:"tickers"`
	Duration time.Duration `json:"duration"`
}

// Status is the single status line plus load diagnostics.
type Status struct {
	Message  string    `json:"message"`
	Loading  bool      `json:"loading"`
	Complete bool      `json:"complete"`
	Failed   bool      `json:"failed"`
	Error    string    `json:"error,omitempty"`
	Source   string    `json:"source,omitempty"`
	Tickers  int       `json:"tickers"`
	Records  int       `json:"records"`
	Rejected int       `json:"rejected"`
	LoadedAt time.Time `json:"loaded_at,omitempty"`
}

// Screener owns the current partition snapshot and the filter selection.
// Loads are serialised; queries read the snapshot without blocking a load.
type Screener struct {
	policy    window.Policy
	anchor    window.Anchor
	schema    parser.Schema
	dupes     partition.DuplicatePolicy
	enrich    partition.Enricher
	flagField string
	clock     func() time.Time
	metrics   drepo.Metrics
	notifier  drepo.Notifier
	log       *logger.Logger

	snap   atomic.Pointer[Snapshot]
	loadMu sync.Mutex

	selMu     sync.RWMutex
	selection Selection

	statusMu sync.RWMutex
	status   Status

	pendMu  sync.Mutex
	pending *models.Event
	sending bool
}

// Option configures a Screener.
type Option func(*Screener)

func WithPolicy(p window.Policy) Option { return func(s *Screener) { s.policy = p } }

func WithAnchor(a window.Anchor) Option { return func(s *Screener) { s.anchor = a } }

func WithSchema(sc parser.Schema) Option { return func(s *Screener) { s.schema = sc } }

func WithDuplicatePolicy(p partition.DuplicatePolicy) Option {
	return func(s *Screener) { s.dupes = p }
}

// WithEnricher derives missing indicators on every complete load.
func WithEnricher(fn partition.Enricher) Option { return func(s *Screener) { s.enrich = fn } }

// WithFlagField sets the indicator the flag filter reads.
func WithFlagField(name string) Option { return func(s *Screener) { s.flagField = name } }

// WithClock replaces the wall clock, mostly for tests.
func WithClock(fn func() time.Time) Option { return func(s *Screener) { s.clock = fn } }

func WithMetrics(m drepo.Metrics) Option { return func(s *Screener) { s.metrics = m } }

func WithNotifier(n drepo.Notifier) Option { return func(s *Screener) { s.notifier = n } }

func WithLogger(l *logger.Logger) Option { return func(s *Screener) { s.log = l } }

// NewScreener creates a screener with an empty snapshot.
func NewScreener(opts ...Option) *Screener {
	s := &Screener{
		policy:    window.LastNRecords(defaultWindowSize),
		anchor:    window.AnchorWallClock,
		schema:    parser.DefaultSchema(),
		dupes:     partition.KeepAll,
		flagField: defaultFlagField,
		clock:     time.Now,
		metrics:   metrics.Nop{},
		log:       logger.Nop(),
		selection: Selection{FlagMode: FlagAll, Booleans: map[string]TriState{}},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.snap.Store(&Snapshot{Partition: partition.Group(nil)})
	return s
}

// Load pulls every chunk from src. Partial snapshots are published after
// chunks 1, 2, 4, 8 and so on, which keeps regrouping linear in the row
// count. If the stream fails the previous complete snapshot stays (or is
// restored) and the error wraps models.ErrSourceUnavailable.
func (s *Screener) Load(ctx context.Context, src drepo.Source) (LoadResult, error) {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	start := time.Now()
	res := LoadResult{Source: src.Name()}
	prev := s.snap.Load()

	s.setStatus(func(st *Status) {
		st.Message = msgLoading
		st.Loading = true
		st.Complete = false
		st.Failed = false
		st.Error = ""
		st.Source = res.Source
	})
	s.notify(models.Event{Type: models.EventLoading, Message: msgLoading, Source: res.Source})
	s.log.Info("load started", logger.String("source", res.Source))

	var (
		p        *parser.Parser
		records  []models.Record
		rejected int
	)

	chunks, errs := src.Stream(ctx)
	streamErr := func() error {
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case ch, ok := <-chunks:
				if !ok {
					return <-errs
				}
				res.Chunks++
				if p == nil {
					p = parser.New(ch.Header, s.schema)
				}
				for _, row := range ch.Rows {
					rec, err := p.Parse(row)
					switch {
					case errors.Is(err, parser.ErrBlankRow):
						continue
					case err != nil:
						rejected++
						s.log.Debug("row rejected", logger.Error(err), logger.Int("row", len(records)+rejected))
						continue
					}
					rec.Seq = len(records)
					records = append(records, rec)
				}
				if publishPartial(res.Chunks) {
					s.snap.Store(&Snapshot{
						Partition: partition.Group(records, partition.WithDuplicates(s.dupes), partition.WithRejected(rejected)),
						Source:    res.Source,
					})
				}
			}
		}
	}()

	res.Rejected = rejected
	res.Duration = time.Since(start)
	s.metrics.RecordLatency("load", res.Duration.Seconds())

	if streamErr != nil {
		serr := &models.SourceError{Source: res.Source, Partial: res.Chunks > 0, Err: streamErr}
		if serr.Partial {
			s.snap.Store(prev)
		}
		s.metrics.RecordLoad(res.Source, "error")
		s.setStatus(func(st *Status) {
			st.Message = msgLoadFailed
			st.Loading = false
			st.Failed = true
			st.Error = serr.Error()
		})
		s.notify(models.Event{Type: models.EventLoadFailed, Message: msgLoadFailed, Source: res.Source})
		s.log.Error("load failed",
			logger.String("source", res.Source),
			logger.Int("chunks", res.Chunks),
			logger.Bool("partial", serr.Partial),
			logger.Error(streamErr),
		)
		return res, serr
	}

	opts := []partition.Option{partition.WithDuplicates(s.dupes), partition.WithRejected(rejected)}
	if s.enrich != nil {
		opts = append(opts, partition.WithEnricher(s.enrich))
	}
	part := partition.Group(records, opts...)
	loadedAt := s.clock()
	s.snap.Store(&Snapshot{Partition: part, Source: res.Source, Complete: true, LoadedAt: loadedAt})

	tickers := s.ListTickers()
	res.Records = part.Len()
	res.Tickers = len(tickers)

	s.metrics.RecordLoad(res.Source, "ok")
	s.metrics.RecordRows(res.Records, rejected)

	msg := fmt.Sprintf("Loaded %d tickers", len(tickers))
	s.setStatus(func(st *Status) {
		st.Message = msg
		st.Loading = false
		st.Complete = true
		st.LoadedAt = loadedAt
		st.Tickers = len(tickers)
	})
	s.notify(models.Event{Type: models.EventLoaded, Message: msg, Tickers: len(tickers), Source: res.Source})
	s.log.Info("load complete",
		logger.String("source", res.Source),
		logger.Int("chunks", res.Chunks),
		logger.Int("records", res.Records),
		logger.Int("rejected", rejected),
		logger.Int("tickers", len(tickers)),
		logger.Duration("duration_ms", res.Duration),
	)
	return res, nil
}

// Snapshot returns the currently published snapshot.
func (s *Screener) Snapshot() *Snapshot { return s.snap.Load() }

// ListTickers returns the sorted tickers passing the current selection.
func (s *Screener) ListTickers() []string {
	start := time.Now()
	snap := s.snap.Load()
	active := s.ActiveFilters()
	now := s.anchor.Resolve(s.clock(), snap.Partition.LatestDate())

	out := BuildTickerSet(snap.Partition, s.policy, active, now)

	s.metrics.RecordLatency("list_tickers", time.Since(start).Seconds())
	s.metrics.RecordTickers(len(out))
	return out
}

// RecordsFor returns the date-ordered records of one ticker.
func (s *Screener) RecordsFor(ticker string) []models.Record {
	return s.snap.Load().Partition.Records(strings.TrimSpace(ticker))
}

// Flags returns the distinct non-blank flag values of the whole dataset.
func (s *Screener) Flags() []string {
	return s.snap.Load().Partition.Flags(s.flagField)
}

// Search returns the passing tickers containing query, case-insensitively.
// An empty query returns the whole list.
func (s *Screener) Search(query string) []string {
	tickers := s.ListTickers()
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return tickers
	}
	out := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if strings.Contains(strings.ToUpper(t), q) {
			out = append(out, t)
		}
	}
	return out
}

// Lookup reports whether ticker is exactly one of the passing tickers.
func (s *Screener) Lookup(ticker string) bool {
	ticker = strings.TrimSpace(ticker)
	if ticker == "" {
		return false
	}
	for _, t := range s.ListTickers() {
		if t == ticker {
			return true
		}
	}
	return false
}

// SetFlagFilter sets the flag filter. FlagExact requires a non-blank value.
func (s *Screener) SetFlagFilter(mode FlagMode, value string) error {
	value = strings.TrimSpace(value)
	switch mode {
	case FlagAll, FlagAny:
		value = ""
	case FlagExact:
		if value == "" {
			return fmt.Errorf("%w: flag value required for mode %q", models.ErrInvalidFilter, mode)
		}
	default:
		return fmt.Errorf("%w: unknown flag mode %q", models.ErrInvalidFilter, mode)
	}

	s.selMu.Lock()
	s.selection.FlagMode = mode
	s.selection.FlagValue = value
	s.selMu.Unlock()

	s.filterChanged()
	return nil
}

// SetBooleanFilter sets one boolean signal filter; TriAny removes it.
func (s *Screener) SetBooleanFilter(name string, state TriState) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: boolean filter name required", models.ErrInvalidFilter)
	}
	switch state {
	case TriAny, TriTrue, TriFalse:
	default:
		return fmt.Errorf("%w: unknown boolean state %q", models.ErrInvalidFilter, state)
	}

	s.selMu.Lock()
	if state == TriAny {
		delete(s.selection.Booleans, name)
	} else {
		s.selection.Booleans[name] = state
	}
	s.selMu.Unlock()

	s.filterChanged()
	return nil
}

// Selection returns a copy of the current filter selection.
func (s *Screener) Selection() Selection {
	s.selMu.RLock()
	defer s.selMu.RUnlock()
	return s.selection.clone()
}

// ActiveFilters converts the current selection into filters.
func (s *Screener) ActiveFilters() []filters.Filter {
	sel := s.Selection()

	var out []filters.Filter
	switch sel.FlagMode {
	case FlagAny:
		out = append(out, filters.AnyNonBlank(s.flagField))
	case FlagExact:
		out = append(out, filters.ExactMatch(s.flagField, sel.FlagValue))
	default:
		out = append(out, filters.Unconditional())
	}
	for _, name := range sel.booleanNames() {
		out = append(out, filters.BooleanPresence(name, sel.Booleans[name] == TriTrue))
	}
	return out
}

// Status returns the current status line and diagnostics.
func (s *Screener) Status() Status {
	s.statusMu.RLock()
	st := s.status
	s.statusMu.RUnlock()

	part := s.snap.Load().Partition
	st.Records = part.Len()
	st.Rejected = part.Rejected()
	return st
}

func (s *Screener) filterChanged() {
	tickers := s.ListTickers()
	msg := fmt.Sprintf("Filter: %s — %d tickers", s.Selection().Label(), len(tickers))
	s.setStatus(func(st *Status) {
		if !st.Loading && !st.Failed {
			st.Message = msg
		}
		st.Tickers = len(tickers)
	})
	s.notifyLatest(models.Event{Type: models.EventFilterChanged, Message: msg, Tickers: len(tickers), At: s.clock()})
	sel := s.Selection()
	s.log.Debug("filter changed",
		logger.String("selection", sel.Label()),
		logger.Any("booleans", sel.Booleans),
		logger.Int("tickers", len(tickers)),
	)
}

// publishPartial reports whether the n-th chunk gets a partial snapshot.
func publishPartial(n int) bool { return n > 0 && n&(n-1) == 0 }

// notifyLatest hands ev to a background sender so a slow notifier never
// blocks the caller. Events queued while a send is in flight collapse into
// the newest one.
func (s *Screener) notifyLatest(ev models.Event) {
	if s.notifier == nil {
		return
	}
	s.pendMu.Lock()
	s.pending = &ev
	if s.sending {
		s.pendMu.Unlock()
		return
	}
	s.sending = true
	s.pendMu.Unlock()
	go s.flushPending()
}

func (s *Screener) flushPending() {
	for {
		s.pendMu.Lock()
		ev := s.pending
		s.pending = nil
		if ev == nil {
			s.sending = false
			s.pendMu.Unlock()
			return
		}
		s.pendMu.Unlock()
		s.notify(*ev)
	}
}

func (s *Screener) setStatus(fn func(*Status)) {
	s.statusMu.Lock()
	fn(&s.status)
	s.statusMu.Unlock()
}

func (s *Screener) notify(ev models.Event) {
	if s.notifier == nil {
		return
	}
	if ev.At.IsZero() {
		ev.At = s.clock()
	}
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.log.Warn("notify failed", logger.String("event", string(ev.Type)), logger.Error(err))
	}
}
