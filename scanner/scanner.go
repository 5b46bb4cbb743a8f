// Package scanner coalesces bursty change notifications into bounded-rate
// processing passes over discovered handles, resolving each through the
// profile repository and handing computed signals to a presenter.
package scanner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/credwatch/credwatch/cohort"
	"github.com/credwatch/credwatch/credibility"
	"github.com/credwatch/credwatch/profile"
)

// Scheduler state. Exactly one pass is ever pending or running; triggers
// arriving meanwhile are dropped, not queued.
type State int

const (
	StateIdle State = iota
	StatePending
	StateRunning
)

// Default scheduling policy.
const (
	DefaultDebounce       = 600 * time.Millisecond
	DefaultElementDelay   = 300 * time.Millisecond
	DefaultCohortInterval = 90 * time.Second
)

// Discovery supplies the scanner with work: candidate handles visible in the
// current view, and optionally one discussion context for cohort analysis.
// The scanner does not know how these are produced.
type Discovery interface {
	CandidateHandles(ctx context.Context) []string
	CohortCandidates(ctx context.Context) (CohortContext, bool)
}

// One discussion context: the originating author (excluded from sampling)
// plus candidate replier handles, in discovery order.
type CohortContext struct {
	ContextID string
	Author    string
	Handles   []string
}

// Presenter receives computed signals as plain data. A nil RaidSummary means
// any existing display for the context should be cleared.
type Presenter interface {
	PresentScore(handle string, res credibility.Result)
	PresentRaid(contextID string, summary *cohort.RaidSummary)
}

type Scanner struct {
	Source    profile.Source
	Discovery Discovery
	Presenter Presenter
	Logger    *slog.Logger

	// settle time between a trigger and the pass it starts
	Debounce time.Duration
	// minimum delay between successive external lookups within one pass
	ElementDelay time.Duration
	// minimum wall-clock interval between re-analyses of the same context
	CohortInterval time.Duration

	clock Clock

	mu         sync.Mutex
	state      State
	lastCohort map[string]time.Time
}

func NewScanner(src profile.Source, disc Discovery, pres Presenter, logger *slog.Logger) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		Source:         src,
		Discovery:      disc,
		Presenter:      pres,
		Logger:         logger,
		Debounce:       DefaultDebounce,
		ElementDelay:   DefaultElementDelay,
		CohortInterval: DefaultCohortInterval,
		clock:          SystemClock(),
		lastCohort:     make(map[string]time.Time),
	}
}

// SetClock replaces the wall clock, for tests.
func (s *Scanner) SetClock(c Clock) {
	s.clock = c
}

// Trigger requests a processing pass. Returns false when a pass is already
// pending or running; the trigger is dropped and the next natural trigger
// picks up any new work.
func (s *Scanner) Trigger(ctx context.Context) bool {
	if !s.transition(StateIdle, StatePending) {
		triggersCoalesced.Inc()
		return false
	}
	go func() {
		if err := s.clock.Sleep(ctx, s.Debounce); err != nil {
			s.setState(StateIdle)
			return
		}
		s.transition(StatePending, StateRunning)
		s.scan(ctx, false)
		s.setState(StateIdle)
	}()
	return true
}

// ScanNow runs a pass synchronously, bypassing the debounce. Returns false
// when a pass is already pending or running. A forced pass ignores the
// per-context cohort re-analysis interval; used once at startup.
func (s *Scanner) ScanNow(ctx context.Context, force bool) bool {
	if !s.transition(StateIdle, StateRunning) {
		triggersCoalesced.Inc()
		return false
	}
	s.scan(ctx, force)
	s.setState(StateIdle)
	return true
}

// CurrentState reports the scheduler state at this instant.
func (s *Scanner) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// scan executes one full pass: per-handle scoring in discovery order, then
// cohort analysis. Per-target failures skip the target and continue; nothing
// here is fatal.
func (s *Scanner) scan(ctx context.Context, force bool) {
	scansStarted.Inc()
	now := s.clock.Now()

	first := true
	for _, raw := range s.Discovery.CandidateHandles(ctx) {
		if !ValidCandidate(raw) {
			continue
		}
		if !first {
			if err := s.clock.Sleep(ctx, s.ElementDelay); err != nil {
				return
			}
		}
		first = false

		p, ok := s.lookup(ctx, raw)
		if !ok {
			continue
		}
		s.Presenter.PresentScore(profile.NormalizeHandle(raw), credibility.Score(p, now))
		handlesScored.Inc()
	}

	cc, ok := s.Discovery.CohortCandidates(ctx)
	if !ok {
		return
	}
	s.scanCohort(ctx, cc, now, force)
}

func (s *Scanner) scanCohort(ctx context.Context, cc CohortContext, now time.Time, force bool) {
	if !force && !s.cohortDue(cc.ContextID, now) {
		cohortSkips.Inc()
		return
	}

	sample := cohort.NewSample(cc.Author)
	first := true
	for _, raw := range cc.Handles {
		if sample.Full() {
			break
		}
		if !ValidCandidate(raw) {
			continue
		}
		if !first {
			if err := s.clock.Sleep(ctx, s.ElementDelay); err != nil {
				return
			}
		}
		first = false

		p, ok := s.lookup(ctx, raw)
		if !ok {
			continue
		}
		sample.Add(p)
	}

	summary := cohort.Analyze(sample, now)
	s.Presenter.PresentRaid(cc.ContextID, summary)
	s.markCohort(cc.ContextID, now)
	if summary != nil {
		cohortAnalyses.Inc()
		s.Logger.Info("cohort analyzed", "context", cc.ContextID, "size", summary.SampleSize,
			"score", summary.Score, "risk", summary.Risk, "cluster", summary.ClusterSignal)
	}
}

// lookup resolves one handle, mapping the error taxonomy to log levels. All
// failures degrade to "no data for this handle".
func (s *Scanner) lookup(ctx context.Context, raw string) (*profile.Profile, bool) {
	p, err := s.Source.Lookup(ctx, raw)
	switch {
	case err == nil:
		return p, true
	case errors.Is(err, profile.ErrProfileNotFound):
		s.Logger.Debug("handle unresolvable", "handle", raw)
	case errors.Is(err, profile.ErrRateLimited):
		s.Logger.Warn("profile source rate-limited", "handle", raw)
	case errors.Is(err, profile.ErrNotAuthenticated):
		s.Logger.Debug("skipping lookup, no credentials", "handle", raw)
	default:
		s.Logger.Warn("profile lookup failed", "handle", raw, "err", err)
	}
	return nil, false
}

func (s *Scanner) cohortDue(contextID string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.lastCohort[contextID]
	return !ok || now.Sub(last) >= s.CohortInterval
}

func (s *Scanner) markCohort(contextID string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCohort[contextID] = now
}

func (s *Scanner) transition(from, to State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != from {
		return false
	}
	s.state = to
	return true
}

func (s *Scanner) setState(to State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = to
}
