// Package daemon provides the long-running ledger poller and its HTTP API.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/chainfund/internal/engine"
	"github.com/theirongolddev/chainfund/internal/mirror"
	"github.com/theirongolddev/chainfund/internal/model"
	"github.com/theirongolddev/chainfund/internal/store"
)

// Config controls the daemon runtime behavior.
type Config struct {
	Interval     time.Duration
	Addr         string
	EventsBuffer int
	Caller       string // default identity for derived views

	Logger *slog.Logger
	Now    func() time.Time
}

// Snapshot is a compact ledger state for status and event payloads.
type Snapshot struct {
	At              time.Time               `json:"at"`
	Campaigns       int                     `json:"campaigns"`
	OpenCampaigns   int                     `json:"open_campaigns"`
	FundedCampaigns int                     `json:"funded_campaigns"`
	Raised          decimal.Decimal         `json:"raised"`
	Loans           int                     `json:"loans"`
	LoansByStage    map[model.LoanStage]int `json:"loans_by_stage"`
	Lent            decimal.Decimal         `json:"lent"`
	Repaid          decimal.Decimal         `json:"repaid"`
}

// Delta captures snapshot deltas between polls.
type Delta struct {
	Campaigns       int                     `json:"campaigns"`
	OpenCampaigns   int                     `json:"open_campaigns"`
	FundedCampaigns int                     `json:"funded_campaigns"`
	Raised          decimal.Decimal         `json:"raised"`
	Loans           int                     `json:"loans"`
	Stages          map[model.LoanStage]int `json:"stages,omitempty"`
	Lent            decimal.Decimal         `json:"lent"`
	Repaid          decimal.Decimal         `json:"repaid"`
}

func (d Delta) isZero() bool {
	return d.Campaigns == 0 &&
		d.OpenCampaigns == 0 &&
		d.FundedCampaigns == 0 &&
		d.Raised.IsZero() &&
		d.Loans == 0 &&
		len(d.Stages) == 0 &&
		d.Lent.IsZero() &&
		d.Repaid.IsZero()
}

// Event is emitted whenever the ledger snapshot changes.
type Event struct {
	ID        int64     `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Snapshot  Snapshot  `json:"snapshot"`
	Delta     Delta     `json:"delta"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	Caller          string    `json:"caller,omitempty"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg     Config
	mirror  *mirror.Mirror
	cache   *store.Cache
	log     *slog.Logger
	now     func() time.Time
	metrics *Metrics

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	pollCount   int64
	lastError   string
	hasSnapshot bool
	snapshot    Snapshot
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a daemon service that polls m and keeps its results in cache.
func New(cfg Config, m *mirror.Mirror, cache *store.Cache) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 15 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Service{
		cfg:       cfg,
		mirror:    m,
		cache:     cache,
		log:       cfg.Logger,
		now:       cfg.Now,
		metrics:   NewMetrics(),
		startedAt: cfg.Now(),
		subs:      make(map[int]chan Event),
	}
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Seed initial snapshot so status is useful immediately.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

func (s *Service) pollOnce(ctx context.Context) {
	start := time.Now()
	err := s.refresh(ctx)
	s.metrics.Poll(time.Since(start), err)
	if err != nil {
		s.mu.Lock()
		s.lastError = err.Error()
		s.lastPollAt = s.now()
		s.pollCount++
		s.mu.Unlock()
		s.log.Warn("ledger poll failed", "err", err)
	}
}

// refresh reads the whole ledger, stores it, and publishes what changed.
// A failed read leaves the stored state untouched.
func (s *Service) refresh(ctx context.Context) error {
	state, err := s.mirror.Refresh(ctx, s.now)
	if err != nil {
		return err
	}
	if err := s.cache.ReplaceCampaigns(state.Campaigns, state.FetchedAt); err != nil {
		return fmt.Errorf("storing campaigns: %w", err)
	}
	if err := s.cache.ReplaceLoans(state.Loans, state.FetchedAt); err != nil {
		return fmt.Errorf("storing loans: %w", err)
	}

	snap := summarize(state.Campaigns, state.Loans, state.FetchedAt)
	s.metrics.Observe(snap)

	var (
		ev      Event
		publish bool
	)

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.lastPollAt = state.FetchedAt
	s.pollCount++
	s.lastError = ""

	if !prevExists {
		s.nextEventID++
		ev = Event{
			ID:        s.nextEventID,
			Type:      "snapshot",
			Timestamp: state.FetchedAt,
			Snapshot:  snap,
		}
		publish = true
	} else {
		delta := diffSnapshots(prev, snap)
		if !delta.isZero() {
			s.nextEventID++
			ev = Event{
				ID:        s.nextEventID,
				Type:      "ledger_delta",
				Timestamp: state.FetchedAt,
				Snapshot:  snap,
				Delta:     delta,
			}
			publish = true
		}
	}
	s.mu.Unlock()

	if publish {
		s.publishEvent(ev)
		s.log.Debug("ledger changed", "event", ev.ID, "type", ev.Type,
			"campaigns", snap.Campaigns, "loans", snap.Loans)
	}
	return nil
}

func summarize(campaigns []model.CampaignSnapshot, loans []model.LoanSnapshot, at time.Time) Snapshot {
	snap := Snapshot{
		At:           at,
		Campaigns:    len(campaigns),
		Loans:        len(loans),
		LoansByStage: make(map[model.LoanStage]int),
	}
	for _, c := range campaigns {
		if !engine.IsEnded(c.Deadline, at) {
			snap.OpenCampaigns++
		}
		if engine.GoalMet(c) {
			snap.FundedCampaigns++
		}
		snap.Raised = snap.Raised.Add(c.AmountCollected)
	}
	for _, l := range loans {
		snap.LoansByStage[engine.StageOf(l.Status)]++
		snap.Lent = snap.Lent.Add(l.TotalContributed)
		snap.Repaid = snap.Repaid.Add(l.AmountRepaid)
	}
	return snap
}

func diffSnapshots(prev, curr Snapshot) Delta {
	d := Delta{
		Campaigns:       curr.Campaigns - prev.Campaigns,
		OpenCampaigns:   curr.OpenCampaigns - prev.OpenCampaigns,
		FundedCampaigns: curr.FundedCampaigns - prev.FundedCampaigns,
		Raised:          curr.Raised.Sub(prev.Raised),
		Loans:           curr.Loans - prev.Loans,
		Lent:            curr.Lent.Sub(prev.Lent),
		Repaid:          curr.Repaid.Sub(prev.Repaid),
	}
	for stage, n := range curr.LoansByStage {
		if diff := n - prev.LoansByStage[stage]; diff != 0 {
			if d.Stages == nil {
				d.Stages = make(map[model.LoanStage]int)
			}
			d.Stages[stage] = diff
		}
	}
	for stage, n := range prev.LoansByStage {
		if _, ok := curr.LoansByStage[stage]; !ok && n != 0 {
			if d.Stages == nil {
				d.Stages = make(map[model.LoanStage]int)
			}
			d.Stages[stage] = -n
		}
	}
	return d
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		Caller:          s.cfg.Caller,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
