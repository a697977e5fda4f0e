package daemon

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/theirongolddev/chainfund/internal/engine"
	"github.com/theirongolddev/chainfund/internal/model"
)

// CampaignEntry pairs a stored campaign with the view derived for the caller.
type CampaignEntry struct {
	Campaign model.CampaignSnapshot `json:"campaign"`
	View     model.CampaignView     `json:"view"`
}

// CampaignDetail is served at /v1/campaigns/{id}.
type CampaignDetail struct {
	CampaignEntry
	Donations []model.Donation  `json:"donations"`
	NFT       *model.NFTDetails `json:"nft,omitempty"`
}

// LoanEntry pairs a stored loan with the view derived for the caller.
type LoanEntry struct {
	Loan model.LoanSnapshot `json:"loan"`
	View model.LoanView     `json:"view"`
}

// Handler returns the daemon's HTTP API.
func (s *Service) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	route := func(pattern string, h http.HandlerFunc) {
		r.Method(http.MethodGet, pattern, s.metrics.WrapHandler(pattern, h))
	}
	route("/healthz", s.handleHealth)
	route("/v1/status", s.handleStatus)
	route("/v1/campaigns", s.handleCampaigns)
	route("/v1/campaigns/{id}", s.handleCampaign)
	route("/v1/loans", s.handleLoans)
	route("/v1/loans/{id}", s.handleLoan)
	route("/v1/events", s.handleEvents)
	route("/v1/stream", s.handleStream)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	return r
}

// writeJSON writes JSON responses with a consistent content type.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// callerOf returns the identity views are derived for: the caller query
// parameter, else the configured address.
func (s *Service) callerOf(r *http.Request) string {
	if c := strings.TrimSpace(r.URL.Query().Get("caller")); c != "" {
		return c
	}
	return s.cfg.Caller
}

func mineOnly(r *http.Request) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get("mine"))
	return v
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.snapshotStatus())
}

func (s *Service) handleCampaigns(w http.ResponseWriter, r *http.Request) {
	caller := s.callerOf(r)
	var (
		cs  []model.CampaignSnapshot
		err error
	)
	if mineOnly(r) {
		cs, err = s.cache.CampaignsByOwner(caller)
	} else {
		cs, err = s.cache.Campaigns()
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	now := s.now()
	out := make([]CampaignEntry, 0, len(cs))
	for _, c := range cs {
		out = append(out, CampaignEntry{Campaign: c, View: engine.DeriveCampaignView(c, caller, now)})
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCampaign serves one stored campaign with its donations and receipt
// token read live from the ledger. Live reads that fail fall back to the
// stored donations and omit the token.
func (s *Service) handleCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "invalid campaign id")
		return
	}
	c, ok, err := s.cache.Campaign(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("campaign %d not found", id))
		return
	}

	ctx := r.Context()
	donations, err := s.mirror.Donations(ctx, id)
	if err == nil {
		if err := s.cache.ReplaceDonations(id, donations); err != nil {
			s.log.Warn("storing donations failed", "campaign", id, "err", err)
		}
	} else {
		s.log.Warn("reading donations failed", "campaign", id, "err", err)
		if donations, err = s.cache.Donations(id); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if donations == nil {
		donations = []model.Donation{}
	}

	caller := s.callerOf(r)
	now := s.now()
	detail := CampaignDetail{
		CampaignEntry: CampaignEntry{Campaign: c, View: engine.DeriveCampaignView(c, caller, now)},
		Donations:     donations,
	}
	if nft, err := s.mirror.NFT(ctx, id); err == nil {
		detail.NFT = &nft
		detail.View = engine.DeriveCampaignViewWithNFT(c, nft, caller, now)
	} else {
		s.log.Warn("reading receipt token failed", "campaign", id, "err", err)
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Service) handleLoans(w http.ResponseWriter, r *http.Request) {
	caller := s.callerOf(r)
	var (
		ls  []model.LoanSnapshot
		err error
	)
	if mineOnly(r) {
		ls, err = s.cache.LoansByBorrower(caller)
	} else {
		ls, err = s.cache.Loans()
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	now := s.now()
	out := make([]LoanEntry, 0, len(ls))
	for _, l := range ls {
		out = append(out, LoanEntry{Loan: l, View: engine.DeriveLoanView(l, caller, now)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Service) handleLoan(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 0 {
		writeError(w, http.StatusBadRequest, "invalid loan id")
		return
	}
	l, ok, err := s.cache.Loan(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("loan %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, LoanEntry{Loan: l, View: engine.DeriveLoanView(l, s.callerOf(r), s.now())})
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}
