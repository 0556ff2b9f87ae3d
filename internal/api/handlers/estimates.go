package handlers

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/fundnav/internal/report"
	"github.com/wonny/fundnav/internal/valuation"
	"github.com/wonny/fundnav/pkg/logger"
)

// MaxCodes bounds one on-demand batch
const MaxCodes = 50

var fundCodePattern = regexp.MustCompile(`^\d{6}$`)

// Estimator values a batch of funds
type Estimator interface {
	EstimateMany(ctx context.Context, fundCodes []string) []valuation.FundEstimate
}

// SnapshotStore serves the persisted latest estimate of one fund
type SnapshotStore interface {
	Get(ctx context.Context, fundCode string) (valuation.FundEstimate, bool, error)
}

// EstimateHandler handles estimate API endpoints
// ⭐ SSOT: 추정 API 핸들러는 이 구조체에서만
type EstimateHandler struct {
	estimator Estimator
	latest    *report.Latest
	snapshots SnapshotStore
	logger    *logger.Logger
}

// NewEstimateHandler creates a new estimate handler. latest and snapshots may be nil.
func NewEstimateHandler(estimator Estimator, latest *report.Latest, snapshots SnapshotStore, log *logger.Logger) *EstimateHandler {
	return &EstimateHandler{
		estimator: estimator,
		latest:    latest,
		snapshots: snapshots,
		logger:    log.WithModule("estimate_handler"),
	}
}

// RunResponse is one batch of estimates with its summary
type RunResponse struct {
	Timestamp time.Time                `json:"timestamp"`
	Total     int                      `json:"total"`
	Hit       int                      `json:"hit"`
	Fail      int                      `json:"fail"`
	Failures  map[string]int           `json:"failures"`
	Estimates []valuation.FundEstimate `json:"estimates"`
}

func newRunResponse(run *report.Run) RunResponse {
	estimates := run.Estimates
	if estimates == nil {
		estimates = []valuation.FundEstimate{}
	}
	return RunResponse{
		Timestamp: run.Timestamp,
		Total:     len(run.Estimates),
		Hit:       len(run.Hits),
		Fail:      len(run.Fails),
		Failures:  report.FailureCounts(run.Fails),
		Estimates: estimates,
	}
}

// Estimate values the requested funds on demand
// GET /api/estimates?codes=110011,161725
func (h *EstimateHandler) Estimate(w http.ResponseWriter, r *http.Request) {
	codes, err := parseCodes(r.URL.Query().Get("codes"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	estimates := h.estimator.EstimateMany(r.Context(), codes)
	respondJSON(w, http.StatusOK, newRunResponse(report.NewRun(estimates, time.Now())))
}

// Latest returns the last scheduled run
// GET /api/estimates/latest
func (h *EstimateHandler) Latest(w http.ResponseWriter, r *http.Request) {
	if h.latest == nil {
		respondError(w, http.StatusNotFound, "no scheduled valuation is running")
		return
	}

	run := h.latest.Get()
	if run == nil {
		respondError(w, http.StatusNotFound, "no valuation round completed yet")
		return
	}

	respondJSON(w, http.StatusOK, newRunResponse(run))
}

// Fund returns the persisted latest estimate of one fund
// GET /api/estimates/{code}
func (h *EstimateHandler) Fund(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		respondError(w, http.StatusServiceUnavailable, "persisted estimates require DATABASE_URL")
		return
	}

	code := mux.Vars(r)["code"]

	estimate, found, err := h.snapshots.Get(r.Context(), code)
	if err != nil {
		h.logger.WithError(err).WithField("fund_code", code).Error("Failed to get estimate")
		respondError(w, http.StatusInternalServerError, "failed to get estimate")
		return
	}
	if !found {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no estimate stored for %s", code))
		return
	}

	respondJSON(w, http.StatusOK, estimate)
}

func parseCodes(raw string) ([]string, error) {
	var codes []string
	for _, c := range strings.Split(raw, ",") {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if !fundCodePattern.MatchString(c) {
			return nil, fmt.Errorf("invalid fund code %q", c)
		}
		codes = append(codes, c)
	}

	if len(codes) == 0 {
		return nil, fmt.Errorf("codes is required")
	}
	if len(codes) > MaxCodes {
		return nil, fmt.Errorf("at most %d codes per request, got %d", MaxCodes, len(codes))
	}
	return codes, nil
}
