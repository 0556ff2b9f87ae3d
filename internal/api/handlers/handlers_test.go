package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/fundnav/internal/report"
	"github.com/wonny/fundnav/internal/scheduler"
	"github.com/wonny/fundnav/internal/valuation"
	"github.com/wonny/fundnav/pkg/logger"
)

func codeList(n int) string {
	codes := make([]string, n)
	for i := range codes {
		codes[i] = fmt.Sprintf("%06d", i+1)
	}
	return strings.Join(codes, ",")
}

func TestParseCodes(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []string
		wantErr string
	}{
		{name: "single", raw: "110011", want: []string{"110011"}},
		{name: "trims and skips blanks", raw: " 110011, ,161725,", want: []string{"110011", "161725"}},
		{name: "duplicates kept", raw: "110011,110011", want: []string{"110011", "110011"}},
		{name: "exactly max", raw: codeList(MaxCodes), want: strings.Split(codeList(MaxCodes), ",")},
		{name: "empty", raw: "", wantErr: "codes is required"},
		{name: "only separators", raw: " , ,", wantErr: "codes is required"},
		{name: "five digits", raw: "11001", wantErr: `invalid fund code "11001"`},
		{name: "letters", raw: "110011,ABCDEF", wantErr: `invalid fund code "ABCDEF"`},
		{name: "prefixed key", raw: "SH600000", wantErr: "invalid fund code"},
		{name: "over max", raw: codeList(MaxCodes + 1), wantErr: fmt.Sprintf("at most %d codes", MaxCodes)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCodes(tt.raw)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type recordingEstimator struct {
	codes []string
}

func (r *recordingEstimator) EstimateMany(ctx context.Context, codes []string) []valuation.FundEstimate {
	r.codes = codes
	out := make([]valuation.FundEstimate, len(codes))
	for i, code := range codes {
		out[i] = valuation.Basis{FundCode: code, LastNav: 1, Timestamp: time.Now()}.Unavailable("no quotes", "test")
	}
	return out
}

type mapSnapshots map[string]valuation.FundEstimate

func (m mapSnapshots) Get(ctx context.Context, code string) (valuation.FundEstimate, bool, error) {
	if code == "500500" {
		return valuation.FundEstimate{}, false, errors.New("connection reset")
	}
	e, ok := m[code]
	return e, ok, nil
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestEstimate_RejectsBadCodesBeforeEstimating(t *testing.T) {
	est := &recordingEstimator{}
	h := NewEstimateHandler(est, nil, nil, logger.Nop())

	for _, query := range []string{"", "?codes=", "?codes=12345", "?codes=" + codeList(MaxCodes+1)} {
		rec := httptest.NewRecorder()
		h.Estimate(rec, httptest.NewRequest(http.MethodGet, "/api/estimates"+query, nil))

		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
		assert.NotEmpty(t, decodeError(t, rec), query)
	}
	assert.Nil(t, est.codes, "estimator is never reached")
}

func TestEstimate_Summary(t *testing.T) {
	est := &recordingEstimator{}
	h := NewEstimateHandler(est, nil, nil, logger.Nop())

	rec := httptest.NewRecorder()
	h.Estimate(rec, httptest.NewRequest(http.MethodGet, "/api/estimates?codes=161725,110011", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, []string{"161725", "110011"}, est.codes)

	var resp RunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 0, resp.Hit)
	assert.Equal(t, 2, resp.Fail)
	assert.Equal(t, map[string]int{report.BucketOther: 2}, resp.Failures)
	require.Len(t, resp.Estimates, 2)
	assert.Equal(t, "161725", resp.Estimates[0].FundCode)
}

func TestLatest(t *testing.T) {
	rec := httptest.NewRecorder()
	NewEstimateHandler(&recordingEstimator{}, nil, nil, logger.Nop()).
		Latest(rec, httptest.NewRequest(http.MethodGet, "/api/estimates/latest", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	latest := &report.Latest{}
	h := NewEstimateHandler(&recordingEstimator{}, latest, nil, logger.Nop())

	rec = httptest.NewRecorder()
	h.Latest(rec, httptest.NewRequest(http.MethodGet, "/api/estimates/latest", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, decodeError(t, rec), "no valuation round")

	run := report.NewRun(nil, time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC))
	require.NoError(t, latest.Save(context.Background(), run))

	rec = httptest.NewRecorder()
	h.Latest(rec, httptest.NewRequest(http.MethodGet, "/api/estimates/latest", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"estimates":[]`)
}

func TestFund(t *testing.T) {
	stored := valuation.Basis{FundCode: "110011", LastNav: 2}.Unavailable("no quotes", "test")
	snapshots := mapSnapshots{"110011": stored}

	tests := []struct {
		name      string
		snapshots SnapshotStore
		code      string
		status    int
	}{
		{"no database", nil, "110011", http.StatusServiceUnavailable},
		{"found", snapshots, "110011", http.StatusOK},
		{"not stored", snapshots, "999999", http.StatusNotFound},
		{"store error", snapshots, "500500", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewEstimateHandler(&recordingEstimator{}, nil, tt.snapshots, logger.Nop())
			req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/api/estimates/"+tt.code, nil),
				map[string]string{"code": tt.code})

			rec := httptest.NewRecorder()
			h.Fund(rec, req)
			assert.Equal(t, tt.status, rec.Code)

			if tt.status == http.StatusOK {
				var got valuation.FundEstimate
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
				assert.Equal(t, "110011", got.FundCode)
				assert.Equal(t, valuation.MethodUnavailable, got.Method)
			}
		})
	}
}

type fixedStats map[string]scheduler.JobStats

func (f fixedStats) GetJobStats() map[string]scheduler.JobStats {
	return f
}

func TestJobsStats(t *testing.T) {
	h := NewJobsHandler(fixedStats{"fund_valuation": {JobName: "fund_valuation", TotalRuns: 2, SuccessRate: 0.5}})

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]scheduler.JobStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 2, got["fund_valuation"].TotalRuns)
	assert.Equal(t, 0.5, got["fund_valuation"].SuccessRate)
}
