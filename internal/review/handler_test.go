package review

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geovintage/boundary-cli/internal/store"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeStore struct {
	runs      []store.RunSummary
	decisions []store.Decision
	err       error
}

func (f *fakeStore) ListRuns(context.Context, int) ([]store.RunSummary, error) {
	return f.runs, f.err
}

func (f *fakeStore) GetRun(_ context.Context, runID string) (*store.RunSummary, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.runs {
		if f.runs[i].ID == runID {
			return &f.runs[i], nil
		}
	}
	return nil, eris.Wrapf(store.ErrNotFound, "run %s", runID)
}

func (f *fakeStore) Decisions(context.Context, string, string) ([]store.Decision, error) {
	return f.decisions, f.err
}

func newServer(t *testing.T, fs *fakeStore) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewHandler(fs).Router([]string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf [4096]byte
	n, _ := resp.Body.Read(buf[:])
	return resp, buf[:n]
}

func TestHealth(t *testing.T) {
	srv := newServer(t, &fakeStore{})
	resp, body := get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestListRuns(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	srv := newServer(t, &fakeStore{runs: []store.RunSummary{{
		ID: "run-1", Layer: "commune", OldVintage: "2023", NewVintage: "2024",
		AutoMatches: 5, StartedAt: now, FinishedAt: now,
	}}})

	resp, body := get(t, srv.URL+"/runs")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var runs []store.RunSummary
	require.NoError(t, json.Unmarshal(body, &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.Equal(t, 5, runs[0].AutoMatches)
}

func TestListRunsEmpty(t *testing.T) {
	srv := newServer(t, &fakeStore{})
	resp, body := get(t, srv.URL+"/runs")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[]`, string(body))
}

func TestGetRunNotFound(t *testing.T) {
	srv := newServer(t, &fakeStore{})
	resp, _ := get(t, srv.URL+"/runs/missing")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDecisions(t *testing.T) {
	old := "48095"
	srv := newServer(t, &fakeStore{
		runs: []store.RunSummary{{ID: "run-1"}},
		decisions: []store.Decision{{
			RunID: "run-1", OldCode: &old, Disposition: "needs_validation",
			Level: "likely_match", IoU: 0.85, Combined: 0.88,
		}},
	})

	resp, body := get(t, srv.URL+"/runs/run-1/decisions?disposition=needs_validation")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var decisions []store.Decision
	require.NoError(t, json.Unmarshal(body, &decisions))
	require.Len(t, decisions, 1)
	assert.Equal(t, "needs_validation", decisions[0].Disposition)
}

func TestDecisionsBadDisposition(t *testing.T) {
	srv := newServer(t, &fakeStore{runs: []store.RunSummary{{ID: "run-1"}}})
	resp, _ := get(t, srv.URL+"/runs/run-1/decisions?disposition=bogus")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDecisionsUnknownRun(t *testing.T) {
	srv := newServer(t, &fakeStore{})
	resp, _ := get(t, srv.URL+"/runs/ghost/decisions")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStoreErrorMapsTo500(t *testing.T) {
	srv := newServer(t, &fakeStore{err: eris.New("connection refused")})
	resp, _ := get(t, srv.URL+"/runs")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
