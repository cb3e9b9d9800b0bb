package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newsystem-ai/recording-insights/internal/model"
	"github.com/newsystem-ai/recording-insights/internal/store"
)

type memStore struct {
	runs map[string]*model.Run
}

func (m *memStore) CreateRun(_ context.Context, rec model.Recording, analysisType string) (*model.Run, error) {
	return &model.Run{ID: "run-1", Recording: rec, AnalysisType: analysisType}, nil
}
func (m *memStore) UpdateRunStatus(context.Context, string, model.RunStatus) error { return nil }
func (m *memStore) RecordStep(context.Context, string, model.StepRecord) error     { return nil }
func (m *memStore) SetRunResult(context.Context, string, *model.AnalysisEnvelope) error {
	return nil
}
func (m *memStore) FailRun(context.Context, string, string, string) error { return nil }

func (m *memStore) GetRun(_ context.Context, id string) (*model.Run, error) {
	if run, ok := m.runs[id]; ok {
		return run, nil
	}
	return nil, eris.New("run not found")
}

func (m *memStore) ListRuns(_ context.Context, filter store.RunFilter) ([]model.Run, error) {
	var out []model.Run
	for _, r := range m.runs {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (m *memStore) Migrate(context.Context) error { return nil }
func (m *memStore) Close() error                  { return nil }

func newTestServer(t *testing.T, st store.Store) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newRouter(st, nil, nil))
	t.Cleanup(srv.Close)
	return srv
}

func TestRouter_Health(t *testing.T) {
	srv := newTestServer(t, &memStore{})

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_GetRun(t *testing.T) {
	st := &memStore{runs: map[string]*model.Run{
		"run-42": {ID: "run-42", Status: model.RunStatusCompleted, AnalysisType: "natural"},
	}}
	srv := newTestServer(t, st)

	resp, err := http.Get(srv.URL + "/v1/runs/run-42")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var run model.Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&run))
	assert.Equal(t, "run-42", run.ID)
	assert.Equal(t, model.RunStatusCompleted, run.Status)
}

func TestRouter_GetRun_NotFound(t *testing.T) {
	srv := newTestServer(t, &memStore{})

	resp, err := http.Get(srv.URL + "/v1/runs/missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_ListRuns(t *testing.T) {
	st := &memStore{runs: map[string]*model.Run{
		"a": {ID: "a", Status: model.RunStatusCompleted},
		"b": {ID: "b", Status: model.RunStatusFailed},
	}}
	srv := newTestServer(t, st)

	resp, err := http.Get(srv.URL + "/v1/runs?status=failed")
	require.NoError(t, err)
	defer resp.Body.Close()

	var runs []model.Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "b", runs[0].ID)
}

func TestRouter_PostAnalyses_BadRequest(t *testing.T) {
	srv := newTestServer(t, &memStore{})

	resp, err := http.Post(srv.URL+"/v1/analyses", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRouter_FindRecordingsFiltersExtensions(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.mp4", "b.mov", "notes.txt", "c.MKV"} {
		require.NoError(t, writeEmptyFile(dir, name))
	}

	videos, err := findRecordings(dir, 0)
	require.NoError(t, err)
	assert.Len(t, videos, 3)

	limited, err := findRecordings(dir, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func writeEmptyFile(dir, name string) error {
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return err
	}
	return f.Close()
}
