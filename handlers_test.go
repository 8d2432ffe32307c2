package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"placement-engine/config"
	"placement-engine/feed"
	"placement-engine/models"
	"placement-engine/store"
)

type fakeStore struct {
	mu      sync.Mutex
	runs    map[uuid.UUID]store.Run
	order   []uuid.UUID
	players []store.PlayerHands
	history map[string][]models.Measurement
	saved   []models.Measurement
	saveErr error
	listErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		runs:    make(map[uuid.UUID]store.Run),
		history: make(map[string][]models.Measurement),
	}
}

func (f *fakeStore) SaveRun(ctx context.Context, run *store.Run) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	f.runs[run.ID] = *run
	f.order = append(f.order, run.ID)
	return nil
}

func (f *fakeStore) GetRun(ctx context.Context, id uuid.UUID) (*store.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	run, ok := f.runs[id]
	if !ok {
		return nil, fmt.Errorf("placement run %s: %w", id, store.ErrNotFound)
	}
	return &run, nil
}

func (f *fakeStore) GetRunBalls(ctx context.Context, id uuid.UUID) ([]models.BattedBall, error) {
	run, err := f.GetRun(ctx, id)
	if err != nil {
		return nil, err
	}
	return run.Balls, nil
}

func (f *fakeStore) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	runs := []store.Run{}
	for i := len(f.order) - 1; i >= 0 && len(runs) < limit; i-- {
		runs = append(runs, f.runs[f.order[i]])
	}
	return runs, nil
}

func (f *fakeStore) ListPlayers(ctx context.Context) ([]store.PlayerHands, error) {
	return f.players, f.listErr
}

func (f *fakeStore) LoadBattedBalls(ctx context.Context, player string, hand models.Handedness) ([]models.Measurement, error) {
	return f.history[player+"_"+string(hand)], nil
}

func (f *fakeStore) SaveBattedBalls(ctx context.Context, ms []models.Measurement) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, ms...)
	return int64(len(ms)), nil
}

type fakeFeed struct {
	items []feed.Item
	query feed.Query
}

func (f *fakeFeed) Configured() bool { return true }

func (f *fakeFeed) FetchBattedBalls(ctx context.Context, q feed.Query) ([]feed.Item, error) {
	f.query = q
	return f.items, nil
}

func (f *fakeFeed) FetchPlayers(ctx context.Context, q feed.Query) ([]feed.Player, error) {
	f.query = q
	var players []feed.Player
	for _, it := range f.items {
		players = append(players, feed.Player{PlayerID: string(it.BatterID), Player: it.BatterName, Handedness: models.Handedness(it.BatSide)})
	}
	return players, nil
}

func (f *fakeFeed) CacheSize() int { return 1 }

func newTestServer(t *testing.T, st *fakeStore, fd battedBallFeed) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Placement.GridStep = 20
	cfg.SampleDir = t.TempDir()
	return newServer(cfg, st, fd)
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func decodePlacement(t *testing.T, rr *httptest.ResponseRecorder) placementResponse {
	t.Helper()
	var resp placementResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return resp
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) APIError {
	t.Helper()
	var apiErr APIError
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &apiErr), rr.Body.String())
	return apiErr
}

func point(x, y float64, hand string) map[string]interface{} {
	return map[string]interface{}{"x": x, "y": y, "handedness": hand}
}

func TestHealthHandler(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil)

	rr := doJSON(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"healthy"`)
}

func TestCreatePlacementInlineBalls(t *testing.T) {
	st := newFakeStore()
	s := newTestServer(t, st, nil)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/placements", map[string]interface{}{
		"player":     "Judge",
		"handedness": "R",
		"balls":      []interface{}{point(100, 300, "")},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	resp := decodePlacement(t, rr)
	assert.NotEqual(t, uuid.Nil, resp.RunID)
	assert.Equal(t, models.ModeMinDistance, resp.Result.Mode)
	assert.Equal(t, models.Position{X: 100, Y: 290}, resp.Result.Zone(models.Left).Position)
	assert.InDelta(t, 10, resp.Result.TotalDistance, 1e-9)
	assert.Equal(t, 1, resp.BallCount)
	assert.Equal(t, "/api/v1/placements/"+resp.RunID.String()+"/plot.png", resp.Links["plot"])

	saved, err := st.GetRun(context.Background(), resp.RunID)
	require.NoError(t, err)
	assert.Equal(t, "Judge", saved.Player)
	assert.Len(t, saved.Balls, 1)
}

func TestCreatePlacementFiltersBySide(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/placements", map[string]interface{}{
		"handedness": "L",
		"balls": []interface{}{
			point(100, 300, "L"),
			point(210, 300, "R"),
			point(150, 350, ""),
		},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	resp := decodePlacement(t, rr)
	assert.Equal(t, 2, resp.BallCount, "right-handed ball is excluded")
	assert.Equal(t, 2, resp.Result.Summary.BallsTotal)
}

func TestCreatePlacementBothSidesAverages(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/placements", map[string]interface{}{
		"player":     "Soto",
		"handedness": "B",
		"balls":      []interface{}{point(100, 300, "L"), point(100, 300, "R")},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	resp := decodePlacement(t, rr)
	assert.Equal(t, models.Position{X: 100, Y: 290}, resp.Result.Zone(models.Left).Position)
	assert.Equal(t, 2, resp.BallCount)
	assert.Equal(t, models.HandBoth, resp.Hand)
}

func TestCreatePlacementBothSidesWithEmptySide(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/placements", map[string]interface{}{
		"handedness": "B",
		"balls":      []interface{}{point(100, 300, "L")},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	assert.Equal(t, "no_data", decodeError(t, rr).Code)
}

func TestCreatePlacementMissingCoordinate(t *testing.T) {
	st := newFakeStore()
	s := newTestServer(t, st, nil)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/placements", map[string]interface{}{
		"balls": []interface{}{point(100, 300, ""), map[string]interface{}{"x": 120}},
	})
	require.Equal(t, http.StatusBadRequest, rr.Code)

	apiErr := decodeError(t, rr)
	assert.Equal(t, "invalid_input", apiErr.Code)
	assert.Equal(t, "y", apiErr.Details["field"])
	assert.EqualValues(t, 1, apiErr.Details["index"])
	assert.Empty(t, st.runs, "rejected batches are not persisted")
}

func TestCreatePlacementConfigOverride(t *testing.T) {
	tests := []struct {
		name     string
		config   interface{}
		wantCode int
		wantErr  string
	}{
		{"coverage mode", map[string]interface{}{"mode": "coverage"}, http.StatusCreated, ""},
		{"zero step", map[string]interface{}{"grid_step": 0}, http.StatusBadRequest, "invalid_configuration"},
		{"unknown mode", map[string]interface{}{"mode": "zone"}, http.StatusBadRequest, "invalid_configuration"},
		{"unknown option", map[string]interface{}{"speed": 9}, http.StatusBadRequest, "invalid_configuration"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, newFakeStore(), nil)
			rr := doJSON(t, s, http.MethodPost, "/api/v1/placements", map[string]interface{}{
				"balls":  []interface{}{point(100, 300, "")},
				"config": tt.config,
			})
			assert.Equal(t, tt.wantCode, rr.Code, rr.Body.String())
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, decodeError(t, rr).Code)
			}
		})
	}
}

func TestCreatePlacementDefaultsAreNotMutated(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/placements", map[string]interface{}{
		"balls":  []interface{}{point(100, 300, "")},
		"config": map[string]interface{}{"mode": "coverage", "grid_step": 10},
	})
	require.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, models.ModeMinDistance, s.config.Placement.Mode)
	assert.Equal(t, 20.0, s.config.Placement.GridStep)
}

func TestCreatePlacementFromMeasurements(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/placements", map[string]interface{}{
		"handedness": "R",
		"config":     map[string]interface{}{"mode": "coverage"},
		"measurements": []interface{}{
			map[string]interface{}{"exit_velocity_mph": 100, "launch_angle_deg": 30, "spray_angle_deg": 0, "hangtime_s": 5},
			map[string]interface{}{"exit_velocity_mph": 100, "launch_angle_deg": 30, "spray_angle_deg": 0, "hangtime_s": 5},
		},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	resp := decodePlacement(t, rr)
	cf := resp.Result.Zone(models.Center)
	assert.Equal(t, 2, cf.Total)
	assert.Equal(t, 2, cf.Caught)
	assert.True(t, cf.Position.IsValid())
	assert.False(t, resp.Result.Zone(models.Left).Position.IsValid(), "no balls pulled left")
}

func TestCreatePlacementFromStoredHistory(t *testing.T) {
	st := newFakeStore()
	st.history["Judge_R"] = []models.Measurement{
		{ExitVelocityMPH: models.Float(95), LaunchAngleDeg: models.Float(28), SprayAngleDeg: models.Float(-25), HangTime: models.Float(4.5)},
	}
	s := newTestServer(t, st, nil)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/placements", map[string]interface{}{
		"player":     "Judge",
		"handedness": "R",
		"config":     map[string]interface{}{"mode": "coverage"},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	resp := decodePlacement(t, rr)
	assert.Equal(t, 1, resp.Result.Zone(models.Left).Total)
}

func straightawayMeasurements(hands ...string) []interface{} {
	out := make([]interface{}, 0, len(hands))
	for _, h := range hands {
		out = append(out, map[string]interface{}{
			"exit_velocity_mph": 100, "launch_angle_deg": 30, "spray_angle_deg": 0, "hangtime_s": 5, "handedness": h,
		})
	}
	return out
}

func TestCreatePlacementConvertedBallsChooseMode(t *testing.T) {
	meterZones := map[string]interface{}{
		"lf": map[string]interface{}{"min_x": -80, "max_x": -20, "min_y": 40, "max_y": 100},
		"cf": map[string]interface{}{"min_x": -20, "max_x": 20, "min_y": 60, "max_y": 120},
		"rf": map[string]interface{}{"min_x": 20, "max_x": 80, "min_y": 40, "max_y": 100},
	}
	tests := []struct {
		name   string
		config interface{}
		want   models.Mode
	}{
		{"server default", nil, models.ModeCoverage},
		{"explicit mode", map[string]interface{}{"mode": "min_distance"}, models.ModeMinDistance},
		{"zones in meters", map[string]interface{}{"zones": meterZones}, models.ModeMinDistance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, newFakeStore(), nil)
			body := map[string]interface{}{
				"handedness":   "R",
				"measurements": straightawayMeasurements("R", "R"),
			}
			if tt.config != nil {
				body["config"] = tt.config
			}

			rr := doJSON(t, s, http.MethodPost, "/api/v1/placements", body)
			require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
			assert.Equal(t, tt.want, decodePlacement(t, rr).Result.Mode)
		})
	}
}

func TestCreatePlacementStoredHistoryDefaultsToCoverage(t *testing.T) {
	st := newFakeStore()
	st.history["Judge_R"] = []models.Measurement{
		{ExitVelocityMPH: models.Float(95), LaunchAngleDeg: models.Float(28), SprayAngleDeg: models.Float(0), HangTime: models.Float(4.5)},
	}
	s := newTestServer(t, st, nil)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/placements", map[string]interface{}{
		"player":     "Judge",
		"handedness": "R",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	resp := decodePlacement(t, rr)
	assert.Equal(t, models.ModeCoverage, resp.Result.Mode)
	assert.Equal(t, 1, resp.Result.Zone(models.Center).Caught)
}

func TestCreatePlacementBothSidesCoverageSharedEmptyZone(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/placements", map[string]interface{}{
		"handedness":   "B",
		"config":       map[string]interface{}{"mode": "coverage"},
		"measurements": straightawayMeasurements("L", "R"),
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	resp := decodePlacement(t, rr)
	assert.False(t, resp.Result.Zone(models.Left).Position.IsValid())
	assert.False(t, resp.Result.Zone(models.Right).Position.IsValid())
	assert.True(t, resp.Result.Zone(models.Center).Position.IsValid())
	assert.Equal(t, 1, resp.Result.Zone(models.Center).Total)
	assert.Equal(t, 2, resp.BallCount)
}

func TestCreatePlacementFromSampleFile(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil)
	require.NoError(t, os.WriteFile(filepath.Join(s.config.SampleDir, "Judge_R.csv"),
		[]byte("x,y\n100,300\n"), 0o644))

	rr := doJSON(t, s, http.MethodPost, "/api/v1/placements", map[string]interface{}{
		"player":     "Judge",
		"handedness": "R",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	resp := decodePlacement(t, rr)
	assert.Equal(t, models.Position{X: 100, Y: 290}, resp.Result.Zone(models.Left).Position)
}

func TestCreatePlacementRequiresData(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/placements", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, s, http.MethodPost, "/api/v1/placements", map[string]interface{}{"player": "Judge"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "handedness", decodeError(t, rr).Details["field"])
}

func TestCreatePlacementBadBody(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/placements", strings.NewReader("{"))
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreatePlacementStoreFailure(t *testing.T) {
	st := newFakeStore()
	st.saveErr = errors.New("connection reset")
	s := newTestServer(t, st, nil)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/placements", map[string]interface{}{
		"balls": []interface{}{point(100, 300, "")},
	})
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.NotContains(t, rr.Body.String(), "connection reset")
}

func uploadRequest(t *testing.T, fields map[string]string, csv string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", "Judge_R.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte(csv))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/placements/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadPlacement(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil)

	req := uploadRequest(t, map[string]string{"handedness": "R"}, "hc_x,hc_y\n100,300\n999,999\n")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	resp := decodePlacement(t, rr)
	assert.Equal(t, "Judge_R", resp.Player, "player defaults to the file name")
	assert.Equal(t, 1, resp.BallCount, "out-of-bounds row dropped")
}

func TestUploadPlacementMeasurements(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil)

	csv := "exit_velocity_mph,launch_angle_deg,spray_angle_deg,hangtime_s\n100,30,0,5\n"
	req := uploadRequest(t, map[string]string{"kind": "measurements", "config": `{"mode":"coverage"}`}, csv)
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	resp := decodePlacement(t, rr)
	assert.Equal(t, 1, resp.Result.Zone(models.Center).Caught)
}

func TestUploadPlacementErrors(t *testing.T) {
	tests := []struct {
		name     string
		fields   map[string]string
		csv      string
		wantCode int
	}{
		{"no usable rows", nil, "x,y\n999,999\n", http.StatusBadRequest},
		{"unknown kind", map[string]string{"kind": "video"}, "x,y\n100,300\n", http.StatusBadRequest},
		{"bad handedness", map[string]string{"handedness": "Q"}, "x,y\n100,300\n", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, newFakeStore(), nil)
			rr := httptest.NewRecorder()
			s.router.ServeHTTP(rr, uploadRequest(t, tt.fields, tt.csv))
			assert.Equal(t, tt.wantCode, rr.Code, rr.Body.String())
		})
	}
}

func TestUploadPlacementTooLarge(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil)
	s.config.Server.MaxUploadBytes = 64

	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, uploadRequest(t, nil, "x,y\n"+strings.Repeat("100,300\n", 100)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func createRun(t *testing.T, s *Server) placementResponse {
	t.Helper()
	rr := doJSON(t, s, http.MethodPost, "/api/v1/placements", map[string]interface{}{
		"player":     "Judge",
		"handedness": "R",
		"balls":      []interface{}{point(100, 300, ""), point(150, 350, ""), point(210, 300, "")},
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodePlacement(t, rr)
}

func TestGetPlacement(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil)
	created := createRun(t, s)

	rr := doJSON(t, s, http.MethodGet, "/api/v1/placements/"+created.RunID.String(), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	got := decodePlacement(t, rr)
	assert.Equal(t, created.RunID, got.RunID)
	assert.Equal(t, created.Result, got.Result)
}

func TestGetPlacementErrors(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil)

	rr := doJSON(t, s, http.MethodGet, "/api/v1/placements/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doJSON(t, s, http.MethodGet, "/api/v1/placements/"+uuid.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found", decodeError(t, rr).Code)
}

func TestListPlacements(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil)
	first := createRun(t, s)
	second := createRun(t, s)

	rr := doJSON(t, s, http.MethodGet, "/api/v1/placements?limit=5", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Placements []placementResponse `json:"placements"`
		Count      int                 `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)
	assert.Equal(t, second.RunID, body.Placements[0].RunID, "newest first")
	assert.Equal(t, first.RunID, body.Placements[1].RunID)
}

func TestPlacementExports(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil)
	run := createRun(t, s)

	tests := []struct {
		path        string
		contentType string
		prefix      string
	}{
		{run.Links["csv"], "text/csv", "Zone,X,Y"},
		{run.Links["plot"], "image/png", "\x89PNG"},
		{run.Links["report"], "application/pdf", "%PDF"},
	}

	for _, tt := range tests {
		t.Run(tt.contentType, func(t *testing.T) {
			rr := doJSON(t, s, http.MethodGet, tt.path, nil)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
			assert.Equal(t, tt.contentType, rr.Header().Get("Content-Type"))
			assert.True(t, strings.HasPrefix(rr.Body.String(), tt.prefix))
		})
	}
}

func TestGetPlayersMergesSamples(t *testing.T) {
	st := newFakeStore()
	st.players = []store.PlayerHands{
		{Player: "Soto", Hands: []models.Handedness{models.HandLeft}},
		{Player: "Judge", Hands: []models.Handedness{models.HandRight}},
	}
	s := newTestServer(t, st, nil)
	require.NoError(t, os.WriteFile(filepath.Join(s.config.SampleDir, "Soto_R.csv"), []byte("x,y\n1,2\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(s.config.SampleDir, "Betts_R.csv"), []byte("x,y\n1,2\n"), 0o644))

	rr := doJSON(t, s, http.MethodGet, "/api/v1/players", nil)
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Players []store.PlayerHands `json:"players"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))

	names := make([]string, 0, len(body.Players))
	for _, p := range body.Players {
		names = append(names, p.Player)
	}
	assert.True(t, sort.StringsAreSorted(names))
	assert.Equal(t, []string{"Betts", "Judge", "Soto"}, names)
	assert.Equal(t, []models.Handedness{models.HandLeft, models.HandRight}, body.Players[2].Hands)
}

func TestGetPlayersFromFeed(t *testing.T) {
	st := newFakeStore()
	st.players = []store.PlayerHands{{Player: "Aaron Judge", Hands: []models.Handedness{models.HandLeft}}}
	fd := &fakeFeed{items: []feed.Item{
		{BatterName: "Aaron Judge", BatterID: "592450", BatSide: "R"},
		{BatterName: "Juan Soto", BatterID: "665742", BatSide: "L"},
		{BatterName: "Nobody", BatterID: "1", BatSide: "S"},
	}}
	s := newTestServer(t, st, fd)

	rr := doJSON(t, s, http.MethodGet, "/api/v1/players", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.NotContains(t, rr.Body.String(), "Juan Soto", "feed is only read on request")

	rr = doJSON(t, s, http.MethodGet, "/api/v1/players?source=feed", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var body struct {
		Players []store.PlayerHands `json:"players"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Players, 2)
	assert.Equal(t, "Aaron Judge", body.Players[0].Player)
	assert.Equal(t, []models.Handedness{models.HandLeft, models.HandRight}, body.Players[0].Hands)
	assert.Equal(t, store.PlayerHands{Player: "Juan Soto", Hands: []models.Handedness{models.HandLeft}}, body.Players[1])
	assert.Equal(t, s.config.Feed.PageLimit, fd.query.Limit)
}

func TestGetPlayersFromFeedWithoutFeed(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil)

	rr := doJSON(t, s, http.MethodGet, "/api/v1/players?source=feed", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "feed_not_configured", decodeError(t, rr).Code)
}

func TestGetPlayersStoreFailure(t *testing.T) {
	st := newFakeStore()
	st.listErr = errors.New("boom")
	s := newTestServer(t, st, nil)

	rr := doJSON(t, s, http.MethodGet, "/api/v1/players", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestRefreshData(t *testing.T) {
	st := newFakeStore()
	fd := &fakeFeed{items: []feed.Item{
		{BatterName: "Aaron Judge", BatterID: "592450", BatSide: "R", ExitVelocityMPH: models.Float(104), LaunchAngleDeg: models.Float(27)},
		{BatterName: "Aaron Judge", BatterID: "592450", BatSide: "R", ExitVelocityMPH: models.Float(99), LaunchAngleDeg: models.Float(31)},
	}}
	s := newTestServer(t, st, fd)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/data/refresh", map[string]interface{}{
		"player_ids": []string{"592450"},
		"handedness": "R",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Body.String(), `"stored":2`)

	assert.Len(t, st.saved, 2)
	assert.Equal(t, "Aaron Judge", st.saved[0].Player)
	assert.Equal(t, models.HandRight, fd.query.Handedness)
	assert.Equal(t, s.config.Feed.PageLimit, fd.query.Limit)
}

func TestRefreshDataWithoutFeed(t *testing.T) {
	s := newTestServer(t, newFakeStore(), nil)

	rr := doJSON(t, s, http.MethodPost, "/api/v1/data/refresh", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "feed_not_configured", decodeError(t, rr).Code)
}
