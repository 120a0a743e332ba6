package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/daniil11ru/traccar-report/cli/reporter/domain"
	"github.com/daniil11ru/traccar-report/cli/reporter/domain/compose"
	"github.com/daniil11ru/traccar-report/cli/reporter/domain/encoding"
	"github.com/daniil11ru/traccar-report/cli/reporter/source"
	"github.com/daniil11ru/traccar-report/cli/reporter/types"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	devices map[int64]types.Device
	fixes   map[int64][]types.Fix
	start   time.Time
}

func (r *mockRepository) GetDevice(id int64) (types.Device, error) {
	d, ok := r.devices[id]
	if !ok {
		return types.Device{}, fmt.Errorf("%w: ID %d", source.ErrDeviceNotFound, id)
	}
	return d, nil
}

func (r *mockRepository) GetTrack(device types.Device, start, end time.Time) (types.Track, error) {
	r.start = start
	return types.Track{Device: device, Start: start, End: end, Fixes: r.fixes[device.ID]}, nil
}

type mockRunner struct {
	window domain.ReportWindow
	err    error
}

func (m *mockRunner) Run(ctx context.Context, window domain.ReportWindow) (domain.Summary, error) {
	m.window = window
	if m.err != nil {
		return domain.Summary{}, m.err
	}
	return domain.Summary{
		Date: window.Date,
		Results: []domain.Result{
			{Device: types.Device{ID: 1, Name: "truck"}, Status: types.StatusDelivered, Markers: 2},
		},
	}, nil
}

func newTestController(auth Auth) (*Controller, *mockRepository, *mockRunner) {
	gin.SetMode(gin.TestMode)
	log.SetOutput(io.Discard)

	ts := time.Date(2024, time.June, 1, 8, 0, 0, 0, time.UTC)
	repo := &mockRepository{
		devices: map[int64]types.Device{1: {ID: 1, Name: "truck"}, 2: {ID: 2, Name: "idle"}},
		fixes: map[int64][]types.Fix{1: {
			{Latitude: 10, Longitude: 20, Course: 90, Timestamp: ts},
			{Latitude: 11, Longitude: 21, Course: 0, Timestamp: ts.Add(time.Minute), Speed: 50},
		}},
	}
	runner := &mockRunner{}
	handler := NewHandler(repo, compose.NewComposer(encoding.DefaultPalette()), runner, time.UTC)
	return NewController(handler, auth, 0), repo, runner
}

func do(c *Controller, method, target string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	c.Router().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	c, _, _ := newTestController(Auth{Keys: []string{"secret"}})

	w := do(c, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestGetTrack(t *testing.T) {
	c, repo, _ := newTestController(Auth{})

	w := do(c, http.MethodGet, "/devices/1/track?date=2024-06-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC), repo.start)

	var doc struct {
		Title   string `json:"title"`
		Markers []struct {
			Color    string  `json:"color"`
			Rotation float64 `json:"rotation"`
		} `json:"markers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	assert.Equal(t, "truck (2024-06-01)", doc.Title)
	require.Len(t, doc.Markers, 2)
	assert.Equal(t, "#ff0000", doc.Markers[0].Color)
	assert.Equal(t, "#280000", doc.Markers[1].Color)
	assert.Equal(t, 270.0, doc.Markers[1].Rotation)
}

func TestGetTrackErrors(t *testing.T) {
	c, _, _ := newTestController(Auth{})

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"bad id", "/devices/abc/track", http.StatusBadRequest},
		{"bad date", "/devices/1/track?date=01.06.2024", http.StatusBadRequest},
		{"unknown device", "/devices/99/track?date=2024-06-01", http.StatusNotFound},
		{"empty track", "/devices/2/track?date=2024-06-01", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(c, http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestGetGeoJSON(t *testing.T) {
	c, _, _ := newTestController(Auth{})

	w := do(c, http.MethodGet, "/devices/1/geojson?date=2024-06-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/geo+json", w.Header().Get("Content-Type"))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Geometry struct {
				Type string `json:"type"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 3)
	assert.Equal(t, "LineString", fc.Features[0].Geometry.Type)
	assert.Equal(t, "Point", fc.Features[1].Geometry.Type)
}

func TestRunReports(t *testing.T) {
	c, _, runner := newTestController(Auth{})

	w := do(c, http.MethodPost, "/reports?date=2024-06-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2024-06-01", runner.window.Date)

	var summary struct {
		Date    string `json:"date"`
		Results []struct {
			Status string `json:"status"`
		} `json:"results"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, "2024-06-01", summary.Date)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, types.StatusDelivered, summary.Results[0].Status)

	runner.err = errors.New("db down")
	w = do(c, http.MethodPost, "/reports?date=2024-06-01", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRunReportsWhileBatchRunning(t *testing.T) {
	c, _, runner := newTestController(Auth{})
	runner.err = fmt.Errorf("cron: %w", domain.ErrBatchRunning)

	w := do(c, http.MethodPost, "/reports?date=2024-06-01", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "error")
}

func signed(t *testing.T, secret string, method jwt.SigningMethod, exp time.Time) string {
	token := jwt.NewWithClaims(method, jwt.MapClaims{"sub": "ops", "exp": exp.Unix()})
	s, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestAuth(t *testing.T) {
	c, _, _ := newTestController(Auth{Keys: []string{"key-1"}, JWTSecret: "jwt-secret"})
	target := "/devices/1/track?date=2024-06-01"

	tests := []struct {
		name    string
		target  string
		headers map[string]string
		status  int
	}{
		{"no credentials", target, nil, http.StatusUnauthorized},
		{"wrong key", target, map[string]string{"X-API-Key": "key-2"}, http.StatusUnauthorized},
		{"valid key", target, map[string]string{"X-API-Key": "key-1"}, http.StatusOK},
		{"key in query", target + "&api_key=key-1", nil, http.StatusOK},
		{"valid token", target, map[string]string{
			"Authorization": "Bearer " + signed(t, "jwt-secret", jwt.SigningMethodHS256, time.Now().Add(time.Hour)),
		}, http.StatusOK},
		{"expired token", target, map[string]string{
			"Authorization": "Bearer " + signed(t, "jwt-secret", jwt.SigningMethodHS256, time.Now().Add(-time.Hour)),
		}, http.StatusUnauthorized},
		{"foreign secret", target, map[string]string{
			"Authorization": "Bearer " + signed(t, "other", jwt.SigningMethodHS256, time.Now().Add(time.Hour)),
		}, http.StatusUnauthorized},
		{"wrong algorithm", target, map[string]string{
			"Authorization": "Bearer " + signed(t, "jwt-secret", jwt.SigningMethodHS512, time.Now().Add(time.Hour)),
		}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(c, http.MethodGet, tt.target, tt.headers)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
