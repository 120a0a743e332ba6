package domain

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/daniil11ru/traccar-report/cli/reporter/delivery"
	"github.com/daniil11ru/traccar-report/cli/reporter/domain/compose"
	"github.com/daniil11ru/traccar-report/cli/reporter/domain/encoding"
	"github.com/daniil11ru/traccar-report/cli/reporter/render"
	"github.com/daniil11ru/traccar-report/cli/reporter/types"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	devices    []types.Device
	devicesErr error
	fixes      map[int64][]types.Fix
	errs       map[int64]error
}

func (r *mockRepository) GetActiveDevices(after, before time.Time) ([]types.Device, error) {
	return r.devices, r.devicesErr
}

func (r *mockRepository) GetTrack(device types.Device, start, end time.Time) (types.Track, error) {
	if err := r.errs[device.ID]; err != nil {
		return types.Track{}, err
	}
	return types.Track{Device: device, Start: start, End: end, Fixes: r.fixes[device.ID]}, nil
}

type mockSink struct {
	name string
	err  error

	mu           sync.Mutex
	reports      []delivery.Report
	filesPresent bool
}

func (s *mockSink) Name() string { return s.name }

func (s *mockSink) Deliver(ctx context.Context, report delivery.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, pngErr := os.Stat(report.PNGPath)
	_, htmlErr := os.Stat(report.HTMLPath)
	s.filesPresent = pngErr == nil && htmlErr == nil
	s.reports = append(s.reports, report)
	return s.err
}

type mockPublisher struct {
	mu     sync.Mutex
	events []types.ReportEvent
}

func (p *mockPublisher) Save(m interface{ ToBytes() ([]byte, error) }) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, m.(types.ReportEvent))
	return nil
}

var testWindow = ReportWindow{
	Start: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2024, time.June, 2, 0, 0, 0, 0, time.UTC),
	Date:  "2024-06-01",
}

func fixesAt(n int) []types.Fix {
	fixes := make([]types.Fix, n)
	for i := range fixes {
		fixes[i] = types.Fix{
			Latitude:  55.0 + float64(i)*0.01,
			Longitude: 37.0 + float64(i)*0.01,
			Course:    45,
			Timestamp: testWindow.Start.Add(time.Duration(i) * time.Minute),
			Speed:     10,
		}
	}
	return fixes
}

func pngRenderer() render.Renderer {
	return render.Func(func(ctx context.Context, doc compose.MapDocument, htmlPath string) ([]byte, error) {
		if strings.HasPrefix(doc.Title, "broken") {
			return nil, errors.New("chrome crashed")
		}
		return []byte("png"), nil
	})
}

func newPipeline(t *testing.T, repo TrackRepository, sinks ...delivery.Sink) (*GenerateReports, *mockPublisher) {
	log.SetOutput(io.Discard)

	publisher := &mockPublisher{}
	return &GenerateReports{
		Repository: repo,
		Composer:   compose.NewComposer(encoding.DefaultPalette()),
		Renderer:   pngRenderer(),
		Sinks:      sinks,
		Events:     publisher,
		OutputDir:  t.TempDir(),
	}, publisher
}

func TestRunMixedOutcomes(t *testing.T) {
	repo := &mockRepository{
		devices: []types.Device{
			{ID: 1, Name: "truck"},
			{ID: 2, Name: "idle"},
			{ID: 3, Name: "offline"},
			{ID: 4, Name: "broken"},
		},
		fixes: map[int64][]types.Fix{1: fixesAt(3), 4: fixesAt(2)},
		errs:  map[int64]error{3: errors.New("db timeout")},
	}
	email := &mockSink{name: "email"}
	webhook := &mockSink{name: "webhook"}
	pipeline, publisher := newPipeline(t, repo, email, webhook)

	summary, err := pipeline.Run(context.Background(), testWindow)
	require.NoError(t, err)
	require.Len(t, summary.Results, 4)
	assert.Equal(t, "2024-06-01", summary.Date)

	delivered := summary.Results[0]
	assert.Equal(t, types.StatusDelivered, delivered.Status)
	assert.Equal(t, 3, delivered.Markers)
	assert.Greater(t, delivered.DistanceKm, 0.0)
	assert.Empty(t, delivered.Errors)

	assert.Equal(t, types.StatusSkipped, summary.Results[1].Status)
	assert.Equal(t, ReasonNoPositions, summary.Results[1].Reason)

	fetchFailed := summary.Results[2]
	assert.Equal(t, types.StatusFailed, fetchFailed.Status)
	assert.Equal(t, StageFetch, fetchFailed.Stage)
	var stageErr *StageError
	require.ErrorAs(t, fetchFailed.Err(), &stageErr)
	assert.Equal(t, int64(3), stageErr.DeviceID)

	renderFailed := summary.Results[3]
	assert.Equal(t, types.StatusFailed, renderFailed.Status)
	assert.Equal(t, StageRender, renderFailed.Stage)
	assert.Contains(t, renderFailed.Reason, "chrome crashed")

	assert.Equal(t, 1, summary.Count(types.StatusDelivered))
	assert.Equal(t, 1, summary.Count(types.StatusSkipped))
	assert.Equal(t, 2, summary.Count(types.StatusFailed))

	for _, sink := range []*mockSink{email, webhook} {
		require.Len(t, sink.reports, 1, sink.name)
		assert.True(t, sink.filesPresent, sink.name)
		report := sink.reports[0]
		assert.Equal(t, "2024-06-01", report.Date)
		assert.True(t, strings.HasSuffix(report.PNGPath, "track_report_1_truck_2024-06-01.png"))
		assert.True(t, strings.HasSuffix(report.HTMLPath, "temp_track_1_truck_2024-06-01.html"))
	}

	// временные файлы удалены при любом исходе
	entries, err := os.ReadDir(pipeline.OutputDir)
	require.NoError(t, err)
	assert.Empty(t, entries)

	require.Len(t, publisher.events, 4)
	statuses := map[int64]string{}
	for _, e := range publisher.events {
		statuses[e.DeviceID] = e.Status
		assert.Equal(t, "2024-06-01", e.Date)
		assert.NotEmpty(t, e.ID)
	}
	assert.Equal(t, map[int64]string{
		1: types.StatusDelivered,
		2: types.StatusSkipped,
		3: types.StatusFailed,
		4: types.StatusFailed,
	}, statuses)
}

func TestRunPartialDelivery(t *testing.T) {
	repo := &mockRepository{
		devices: []types.Device{{ID: 1, Name: "truck"}},
		fixes:   map[int64][]types.Fix{1: fixesAt(2)},
	}
	email := &mockSink{name: "email"}
	webhook := &mockSink{name: "webhook", err: errors.New("status 500")}
	pipeline, _ := newPipeline(t, repo, email, webhook)

	summary, err := pipeline.Run(context.Background(), testWindow)
	require.NoError(t, err)

	result := summary.Results[0]
	assert.Equal(t, types.StatusDelivered, result.Status)
	require.Len(t, result.Errors, 1)
	var stageErr *StageError
	require.ErrorAs(t, result.Errors[0], &stageErr)
	assert.Equal(t, StageWebhook, stageErr.Stage)
	assert.ErrorIs(t, result.Err(), webhook.err)
}

func TestRunAllSinksFail(t *testing.T) {
	repo := &mockRepository{
		devices: []types.Device{{ID: 1, Name: "truck"}},
		fixes:   map[int64][]types.Fix{1: fixesAt(2)},
	}
	email := &mockSink{name: "email", err: errors.New("smtp refused")}
	webhook := &mockSink{name: "webhook", err: errors.New("timeout")}
	pipeline, _ := newPipeline(t, repo, email, webhook)

	summary, err := pipeline.Run(context.Background(), testWindow)
	require.NoError(t, err)

	result := summary.Results[0]
	assert.Equal(t, types.StatusFailed, result.Status)
	assert.Equal(t, StageEmail, result.Stage)
	assert.Equal(t, "smtp refused", result.Reason)
	assert.Len(t, result.Errors, 2)
	// оба канала получили отчет независимо друг от друга
	assert.Len(t, webhook.reports, 1)
}

func TestRunDeviceListError(t *testing.T) {
	repo := &mockRepository{devicesErr: errors.New("connection refused")}
	pipeline, publisher := newPipeline(t, repo)

	summary, err := pipeline.Run(context.Background(), testWindow)
	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, StageFetch, stageErr.Stage)
	assert.ErrorIs(t, err, repo.devicesErr)
	assert.Empty(t, summary.Results)
	assert.Empty(t, publisher.events)
}

func TestRunNoDevices(t *testing.T) {
	pipeline, _ := newPipeline(t, &mockRepository{})

	summary, err := pipeline.Run(context.Background(), testWindow)
	require.NoError(t, err)
	assert.Empty(t, summary.Results)
}

func TestRunParallelKeepsDeviceOrder(t *testing.T) {
	repo := &mockRepository{fixes: map[int64][]types.Fix{}}
	for i := int64(1); i <= 8; i++ {
		repo.devices = append(repo.devices, types.Device{ID: i})
		repo.fixes[i] = fixesAt(int(i))
	}
	sink := &mockSink{name: "email"}
	pipeline, publisher := newPipeline(t, repo, sink)
	pipeline.Workers = 4

	summary, err := pipeline.Run(context.Background(), testWindow)
	require.NoError(t, err)
	require.Len(t, summary.Results, 8)
	for i, r := range summary.Results {
		assert.Equal(t, int64(i+1), r.Device.ID)
		assert.Equal(t, types.StatusDelivered, r.Status)
		assert.Equal(t, i+1, r.Markers)
	}
	assert.Len(t, sink.reports, 8)
	assert.Len(t, publisher.events, 8)
}

func TestRunCancelled(t *testing.T) {
	repo := &mockRepository{
		devices: []types.Device{{ID: 1}},
		fixes:   map[int64][]types.Fix{1: fixesAt(2)},
	}
	pipeline, _ := newPipeline(t, repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := pipeline.Run(ctx, testWindow)
	require.NoError(t, err)
	assert.Equal(t, types.StatusFailed, summary.Results[0].Status)
	assert.ErrorIs(t, summary.Results[0].Err(), context.Canceled)
}

func TestRunEncodesFixesIntoDocument(t *testing.T) {
	ts := testWindow.Start.Add(8 * time.Hour)
	repo := &mockRepository{
		devices: []types.Device{{ID: 9, Name: "boat"}},
		fixes: map[int64][]types.Fix{9: {
			{Latitude: 10, Longitude: 20, Course: 90, Timestamp: ts, Speed: 0, Altitude: 0},
			{Latitude: 10.5, Longitude: 20.5, Course: 180, Timestamp: ts.Add(time.Minute), Speed: 25, Altitude: 100},
			{Latitude: 11, Longitude: 21, Course: 270, Timestamp: ts.Add(2 * time.Minute), Speed: 50, Altitude: 200},
		}},
	}
	pipeline, _ := newPipeline(t, repo)

	var rendered compose.MapDocument
	var htmlSeen bool
	pipeline.Renderer = render.Func(func(ctx context.Context, doc compose.MapDocument, htmlPath string) ([]byte, error) {
		rendered = doc
		_, err := os.Stat(htmlPath)
		htmlSeen = err == nil
		return []byte("png"), nil
	})

	summary, err := pipeline.Run(context.Background(), testWindow)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDelivered, summary.Results[0].Status)
	assert.True(t, htmlSeen)

	assert.Equal(t, "boat (2024-06-01)", rendered.Title)
	require.Len(t, rendered.Path.Points, 3)
	require.Len(t, rendered.Markers, 3)

	expected := []struct {
		color    string
		size     int
		rotation float64
	}{
		{"#ff0000", 20, 0},
		{"#930000", 27, 90},
		{"#280000", 35, 180},
	}
	for i, e := range expected {
		m := rendered.Markers[i]
		assert.Equal(t, e.color, m.Color.Hex())
		assert.Equal(t, e.size, m.Size.Width)
		assert.Equal(t, e.size, m.Size.Height)
		assert.Equal(t, e.rotation, m.Rotation)
	}

	assert.Equal(t, types.Position2D{Latitude: 10, Longitude: 20}, rendered.Bounds.SouthWest)
	assert.Equal(t, types.Position2D{Latitude: 11, Longitude: 21}, rendered.Bounds.NorthEast)
	assert.Equal(t, types.Position2D{Latitude: 10, Longitude: 20}, rendered.View.Center)
}

type blockingSink struct {
	started chan struct{}
	release chan struct{}

	mu          sync.Mutex
	inFlight    int
	maxInFlight int
}

func (s *blockingSink) Name() string { return "email" }

func (s *blockingSink) Deliver(ctx context.Context, report delivery.Report) error {
	s.mu.Lock()
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.mu.Unlock()

	select {
	case s.started <- struct{}{}:
	default:
	}
	<-s.release

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
	return nil
}

func TestRunRejectsOverlappingBatch(t *testing.T) {
	repo := &mockRepository{
		devices: []types.Device{{ID: 1, Name: "truck"}},
		fixes:   map[int64][]types.Fix{1: fixesAt(3)},
	}
	sink := &blockingSink{started: make(chan struct{}, 1), release: make(chan struct{})}
	pipeline, _ := newPipeline(t, repo, sink)

	type outcome struct {
		summary Summary
		err     error
	}
	first := make(chan outcome, 1)
	go func() {
		summary, err := pipeline.Run(context.Background(), testWindow)
		first <- outcome{summary, err}
	}()

	select {
	case <-sink.started:
	case <-time.After(5 * time.Second):
		t.Fatal("первый пакет не дошел до доставки")
	}

	summary, err := pipeline.Run(context.Background(), testWindow)
	assert.ErrorIs(t, err, ErrBatchRunning)
	assert.Empty(t, summary.Results)

	close(sink.release)
	res := <-first
	require.NoError(t, res.err)
	require.Len(t, res.summary.Results, 1)
	assert.Equal(t, types.StatusDelivered, res.summary.Results[0].Status)
	assert.Equal(t, 1, sink.maxInFlight)

	// после завершения пакета запуск снова доступен
	summary, err = pipeline.Run(context.Background(), testWindow)
	require.NoError(t, err)
	assert.Equal(t, types.StatusDelivered, summary.Results[0].Status)
}
