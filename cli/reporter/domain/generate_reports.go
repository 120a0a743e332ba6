package domain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/daniil11ru/traccar-report/cli/reporter/artifact"
	"github.com/daniil11ru/traccar-report/cli/reporter/delivery"
	"github.com/daniil11ru/traccar-report/cli/reporter/domain/compose"
	"github.com/daniil11ru/traccar-report/cli/reporter/render"
	"github.com/daniil11ru/traccar-report/cli/reporter/render/leaflet"
	"github.com/daniil11ru/traccar-report/cli/reporter/types"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

type TrackRepository interface {
	GetActiveDevices(after, before time.Time) ([]types.Device, error)
	GetTrack(device types.Device, start, end time.Time) (types.Track, error)
}

// ErrBatchRunning повторный запуск, пока предыдущий пакет отчетов не завершен
var ErrBatchRunning = errors.New("формирование отчетов уже выполняется")

type EventPublisher interface {
	Save(interface{ ToBytes() ([]byte, error) }) error
}

// GenerateReports ежедневный отчет по всем устройствам, обновлявшимся в отчетные сутки
type GenerateReports struct {
	Repository TrackRepository
	Composer   *compose.Composer
	Renderer   render.Renderer
	Sinks      []delivery.Sink
	Events     EventPublisher
	OutputDir  string
	Workers    int
	Leaflet    leaflet.Options

	running sync.Mutex
}

// Run обрабатывает все устройства окна. Одновременно выполняется не больше одного пакета:
// параллельный вызов сразу получает ErrBatchRunning.
func (s *GenerateReports) Run(ctx context.Context, window ReportWindow) (Summary, error) {
	summary := Summary{Date: window.Date, Results: []Result{}}

	if !s.running.TryLock() {
		return summary, ErrBatchRunning
	}
	defer s.running.Unlock()

	devices, err := s.Repository.GetActiveDevices(window.Start, window.End)
	if err != nil {
		return summary, &StageError{Stage: StageFetch, Err: fmt.Errorf("не удалось получить список устройств: %w", err)}
	}
	if len(devices) == 0 {
		log.WithField("date", window.Date).Info("Нет устройств с обновлениями за отчетные сутки")
		return summary, nil
	}

	log.WithFields(log.Fields{
		"date":    window.Date,
		"start":   window.Start,
		"end":     window.End,
		"devices": len(devices),
	}).Info("Формирование отчетов")

	workers := s.Workers
	if workers < 1 {
		workers = 1
	}

	results := make([]Result, len(devices))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, device := range devices {
		i, device := i, device
		g.Go(func() error {
			results[i] = s.RunDevice(ctx, window, device)
			s.publish(window, results[i])
			return nil
		})
	}
	_ = g.Wait()

	summary.Results = results
	log.WithFields(log.Fields{
		"date":      window.Date,
		"delivered": summary.Count(types.StatusDelivered),
		"skipped":   summary.Count(types.StatusSkipped),
		"failed":    summary.Count(types.StatusFailed),
	}).Info("Формирование отчетов завершено")

	return summary, nil
}

// RunDevice формирует и доставляет отчет одного устройства; временные файлы удаляются всегда
func (s *GenerateReports) RunDevice(ctx context.Context, window ReportWindow, device types.Device) (result Result) {
	logger := log.WithFields(log.Fields{"device_id": device.ID, "device": device.Label()})
	defer func() { logResult(logger, result) }()

	if err := ctx.Err(); err != nil {
		return failed(device, StageFetch, err)
	}

	track, err := s.Repository.GetTrack(device, window.Start, window.End)
	if err != nil {
		return failed(device, StageFetch, err)
	}
	if track.IsEmpty() {
		return skipped(device, ReasonNoPositions)
	}

	doc, ok := s.Composer.Compose(track)
	if !ok {
		return skipped(device, ReasonEmptyMap)
	}
	doc.Title = fmt.Sprintf("%s (%s)", device.Label(), window.Date)

	workspace, err := artifact.NewWorkspace(s.OutputDir)
	if err != nil {
		return failed(device, StageRender, err)
	}
	defer func() {
		if err := workspace.Cleanup(); err != nil {
			result.Errors = append(result.Errors, &StageError{DeviceID: device.ID, Stage: StageCleanup, Err: err})
		}
	}()

	report, err := s.renderReport(ctx, workspace, window, device, doc)
	if err != nil {
		return failed(device, StageRender, err)
	}
	report.Markers = len(doc.Markers)
	report.DistanceKm = track.Distance() / 1000
	report.Bounds = doc.Bounds

	result = Result{
		Device:     device,
		Status:     types.StatusDelivered,
		Markers:    report.Markers,
		DistanceKm: report.DistanceKm,
		Bounds:     &report.Bounds,
	}
	s.deliver(ctx, report, &result)

	return result
}

func (s *GenerateReports) renderReport(ctx context.Context, workspace *artifact.Workspace, window ReportWindow, device types.Device, doc compose.MapDocument) (delivery.Report, error) {
	html, err := leaflet.Document(doc, doc.Title, s.Leaflet)
	if err != nil {
		return delivery.Report{}, err
	}
	htmlPath, err := workspace.Write(artifact.HTMLName(device, window.Date), html)
	if err != nil {
		return delivery.Report{}, err
	}

	png, err := s.Renderer.Render(ctx, doc, htmlPath)
	if err != nil {
		return delivery.Report{}, err
	}
	if len(png) == 0 {
		return delivery.Report{}, errors.New("пустое изображение карты")
	}
	pngPath, err := workspace.Write(artifact.PNGName(device, window.Date), png)
	if err != nil {
		return delivery.Report{}, err
	}

	return delivery.Report{
		Device:   device,
		Date:     window.Date,
		PNGPath:  pngPath,
		HTMLPath: htmlPath,
	}, nil
}

// deliver отправляет отчет во все каналы; отчет не доставлен, только если отказали все каналы
func (s *GenerateReports) deliver(ctx context.Context, report delivery.Report, result *Result) {
	if len(s.Sinks) == 0 {
		return
	}

	var failures []*StageError
	for _, sink := range s.Sinks {
		if err := sink.Deliver(ctx, report); err != nil {
			stageErr := &StageError{DeviceID: report.Device.ID, Stage: Stage(sink.Name()), Err: err}
			log.WithFields(log.Fields{
				"device_id": report.Device.ID,
				"stage":     sink.Name(),
				"err":       err,
			}).Error("Ошибка доставки отчета")
			failures = append(failures, stageErr)
			result.Errors = append(result.Errors, stageErr)
		}
	}

	if len(failures) == len(s.Sinks) {
		result.Status = types.StatusFailed
		result.Stage = failures[0].Stage
		result.Reason = failures[0].Err.Error()
	}
}

func (s *GenerateReports) publish(window ReportWindow, result Result) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Save(result.Event(window.Date, now().Unix())); err != nil {
		log.WithFields(log.Fields{
			"device_id": result.Device.ID,
			"stage":     StagePublish,
			"err":       err,
		}).Error("Не удалось опубликовать событие отчета")
	}
}

func logResult(logger *log.Entry, result Result) {
	entry := logger.WithField("status", result.Status)
	switch result.Status {
	case types.StatusSkipped:
		entry.WithField("reason", result.Reason).Info("Устройство пропущено")
	case types.StatusFailed:
		entry.WithFields(log.Fields{"stage": result.Stage, "err": result.Err()}).Error("Отчет не сформирован")
	default:
		if len(result.Errors) > 0 {
			entry = entry.WithField("err", result.Err())
		}
		entry.WithFields(log.Fields{"markers": result.Markers, "distance_km": result.DistanceKm}).Info("Отчет доставлен")
	}
}
