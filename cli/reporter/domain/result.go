package domain

import (
	"encoding/json"
	"errors"

	"github.com/daniil11ru/traccar-report/cli/reporter/domain/compose"
	"github.com/daniil11ru/traccar-report/cli/reporter/types"
)

const (
	ReasonNoPositions = "no position data"
	ReasonEmptyMap    = "empty map document"
)

// Result исход обработки одного устройства
type Result struct {
	Device     types.Device
	Status     string
	Reason     string
	Stage      Stage
	Errors     []error
	Markers    int
	DistanceKm float64
	Bounds     *compose.Bounds
}

func skipped(device types.Device, reason string) Result {
	return Result{Device: device, Status: types.StatusSkipped, Reason: reason}
}

func failed(device types.Device, stage Stage, err error) Result {
	return Result{
		Device: device,
		Status: types.StatusFailed,
		Reason: err.Error(),
		Stage:  stage,
		Errors: []error{&StageError{DeviceID: device.ID, Stage: stage, Err: err}},
	}
}

func (r Result) Err() error {
	return errors.Join(r.Errors...)
}

func (r Result) MarshalJSON() ([]byte, error) {
	messages := make([]string, 0, len(r.Errors))
	for _, err := range r.Errors {
		messages = append(messages, err.Error())
	}

	return json.Marshal(struct {
		Device     types.Device    `json:"device"`
		Status     string          `json:"status"`
		Reason     string          `json:"reason,omitempty"`
		Stage      Stage           `json:"stage,omitempty"`
		Errors     []string        `json:"errors,omitempty"`
		Markers    int             `json:"markers"`
		DistanceKm float64         `json:"distance_km"`
		Bounds     *compose.Bounds `json:"bounds,omitempty"`
	}{r.Device, r.Status, r.Reason, r.Stage, messages, r.Markers, r.DistanceKm, r.Bounds})
}

func (r Result) Event(date string, timestamp int64) types.ReportEvent {
	event := types.ReportEvent{
		ID:         types.NewReportEventID(),
		DeviceID:   r.Device.ID,
		DeviceName: r.Device.Name,
		Date:       date,
		Status:     r.Status,
		Reason:     r.Reason,
		Stage:      string(r.Stage),
		Markers:    r.Markers,
		DistanceKm: r.DistanceKm,
		Timestamp:  timestamp,
	}
	for _, err := range r.Errors {
		event.Errors = append(event.Errors, err.Error())
	}
	if r.Bounds != nil {
		event.MinLat = r.Bounds.SouthWest.Latitude
		event.MinLon = r.Bounds.SouthWest.Longitude
		event.MaxLat = r.Bounds.NorthEast.Latitude
		event.MaxLon = r.Bounds.NorthEast.Longitude
	}
	return event
}

// Summary итог пакетного запуска, результаты в порядке устройств
type Summary struct {
	Date    string   `json:"date"`
	Results []Result `json:"results"`
}

func (s Summary) Count(status string) int {
	n := 0
	for _, r := range s.Results {
		if r.Status == status {
			n++
		}
	}
	return n
}
