package types

import (
	"encoding/json"

	"github.com/google/uuid"
	"gopkg.in/vmihailenco/msgpack.v2"
)

const (
	StatusDelivered = "delivered"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// ReportEvent уведомление об исходе отчета по устройству, уходит во внешние брокеры
type ReportEvent struct {
	ID         string   `json:"id" msgpack:"id"`
	DeviceID   int64    `json:"device_id" msgpack:"device_id"`
	DeviceName string   `json:"device_name" msgpack:"device_name"`
	Date       string   `json:"date" msgpack:"date"`
	Status     string   `json:"status" msgpack:"status"`
	Reason     string   `json:"reason,omitempty" msgpack:"reason"`
	Stage      string   `json:"stage,omitempty" msgpack:"stage"`
	Errors     []string `json:"errors,omitempty" msgpack:"errors"`
	Markers    int      `json:"markers" msgpack:"markers"`
	DistanceKm float64  `json:"distance_km" msgpack:"distance_km"`
	MinLat     float64  `json:"min_lat" msgpack:"min_lat"`
	MinLon     float64  `json:"min_lon" msgpack:"min_lon"`
	MaxLat     float64  `json:"max_lat" msgpack:"max_lat"`
	MaxLon     float64  `json:"max_lon" msgpack:"max_lon"`
	Timestamp  int64    `json:"timestamp" msgpack:"timestamp"`
}

func NewReportEventID() string {
	return uuid.NewString()
}

func (e ReportEvent) ToBytes() ([]byte, error) {
	return json.Marshal(e)
}

func (e ReportEvent) ToMsgpack() ([]byte, error) {
	return msgpack.Marshal(e)
}
