package delivery

import (
	"context"

	"github.com/daniil11ru/traccar-report/cli/reporter/domain/compose"
	"github.com/daniil11ru/traccar-report/cli/reporter/types"
)

// Report готовый отчет по одному устройству за один день
type Report struct {
	Device     types.Device
	Date       string
	PNGPath    string
	HTMLPath   string
	Markers    int
	DistanceKm float64
	Bounds     compose.Bounds
}

// Sink канал доставки отчета. Name попадает в журнал и в этап ошибки.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, report Report) error
}
