package source

import (
	"errors"
	"time"

	"github.com/daniil11ru/traccar-report/cli/reporter/dto/db/out"
)

var ErrDeviceNotFound = errors.New("устройство не найдено")

type Traccar interface {
	GetActiveDevices(after, before time.Time) ([]out.Device, error)
	GetDevice(id int64) (out.Device, error)
	GetPositions(deviceID int64, after, before time.Time) ([]out.Position, error)
}
