package repository

import (
	"fmt"
	"sort"
	"time"

	"github.com/daniil11ru/traccar-report/cli/reporter/dto/db/out"
	"github.com/daniil11ru/traccar-report/cli/reporter/source"
	"github.com/daniil11ru/traccar-report/cli/reporter/types"
	"github.com/daniil11ru/traccar-report/cli/reporter/util"
	log "github.com/sirupsen/logrus"
)

type Traccar struct {
	Source source.Traccar
}

func toDevice(d out.Device) types.Device {
	return types.Device{ID: d.ID, Name: d.Name, UniqueID: d.UniqueID.String}
}

func (r *Traccar) GetActiveDevices(after, before time.Time) ([]types.Device, error) {
	devices, err := r.Source.GetActiveDevices(after, before)
	if err != nil {
		return nil, err
	}
	return util.Map(devices, toDevice), nil
}

func (r *Traccar) GetDevice(id int64) (types.Device, error) {
	device, err := r.Source.GetDevice(id)
	if err != nil {
		return types.Device{}, err
	}
	return toDevice(device), nil
}

// GetTrack трек устройства за [start, end). Пустые course, altitude и speed заменяются нулями,
// строки с нечисловыми значениями пропускаются.
func (r *Traccar) GetTrack(device types.Device, start, end time.Time) (types.Track, error) {
	positions, err := r.Source.GetPositions(device.ID, start, end)
	if err != nil {
		return types.Track{}, fmt.Errorf("не удалось получить позиции устройства %d: %w", device.ID, err)
	}

	track := types.Track{
		Device: device,
		Start:  start,
		End:    end,
		Fixes:  make([]types.Fix, 0, len(positions)),
	}

	for _, p := range positions {
		fix, err := types.NewFix(p.Latitude, p.Longitude, p.Course.OrZero(), p.FixTime, p.Altitude.OrZero(), p.Speed.OrZero())
		if err != nil {
			log.WithFields(log.Fields{
				"device_id": device.ID,
				"fix_time":  p.FixTime,
				"err":       err,
			}).Warn("Отметка пропущена")
			continue
		}
		track.Fixes = append(track.Fixes, fix)
	}

	if !track.IsOrdered() {
		sort.SliceStable(track.Fixes, func(i, j int) bool {
			return track.Fixes[i].Timestamp.Before(track.Fixes[j].Timestamp)
		})
	}

	return track, nil
}
