package input

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/daniil11ru/traccar-report/cli/reporter/types"
	log "github.com/sirupsen/logrus"
)

type jsonFix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Course    float64   `json:"course"`
	FixTime   time.Time `json:"fix_time"`
	Altitude  *float64  `json:"altitude"`
	Speed     *float64  `json:"speed"`
}

func orZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// ReadJSON массив отметок в формате, который отдает API отчетов
func ReadJSON(r io.Reader) ([]types.Fix, error) {
	var raw []jsonFix
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("ошибка разбора JSON: %v", err)
	}

	fixes := make([]types.Fix, 0, len(raw))
	for i, f := range raw {
		fix, err := types.NewFix(f.Latitude, f.Longitude, f.Course, f.FixTime, orZero(f.Altitude), orZero(f.Speed))
		if err != nil {
			log.WithFields(log.Fields{"index": i, "err": err}).Warn("Отметка пропущена")
			continue
		}
		fixes = append(fixes, fix)
	}
	return fixes, nil
}
