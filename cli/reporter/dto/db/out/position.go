package out

import (
	"time"

	"github.com/daniil11ru/traccar-report/cli/reporter/util"
)

// Position строка tc_positions; course, altitude и speed могут быть NULL
type Position struct {
	Latitude  float64
	Longitude float64
	Course    util.NullFloat64
	FixTime   time.Time
	Altitude  util.NullFloat64
	Speed     util.NullFloat64
}
