package input

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/adrianmo/go-nmea"
	"github.com/daniil11ru/traccar-report/cli/reporter/types"
	log "github.com/sirupsen/logrus"
)

func timeKey(t nmea.Time) string {
	return fmt.Sprintf("%02d%02d%02d.%03d", t.Hour, t.Minute, t.Second, t.Millisecond)
}

func timestamp(d nmea.Date, t nmea.Time) time.Time {
	year := 2000 + d.YY
	if d.YY >= 80 {
		year = 1900 + d.YY
	}
	return time.Date(year, time.Month(d.MM), d.DD, t.Hour, t.Minute, t.Second, t.Millisecond*int(time.Millisecond), time.UTC)
}

// ReadNMEA собирает отметки из RMC-предложений. Высота берется из GGA с тем же временем,
// идущего непосредственно до или после RMC. RMC с признаком недостоверности (V) и
// нераспознанные строки пропускаются.
func ReadNMEA(r io.Reader) ([]types.Fix, error) {
	var fixes []types.Fix
	// GGA, еще не сопоставленные с RMC; сбрасываются на каждом RMC
	pending := map[string]float64{}
	// последняя принятая отметка, которой еще можно присвоить высоту
	last := -1
	lastKey := ""
	skipped := 0

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "$") {
			continue
		}

		sentence, err := nmea.Parse(line)
		if err != nil {
			skipped++
			continue
		}

		switch sentence.DataType() {
		case nmea.TypeGGA:
			m := sentence.(nmea.GGA)
			if !m.Time.Valid {
				continue
			}
			key := timeKey(m.Time)
			if last >= 0 && key == lastKey {
				fixes[last].Altitude = m.Altitude
				last = -1
				continue
			}
			pending[key] = m.Altitude
		case nmea.TypeRMC:
			m := sentence.(nmea.RMC)
			key := timeKey(m.Time)
			altitude, matched := pending[key]
			pending = map[string]float64{}
			last = -1

			if m.Validity != nmea.ValidRMC || !m.Date.Valid || !m.Time.Valid {
				skipped++
				continue
			}
			fix, err := types.NewFix(m.Latitude, m.Longitude, m.Course, timestamp(m.Date, m.Time), altitude, m.Speed)
			if err != nil {
				skipped++
				continue
			}
			fixes = append(fixes, fix)
			if !matched {
				last, lastKey = len(fixes)-1, key
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения NMEA: %v", err)
	}

	if skipped > 0 {
		log.WithField("skipped", skipped).Warn("Часть NMEA-предложений пропущена")
	}
	return fixes, nil
}
