package traccar

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	connector "github.com/daniil11ru/traccar-report/cli/reporter/connector"
	"github.com/daniil11ru/traccar-report/cli/reporter/dto/db/out"
	"github.com/daniil11ru/traccar-report/cli/reporter/source"
)

type Source struct {
	connector connector.Connector
}

func NewSource(c connector.Connector) *Source {
	return &Source{connector: c}
}

func (s *Source) db() (*sql.DB, error) {
	if s.connector == nil {
		return nil, fmt.Errorf("не удалось инициализировать подключение к базе данных")
	}
	db := s.connector.GetConnection()
	if db == nil {
		return nil, fmt.Errorf("нет активного подключения к базе данных")
	}
	return db, nil
}

// rebind заменяет ? на $n для PostgreSQL
func (s *Source) rebind(q string) string {
	if s.connector.GetDriver() != "postgres" {
		return q
	}

	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Source) GetActiveDevices(after, before time.Time) ([]out.Device, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}

	const q = `
		SELECT id, name, uniqueid, lastupdate
		FROM tc_devices
		WHERE lastupdate >= ? AND lastupdate < ?
		ORDER BY id
	`
	rows, err := db.Query(s.rebind(q), after, before)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса устройств: %v", err)
	}
	defer rows.Close()

	var devices []out.Device
	for rows.Next() {
		var d out.Device
		if err := rows.Scan(&d.ID, &d.Name, &d.UniqueID, &d.LastUpdate); err != nil {
			return nil, fmt.Errorf("ошибка чтения строки устройства: %v", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return devices, nil
}

func (s *Source) GetDevice(id int64) (out.Device, error) {
	db, err := s.db()
	if err != nil {
		return out.Device{}, err
	}

	const q = `
		SELECT id, name, uniqueid, lastupdate
		FROM tc_devices
		WHERE id = ?
	`
	var d out.Device
	if err := db.QueryRow(s.rebind(q), id).Scan(&d.ID, &d.Name, &d.UniqueID, &d.LastUpdate); err != nil {
		if err == sql.ErrNoRows {
			return out.Device{}, fmt.Errorf("%w: ID %d", source.ErrDeviceNotFound, id)
		}
		return out.Device{}, err
	}
	return d, nil
}

func (s *Source) GetPositions(deviceID int64, after, before time.Time) ([]out.Position, error) {
	db, err := s.db()
	if err != nil {
		return nil, err
	}

	const q = `
		SELECT latitude, longitude, course, fixtime, altitude, speed
		FROM tc_positions
		WHERE deviceid = ?
		  AND fixtime >= ? AND fixtime < ?
		ORDER BY fixtime ASC, id ASC
	`
	rows, err := db.Query(s.rebind(q), deviceID, after, before)
	if err != nil {
		return nil, fmt.Errorf("ошибка выполнения запроса позиций: %v", err)
	}
	defer rows.Close()

	var positions []out.Position
	for rows.Next() {
		var p out.Position
		if err := rows.Scan(&p.Latitude, &p.Longitude, &p.Course, &p.FixTime, &p.Altitude, &p.Speed); err != nil {
			return nil, fmt.Errorf("ошибка чтения строки позиции: %v", err)
		}
		positions = append(positions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return positions, nil
}
