package traccar

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/daniil11ru/traccar-report/cli/reporter/source"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockConnector struct {
	db     *sql.DB
	driver string
}

func (m *mockConnector) GetConnection() *sql.DB { return m.db }

func (m *mockConnector) GetDriver() string { return m.driver }

func (m *mockConnector) Connect(settings map[string]string) error { return nil }

func (m *mockConnector) Close() error { return m.db.Close() }

func newSource(t *testing.T, driver string) (*Source, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSource(&mockConnector{db: db, driver: driver}), mock
}

var (
	dayStart = time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC)
	dayEnd   = dayStart.Add(24 * time.Hour)
)

func TestGetPositionsMySQL(t *testing.T) {
	s, mock := newSource(t, "mysql")

	ts := dayStart.Add(8 * time.Hour)
	rows := sqlmock.NewRows([]string{"latitude", "longitude", "course", "fixtime", "altitude", "speed"}).
		AddRow(55.75, 37.61, 90.0, ts, []byte("120.5"), 12.0).
		AddRow(55.76, 37.62, nil, ts.Add(time.Minute), nil, nil)

	mock.ExpectQuery(`FROM tc_positions WHERE deviceid = \? AND fixtime >= \? AND fixtime < \?`).
		WithArgs(int64(5), dayStart, dayEnd).
		WillReturnRows(rows)

	positions, err := s.GetPositions(5, dayStart, dayEnd)
	require.NoError(t, err)
	require.Len(t, positions, 2)

	assert.Equal(t, 55.75, positions[0].Latitude)
	assert.Equal(t, 90.0, positions[0].Course.OrZero())
	assert.Equal(t, 120.5, positions[0].Altitude.OrZero())
	assert.Equal(t, ts, positions[0].FixTime)

	assert.False(t, positions[1].Course.Valid)
	assert.False(t, positions[1].Altitude.Valid)
	assert.False(t, positions[1].Speed.Valid)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPositionsPostgresPlaceholders(t *testing.T) {
	s, mock := newSource(t, "postgres")

	mock.ExpectQuery(`WHERE deviceid = \$1 AND fixtime >= \$2 AND fixtime < \$3`).
		WithArgs(int64(9), dayStart, dayEnd).
		WillReturnRows(sqlmock.NewRows([]string{"latitude", "longitude", "course", "fixtime", "altitude", "speed"}))

	positions, err := s.GetPositions(9, dayStart, dayEnd)
	require.NoError(t, err)
	assert.Empty(t, positions)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPositionsQueryError(t *testing.T) {
	s, mock := newSource(t, "mysql")

	mock.ExpectQuery(`FROM tc_positions`).WillReturnError(errors.New("connection reset"))

	_, err := s.GetPositions(1, dayStart, dayEnd)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestGetActiveDevices(t *testing.T) {
	s, mock := newSource(t, "mysql")

	rows := sqlmock.NewRows([]string{"id", "name", "uniqueid", "lastupdate"}).
		AddRow(int64(1), "truck", "864000000000001", dayStart.Add(time.Hour)).
		AddRow(int64(2), "boat", nil, nil)

	mock.ExpectQuery(`FROM tc_devices WHERE lastupdate >= \? AND lastupdate < \?`).
		WithArgs(dayStart, dayEnd).
		WillReturnRows(rows)

	devices, err := s.GetActiveDevices(dayStart, dayEnd)
	require.NoError(t, err)
	require.Len(t, devices, 2)
	assert.Equal(t, "truck", devices[0].Name)
	assert.Equal(t, "864000000000001", devices[0].UniqueID.String)
	assert.Equal(t, dayStart.Add(time.Hour), devices[0].LastUpdateOrZero())
	assert.False(t, devices[1].UniqueID.Valid)
	assert.True(t, devices[1].LastUpdateOrZero().IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDeviceNotFound(t *testing.T) {
	s, mock := newSource(t, "postgres")

	mock.ExpectQuery(`FROM tc_devices WHERE id = \$1`).
		WithArgs(int64(42)).
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetDevice(42)
	assert.ErrorIs(t, err, source.ErrDeviceNotFound)
	assert.Contains(t, err.Error(), "42")
}

func TestNoConnection(t *testing.T) {
	s := NewSource(&mockConnector{driver: "mysql"})
	_, err := s.GetActiveDevices(dayStart, dayEnd)
	assert.Error(t, err)

	s = NewSource(nil)
	_, err = s.GetPositions(1, dayStart, dayEnd)
	assert.Error(t, err)
}
