package implementation

import (
	"io"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFillSettingsDefaults(t *testing.T) {
	log.SetOutput(io.Discard)

	tests := []struct {
		name     string
		settings map[string]string
		expected Settings
	}{
		{
			name:     "Empty settings default to MySQL",
			settings: map[string]string{},
			expected: Settings{Driver: "mysql", Host: "127.0.0.1", Port: "3306", User: "traccar", Password: "123456", Database: "traccar"},
		},
		{
			name:     "PostgreSQL gets its own port and sslmode",
			settings: map[string]string{"driver": "postgres", "host": "db"},
			expected: Settings{Driver: "postgres", Host: "db", Port: "5432", User: "traccar", Password: "123456", Database: "traccar", SSLMode: "disable"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewConnector(nil)
			c.FillSettings(tt.settings)
			assert.Equal(t, tt.expected, c.settings)
		})
	}
}

func TestDSN(t *testing.T) {
	log.SetOutput(io.Discard)

	c := NewConnector(time.UTC)
	c.FillSettings(map[string]string{"driver": "mysql", "host": "10.0.0.5", "port": "3307", "user": "u", "password": "p", "database": "tc"})
	dsn, err := c.DSN()
	require.NoError(t, err)
	assert.Contains(t, dsn, "u:p@tcp(10.0.0.5:3307)/tc")
	assert.Contains(t, dsn, "parseTime=true")

	c = NewConnector(nil)
	c.FillSettings(map[string]string{"driver": "postgres", "host": "db", "user": "u", "password": "p", "database": "tc", "sslmode": "require"})
	dsn, err = c.DSN()
	require.NoError(t, err)
	assert.Equal(t, "dbname=tc host=db port=5432 user=u password=p sslmode=require", dsn)

	c = NewConnector(nil)
	c.FillSettings(map[string]string{"driver": "oracle"})
	_, err = c.DSN()
	assert.Error(t, err)
	assert.Error(t, c.Connect(map[string]string{"driver": "oracle"}))
	assert.Error(t, c.Connect(nil))
}
