package connector

import (
	"database/sql"
)

type Connector interface {
	GetConnection() *sql.DB
	GetDriver() string
	Connect(map[string]string) error
	Close() error
}
