package out

import (
	"database/sql"
	"time"
)

type Device struct {
	ID         int64
	Name       string
	UniqueID   sql.NullString
	LastUpdate sql.NullTime
}

func (d Device) LastUpdateOrZero() time.Time {
	if !d.LastUpdate.Valid {
		return time.Time{}
	}
	return d.LastUpdate.Time
}
