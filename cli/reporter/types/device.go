package types

import "strconv"

type Device struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	UniqueID string `json:"unique_id,omitempty"`
}

// Label имя устройства для отчетов; если имя пустое, используется ID
func (d Device) Label() string {
	if d.Name != "" {
		return d.Name
	}
	return strconv.FormatInt(d.ID, 10)
}
