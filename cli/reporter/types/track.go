package types

import "time"

// Track отметки одного устройства за отчетный период, упорядоченные по времени.
// Пустой трек означает отсутствие данных, а не ошибку.
type Track struct {
	Device Device
	Start  time.Time
	End    time.Time
	Fixes  []Fix
}

func (t Track) IsEmpty() bool {
	return len(t.Fixes) == 0
}

func (t Track) Len() int {
	return len(t.Fixes)
}

// Distance суммарная длина трека в метрах
func (t Track) Distance() float64 {
	var total float64
	for i := 1; i < len(t.Fixes); i++ {
		total += t.Fixes[i-1].Position().DistanceTo(t.Fixes[i].Position())
	}
	return total
}

// IsOrdered проверяет, что время отметок не убывает
func (t Track) IsOrdered() bool {
	for i := 1; i < len(t.Fixes); i++ {
		if t.Fixes[i].Timestamp.Before(t.Fixes[i-1].Timestamp) {
			return false
		}
	}
	return true
}
