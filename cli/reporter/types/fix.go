package types

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var ErrInvalidFix = errors.New("некорректная навигационная отметка")

// Fix одна навигационная отметка устройства
type Fix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Course    float64   `json:"course"`
	Timestamp time.Time `json:"fix_time"`
	Altitude  float64   `json:"altitude"`
	Speed     float64   `json:"speed"`
}

// NewFix проверяет числовые поля отметки. NaN и бесконечности отклоняются.
// Курс приводится к диапазону [0, 360).
func NewFix(latitude, longitude, course float64, timestamp time.Time, altitude, speed float64) (Fix, error) {
	fields := []struct {
		name  string
		value float64
	}{
		{"latitude", latitude},
		{"longitude", longitude},
		{"course", course},
		{"altitude", altitude},
		{"speed", speed},
	}
	for _, f := range fields {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return Fix{}, fmt.Errorf("%w: поле %s = %v", ErrInvalidFix, f.name, f.value)
		}
	}

	course = math.Mod(course, 360)
	if course < 0 {
		course += 360
	}

	return Fix{
		Latitude:  latitude,
		Longitude: longitude,
		Course:    course,
		Timestamp: timestamp,
		Altitude:  altitude,
		Speed:     speed,
	}, nil
}

func (f Fix) Position() Position2D {
	return Position2D{Latitude: f.Latitude, Longitude: f.Longitude}
}
