package encoding

/*
Визуальное кодирование отметок трека.

Скорость кодируется насыщенностью красного: медленные отметки яркие, быстрые темные.
Высота кодируется размером квадратной иконки.
*/

import (
	"encoding/json"
	"fmt"
	"math"
)

type Palette struct {
	MaxSpeed        float64 `yaml:"max_speed" json:"max_speed"`
	MinRedValue     int     `yaml:"min_red_value" json:"min_red_value"`
	MaxRedValue     int     `yaml:"max_red_value" json:"max_red_value"`
	MinAltitude     float64 `yaml:"min_altitude" json:"min_altitude"`
	MaxAltitude     float64 `yaml:"max_altitude" json:"max_altitude"`
	BaseIconSize    int     `yaml:"base_icon_size" json:"base_icon_size"`
	MaxSizeIncrease int     `yaml:"max_size_increase" json:"max_size_increase"`
}

func DefaultPalette() Palette {
	return Palette{
		MaxSpeed:        50.0,
		MinRedValue:     40,
		MaxRedValue:     255,
		MinAltitude:     0,
		MaxAltitude:     200,
		BaseIconSize:    20,
		MaxSizeIncrease: 15,
	}
}

// Validate проверяет согласованность границ
func (p Palette) Validate() error {
	if !(p.MaxSpeed > 0) || math.IsInf(p.MaxSpeed, 0) {
		return fmt.Errorf("max_speed должен быть положительным числом, получено %v", p.MaxSpeed)
	}
	if p.MinRedValue < 0 || p.MaxRedValue > 255 || p.MinRedValue > p.MaxRedValue {
		return fmt.Errorf("границы красного канала должны удовлетворять 0 <= min (%d) <= max (%d) <= 255", p.MinRedValue, p.MaxRedValue)
	}
	if p.MinAltitude > p.MaxAltitude {
		return fmt.Errorf("min_altitude (%v) больше max_altitude (%v)", p.MinAltitude, p.MaxAltitude)
	}
	if p.BaseIconSize <= 0 || p.MaxSizeIncrease < 0 {
		return fmt.Errorf("некорректные размеры иконки: base=%d, increase=%d", p.BaseIconSize, p.MaxSizeIncrease)
	}
	return nil
}

type RGB struct {
	R uint8
	G uint8
	B uint8
}

func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

func (c RGB) String() string {
	return c.Hex()
}

func (c RGB) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Hex())
}

type IconSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ColorForSpeed скорость в узлах -> цвет маркера.
// NaN считается нулевой скоростью.
func (p Palette) ColorForSpeed(speed float64) RGB {
	if p.MaxSpeed <= 0 {
		return RGB{R: uint8(p.MaxRedValue)}
	}

	clamped := clamp(speed, 0, p.MaxSpeed)
	normalized := clamped / p.MaxSpeed
	inverse := 1 - normalized

	red := int(float64(p.MinRedValue) + inverse*float64(p.MaxRedValue-p.MinRedValue))

	return RGB{R: uint8(clampInt(red, p.MinRedValue, p.MaxRedValue))}
}

// SizeForAltitude высота в метрах -> размер квадратной иконки в пикселях.
// NaN считается минимальной высотой.
func (p Palette) SizeForAltitude(altitude float64) IconSize {
	size := p.BaseIconSize

	if span := p.MaxAltitude - p.MinAltitude; span > 0 {
		normalized := (clamp(altitude, p.MinAltitude, p.MaxAltitude) - p.MinAltitude) / span
		size = int(float64(p.BaseIconSize) + float64(p.MaxSizeIncrease)*normalized)
	}

	size = clampInt(size, p.BaseIconSize, p.BaseIconSize+p.MaxSizeIncrease)
	return IconSize{Width: size, Height: size}
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
