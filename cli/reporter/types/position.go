package types

import "math"

const earthRadiusMeters = 6371000.0

type Position2D struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DistanceTo расстояние по дуге большого круга в метрах
func (p Position2D) DistanceTo(position Position2D) float64 {
	lat1 := p.Latitude * math.Pi / 180
	lat2 := position.Latitude * math.Pi / 180
	dLat := (position.Latitude - p.Latitude) * math.Pi / 180
	dLon := (position.Longitude - p.Longitude) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusMeters * c
}

func (p Position2D) EqualsHorizontallyTo(position Position2D, accuracyMeters float64) bool {
	return p.DistanceTo(position) <= accuracyMeters
}
