package models

import (
	"errors"
	"math"
	"time"
)

// Direction is one of the eight compass sectors a wind bearing is bucketed
// into. Records never carry raw degrees; everything downstream of the client
// deals only with these values.
type Direction string

const (
	North     Direction = "North"
	Northeast Direction = "Northeast"
	East      Direction = "East"
	Southeast Direction = "Southeast"
	South     Direction = "South"
	Southwest Direction = "Southwest"
	West      Direction = "West"
	Northwest Direction = "Northwest"
)

// Directions lists all eight values in compass order, starting at North.
var Directions = [8]Direction{North, Northeast, East, Southeast, South, Southwest, West, Northwest}

// ErrNegativeDegrees is returned for bearings below zero, which the provider
// contract does not allow.
var ErrNegativeDegrees = errors.New("wind degrees must be non-negative")

// DirectionFromDegrees buckets a wind bearing into one of the eight sectors.
// Sector k covers [k*45-22.5, k*45+22.5), so 0 is North, 22.5 is Northeast
// and 337.5 wraps back to North. Bearings of 360 or more wrap around.
func DirectionFromDegrees(deg float64) (Direction, error) {
	if deg < 0 {
		return "", ErrNegativeDegrees
	}
	deg = math.Mod(deg, 360)
	idx := int(math.Floor((deg+22.5)/45)) % 8
	return Directions[idx], nil
}

// WeatherRecord is the language-independent weather snapshot for one city.
// It is the unit of caching; localization happens at render time and never
// mutates the record.
type WeatherRecord struct {
	CityName        string    `json:"city_name"`
	Temperature     float64   `json:"temperature"`
	MinTemperature  float64   `json:"min_temperature"`
	MaxTemperature  float64   `json:"max_temperature"`
	Humidity        int       `json:"humidity"`
	Pressure        int       `json:"pressure"`
	WindSpeed       float64   `json:"wind_speed"`
	WindDirection   Direction `json:"wind_direction"`
	DescriptionCode string    `json:"description_code"`
	FetchedAt       time.Time `json:"fetched_at"`
}
