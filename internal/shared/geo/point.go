package geo

import "errors"

const pointType = "Point"

// Point is a GeoJSON point. Coordinates are ordered [lng, lat].
type Point struct {
	Type        string     `json:"type"`
	Coordinates [2]float64 `json:"coordinates"`
}

func NewPoint(c Coordinate) Point {
	return Point{Type: pointType, Coordinates: [2]float64{c.Lng, c.Lat}}
}

func (p Point) Coordinate() Coordinate {
	return Coordinate{Lat: p.Coordinates[1], Lng: p.Coordinates[0]}
}

func (p Point) Validate() error {
	if p.Type != pointType {
		return errors.New("location type must be Point")
	}
	if !p.Coordinate().Valid() {
		return errors.New("location out of range")
	}
	return nil
}
