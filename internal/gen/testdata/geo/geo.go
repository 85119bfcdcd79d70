// Package geo exercises the generator against a real package load.
package geo

import (
	"time"

	"reflex/notes"
)

var _ = notes.Rename{}

// Unit is a class note.
type Unit string

// Range bounds a numeric member.
type Range struct{ Min, Max float64 }

// Base carries an identifier.
//
//reflex:register
type Base struct {
	ID int `json:"id"`
}

// Point is a located sample.
//
//reflex:register
//reflex:name geo.Point
//reflex:note Unit("deg")
//reflex:super-note Base notes.Rename{Name: "base"}
type Point struct {
	Base
	//reflex:note Range{-90, 90}
	Lat float64 `json:"lat"`
	//reflex:note Range{-180, 180}
	Lon float64 `json:"lon"`
	//reflex:ref
	Owner *Owner
	//reflex:skip
	Cache []byte
	//reflex:name Age
	TTL    time.Duration
	hidden int
}

// Owner holds a point.
//
//reflex:register
type Owner struct {
	Name string
}

// Count is shared by every point.
//
//reflex:static Point
var Count int

//reflex:method
func (p Point) Norm() float64 { return p.Lat*p.Lat + p.Lon*p.Lon + float64(p.hidden) }

//reflex:overload Move
func (p *Point) MoveBy(d float64) { p.Lat += d }

//reflex:overload Move
//reflex:note Unit("rad")
func (p *Point) MoveTo(lat, lon float64) { p.Lat, p.Lon = lat, lon }

//reflex:func Point
func Origin() Point { return Point{} }
