// Package model defines the domain types shared across the recommendation
// pipeline: candidate accommodations, isochrone geometry, and results.
package model

import "math"

// AmenityValue is the tri-state value of an OSM-derived amenity tag.
// Empty string means the tag is unknown or missing.
type AmenityValue string

const (
	AmenityYes     AmenityValue = "yes"
	AmenityNo      AmenityValue = "no"
	AmenityUnknown AmenityValue = ""
)

// Amenity keys recognized by filtering and scoring.
const (
	AmenityParking    = "parking"
	AmenityWheelchair = "wheelchair"
	AmenityKids       = "kids"
	AmenityPet        = "pet"
)

// AmenityKeys lists the recognized amenity keys in canonical order.
var AmenityKeys = []string{AmenityParking, AmenityWheelchair, AmenityKids, AmenityPet}

// Amenities holds the fixed amenity tag set extracted for a candidate.
type Amenities struct {
	Parking    AmenityValue `json:"parking,omitempty"`
	Wheelchair AmenityValue `json:"wheelchair,omitempty"`
	Kids       AmenityValue `json:"kids,omitempty"`
	Pet        AmenityValue `json:"pet,omitempty"`
}

// Get returns the value for a recognized amenity key. Unrecognized keys
// report AmenityUnknown.
func (a Amenities) Get(key string) AmenityValue {
	switch key {
	case AmenityParking:
		return a.Parking
	case AmenityWheelchair:
		return a.Wheelchair
	case AmenityKids:
		return a.Kids
	case AmenityPet:
		return a.Pet
	default:
		return AmenityUnknown
	}
}

// Set assigns the value for a recognized amenity key.
func (a *Amenities) Set(key string, v AmenityValue) {
	switch key {
	case AmenityParking:
		a.Parking = v
	case AmenityWheelchair:
		a.Wheelchair = v
	case AmenityKids:
		a.Kids = v
	case AmenityPet:
		a.Pet = v
	}
}

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether both components are present and finite.
func (c Coordinate) Valid() bool {
	return !math.IsNaN(c.Lat) && !math.IsInf(c.Lat, 0) &&
		!math.IsNaN(c.Lon) && !math.IsInf(c.Lon, 0)
}

// Candidate is a single accommodation returned by the POI search transport.
type Candidate struct {
	ID         int64     `json:"osmid"`
	SourceType string    `json:"osmtype"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Name       string    `json:"name"`
	Tourism    string    `json:"tourism,omitempty"`
	Rating     *float64  `json:"rating,omitempty"`
	Amenities  Amenities `json:"amenities"`
}

// Coordinate returns the candidate's position.
func (c Candidate) Coordinate() Coordinate {
	return Coordinate{Lat: c.Lat, Lon: c.Lon}
}

// TieredCandidate is a Candidate annotated with its travel-time tier.
// Tier 0 means outside every isochrone (or no isochrone data).
type TieredCandidate struct {
	Candidate
	Tier int `json:"tier"`
}

// ScoredCandidate is a TieredCandidate annotated with its weighted score.
type ScoredCandidate struct {
	TieredCandidate
	Score float64 `json:"score"`
}
