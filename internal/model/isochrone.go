package model

import "github.com/twpayne/go-geom"

// IsochroneGroup holds the polygons reachable within one travel-time
// interval. Most intervals produce a single polygon; disconnected road
// networks (islands, ferries) produce several.
type IsochroneGroup struct {
	// Seconds is the travel-time bound for this group.
	Seconds int
	// Polygons are the reachable areas, WGS84 lon/lat.
	Polygons []*geom.Polygon
}

// IsochroneSet is the ordered sequence of isochrone groups for one origin,
// ascending by travel time: index 0 is the innermost group.
type IsochroneSet []IsochroneGroup
