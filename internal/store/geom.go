package store

import (
	"github.com/twpayne/go-geom"

	"github.com/mromano1/equity-atlas/internal/tiger"
)

// Geometry columns are nullable; nil round-trips as NULL.
func encodeGeom(mp *geom.MultiPolygon) ([]byte, error) {
	if mp == nil {
		return nil, nil
	}
	return tiger.EncodeWKB(mp)
}

func decodeGeom(data []byte) (*geom.MultiPolygon, error) {
	if len(data) == 0 {
		return nil, nil
	}
	return tiger.DecodeWKB(data)
}
