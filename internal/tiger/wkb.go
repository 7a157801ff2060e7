package tiger

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// EncodeWKB converts a tract geometry to EWKB bytes with SRID 4326 for
// storage.
func EncodeWKB(mp *geom.MultiPolygon) ([]byte, error) {
	if mp == nil {
		return nil, eris.New("tiger: nil geometry")
	}
	data, err := ewkb.Marshal(mp, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "tiger: encode WKB")
	}
	return data, nil
}

// DecodeWKB converts stored EWKB bytes back into a MultiPolygon.
func DecodeWKB(data []byte) (*geom.MultiPolygon, error) {
	g, err := ewkb.Unmarshal(data)
	if err != nil {
		return nil, eris.Wrap(err, "tiger: decode WKB")
	}
	mp, ok := g.(*geom.MultiPolygon)
	if !ok {
		return nil, eris.Errorf("tiger: expected MultiPolygon, got %T", g)
	}
	return mp, nil
}
