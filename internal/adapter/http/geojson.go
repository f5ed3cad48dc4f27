package http

import (
	"net/http"

	geojson "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/region-colorizer/internal/domain"
)

// regionsGeoJSON serves every region as a FeatureCollection of polygons.
func (s *Server) regionsGeoJSON(w http.ResponseWriter, _ *http.Request) {
	fc := regionsFeatureCollection(s.dashboard.Regions())
	data, err := fc.MarshalJSON()
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func regionsFeatureCollection(regions []domain.Region) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, r := range regions {
		f := geojson.NewPolygonFeature([][][]float64{ring(r.Vertices)})
		f.ID = r.ID
		f.SetProperty("name", r.Name)
		f.SetProperty("dataSource", r.DataSourceID)
		f.SetProperty("color", r.Color)
		if r.Value != nil {
			f.SetProperty("value", *r.Value)
		}
		fc.AddFeature(f)
	}
	return fc
}

// ring converts vertices to a closed GeoJSON linear ring in [lng, lat] order.
func ring(vertices []domain.Coordinate) [][]float64 {
	out := make([][]float64, 0, len(vertices)+1)
	for _, v := range vertices {
		out = append(out, []float64{v.Lng, v.Lat})
	}
	if len(vertices) > 0 {
		out = append(out, []float64{vertices[0].Lng, vertices[0].Lat})
	}
	return out
}
