package domain

// CloseTolerance is the planar distance in degrees within which a new point
// is treated as a click on the draft's first vertex.
const CloseTolerance = 0.001

// Draft is a region being drawn point by point.
type Draft struct {
	Vertices []Coordinate `json:"coordinates"`
}

// AddPoint extends the draft and reports whether p closes it.
//
// A point closes the draft when the draft already holds MinVertices or more
// and p lies within CloseTolerance of the first vertex; the closing point is
// not appended. Points beyond MaxVertices are dropped.
func (d *Draft) AddPoint(p Coordinate) bool {
	if len(d.Vertices) >= MinVertices && planarDistance(p, d.Vertices[0]) < CloseTolerance {
		return true
	}
	if len(d.Vertices) < MaxVertices {
		d.Vertices = append(d.Vertices, p)
	}
	return false
}

// Completable reports whether the draft has enough vertices to become a region.
func (d *Draft) Completable() bool {
	return len(d.Vertices) >= MinVertices
}
