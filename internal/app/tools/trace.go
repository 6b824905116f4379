package tools

// PathTrace - ordered trail of a body since the last antimeridian crossing.
// A zero max keeps every point.
type PathTrace struct {
	points []Point
	max    int
}

func NewPathTrace(max int) *PathTrace {
	return &PathTrace{max: max}
}

func (p *PathTrace) Append(pt Point) {
	p.points = append(p.points, pt)
	if p.max > 0 && len(p.points) > p.max {
		p.points = append(p.points[:0], p.points[len(p.points)-p.max:]...)
	}
}

// Last returns the most recent point, if any.
func (p *PathTrace) Last() (Point, bool) {
	if len(p.points) == 0 {
		return Point{}, false
	}
	return p.points[len(p.points)-1], true
}

func (p *PathTrace) Reset() {
	p.points = p.points[:0]
}

func (p *PathTrace) Len() int {
	return len(p.points)
}

// Points returns a copy of the trail.
func (p *PathTrace) Points() []Point {
	out := make([]Point, len(p.points))
	copy(out, p.points)
	return out
}
