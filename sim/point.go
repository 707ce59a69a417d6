package sim

import (
	"fmt"
	"math"
)

// Category classifies a point in the supply network.
type Category string

const (
	CategoryProducer    Category = "producer"
	CategoryDistributor Category = "distributor"
	CategoryRetailer    Category = "retailer"
)

func validCategory(c Category) bool {
	switch c {
	case CategoryProducer, CategoryDistributor, CategoryRetailer:
		return true
	}
	return false
}

// Point is a named, immutable position on the network map.
type Point struct {
	ID       string
	Name     string
	X, Y     float64
	Category Category
}

// NewPoint validates and builds a Point.
func NewPoint(id, name string, x, y float64, cat Category) (*Point, error) {
	if id == "" {
		return nil, fmt.Errorf("point: id cannot be empty")
	}
	if name == "" {
		return nil, fmt.Errorf("point: name cannot be empty")
	}
	if !validCategory(cat) {
		return nil, fmt.Errorf("point: invalid category %q", cat)
	}
	return &Point{ID: id, Name: name, X: x, Y: y, Category: cat}, nil
}

// DistanceTo returns the straight-line distance to another point.
func (p *Point) DistanceTo(other *Point) float64 {
	dx := p.X - other.X
	dy := p.Y - other.Y
	return math.Sqrt(dx*dx + dy*dy)
}

func (p *Point) String() string {
	return fmt.Sprintf("%s (%s) at (%.1f, %.1f)", p.Name, p.Category, p.X, p.Y)
}

// Directory registers points and answers distance queries. Distances are
// memoized since movement and dispatch repeatedly query the same pairs.
type Directory struct {
	points    map[string]*Point
	distCache map[[2]string]float64
}

// NewDirectory creates an empty directory.
func NewDirectory() *Directory {
	return &Directory{
		points:    make(map[string]*Point),
		distCache: make(map[[2]string]float64),
	}
}

// Add registers a point. Duplicate ids are rejected. The memo is cleared
// since cached pairs may be recomputed against a changed roster.
func (d *Directory) Add(p *Point) error {
	if p == nil {
		return fmt.Errorf("directory: nil point")
	}
	if _, exists := d.points[p.ID]; exists {
		return fmt.Errorf("directory: point %q already exists", p.ID)
	}
	d.points[p.ID] = p
	d.distCache = make(map[[2]string]float64)
	return nil
}

// Remove deletes a point by id.
func (d *Directory) Remove(id string) error {
	if _, exists := d.points[id]; !exists {
		return fmt.Errorf("directory: point %q not found", id)
	}
	delete(d.points, id)
	d.distCache = make(map[[2]string]float64)
	return nil
}

// Get returns the point with the given id.
func (d *Directory) Get(id string) (*Point, bool) {
	p, ok := d.points[id]
	return p, ok
}

// All returns every registered point.
func (d *Directory) All() []*Point {
	out := make([]*Point, 0, len(d.points))
	for _, p := range d.points {
		out = append(out, p)
	}
	return out
}

// ByCategory returns every point of the given category.
func (d *Directory) ByCategory(cat Category) []*Point {
	var out []*Point
	for _, p := range d.points {
		if p.Category == cat {
			out = append(out, p)
		}
	}
	return out
}

// Distance returns the memoized straight-line distance between two points,
// failing when either id is unknown. The cache key is order-independent.
func (d *Directory) Distance(a, b string) (float64, error) {
	pa, ok := d.points[a]
	if !ok {
		return 0, fmt.Errorf("directory: point %q not found", a)
	}
	pb, ok := d.points[b]
	if !ok {
		return 0, fmt.Errorf("directory: point %q not found", b)
	}
	if a == b {
		return 0, nil
	}
	key := [2]string{a, b}
	if a > b {
		key = [2]string{b, a}
	}
	if dist, ok := d.distCache[key]; ok {
		return dist, nil
	}
	dist := pa.DistanceTo(pb)
	d.distCache[key] = dist
	return dist, nil
}
