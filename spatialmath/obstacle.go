package spatialmath

import (
	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
)

// Obstacle discriminator strings used in JSON configs.
const (
	ObstacleTypeObstacle = "obstacle"
	ObstacleTypeKeepIn   = "keep_in"
)

// Obstacle pairs a field polygon with its containment semantics: a normal
// obstacle must be avoided, while a keep-in polygon is the region the robot
// must remain inside.
type Obstacle struct {
	polygon *Polygon
	keepIn  bool
	label   string
}

// NewObstacle instantiates a new Obstacle from its vertices.
func NewObstacle(vertices []r2.Point, keepIn bool, label string) (*Obstacle, error) {
	polygon, err := NewPolygon(vertices)
	if err != nil {
		return nil, err
	}
	return &Obstacle{polygon: polygon, keepIn: keepIn, label: label}, nil
}

// Polygon returns the obstacle's polygon.
func (o *Obstacle) Polygon() *Polygon {
	return o.polygon
}

// KeepIn reports whether the polygon's interior is the allowed region.
func (o *Obstacle) KeepIn() bool {
	return o.keepIn
}

// Label returns the obstacle's label.
func (o *Obstacle) Label() string {
	return o.label
}

// ObstacleConfig is the JSON representation of an Obstacle.
type ObstacleConfig struct {
	Type     string       `json:"type"`
	Label    string       `json:"label,omitempty"`
	Vertices [][2]float64 `json:"vertices"`
}

// ParseConfig converts an ObstacleConfig into an Obstacle.
func (config *ObstacleConfig) ParseConfig() (*Obstacle, error) {
	vertices := make([]r2.Point, 0, len(config.Vertices))
	for _, v := range config.Vertices {
		vertices = append(vertices, r2.Point{X: v[0], Y: v[1]})
	}
	switch config.Type {
	case ObstacleTypeObstacle, "":
		return NewObstacle(vertices, false, config.Label)
	case ObstacleTypeKeepIn:
		return NewObstacle(vertices, true, config.Label)
	default:
		return nil, errors.Errorf("unsupported obstacle type %q", config.Type)
	}
}
