package model

import (
	"math"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/index/rtree"
	"github.com/pkg/errors"
)

// areaShape is what goes in the rtree: one polygon plus its area index.
type areaShape struct {
	geom.Polygonal
	id int
}

// NewAdjacencyFromShapefile derives the neighbor structure from a polygon
// shapefile: one record per area, in area-index order. Two areas are
// neighbors iff their polygons share a boundary. Candidate pairs come from
// an rtree bounding-box search; the boundary test itself is SharedBoundary.
func NewAdjacencyFromShapefile(path string) (*Adjacency, error) {
	dec, err := shp.NewDecoder(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open shapefile %s", path)
	}
	defer dec.Close()

	var shapes []*areaShape
	for {
		g, _, more := dec.DecodeRowFields()
		if !more {
			break
		}
		p, ok := g.(geom.Polygonal)
		if !ok {
			return nil, Configf("shapefile record %d is a %T, need polygons", len(shapes), g)
		}
		shapes = append(shapes, &areaShape{Polygonal: p, id: len(shapes)})
	}
	if err := dec.Error(); err != nil {
		return nil, errors.Wrapf(err, "error reading shapefile %s", path)
	}

	return NewAdjacencyFromPolygons(polygonals(shapes))
}

func polygonals(shapes []*areaShape) []geom.Polygonal {
	out := make([]geom.Polygonal, len(shapes))
	for i, s := range shapes {
		out[i] = s.Polygonal
	}
	return out
}

// NewAdjacencyFromPolygons builds the neighbor structure for the given
// polygons (one per area, index order).
func NewAdjacencyFromPolygons(polys []geom.Polygonal) (*Adjacency, error) {
	if len(polys) < 2 {
		return nil, Configf("need at least 2 polygons, got %d", len(polys))
	}

	tree := rtree.NewTree(25, 50)
	for i, p := range polys {
		tree.Insert(&areaShape{Polygonal: p, id: i})
	}

	neighbors := make([][]int, len(polys))
	for i, p := range polys {
		for _, hit := range tree.SearchIntersect(p.Bounds()) {
			other := hit.(*areaShape)
			if other.id == i {
				continue
			}
			if SharedBoundary(p, other.Polygonal) {
				neighbors[i] = append(neighbors[i], other.id)
			}
		}
	}

	adj, err := NewAdjacency(neighbors)
	if err != nil {
		return nil, errors.Wrap(err, "polygon set does not form a usable map")
	}
	return adj, nil
}

// SharedBoundary reports whether two polygons share a boundary. The test is
// vertex based: polygons drawn from the same map share the exact vertices
// along a common border, so two or more coincident vertices mean a shared
// edge. A single coincident vertex (a corner touch) does not count.
func SharedBoundary(a, b geom.Polygonal) bool {
	seen := make(map[vertexKey]bool)
	for _, pt := range polygonVertices(a) {
		seen[quantize(pt)] = true
	}

	matches := 0
	for _, pt := range polygonVertices(b) {
		if seen[quantize(pt)] {
			matches++
			if matches >= 2 {
				return true
			}
		}
	}
	return false
}

type vertexKey struct {
	x, y int64
}

const vertexTol = 1e-9

func quantize(p geom.Point) vertexKey {
	return vertexKey{
		x: int64(math.Round(p.X / vertexTol)),
		y: int64(math.Round(p.Y / vertexTol)),
	}
}

func polygonVertices(p geom.Polygonal) []geom.Point {
	var pts []geom.Point
	switch g := p.(type) {
	case geom.Polygon:
		for _, ring := range g {
			pts = append(pts, ring...)
		}
	case geom.MultiPolygon:
		for _, poly := range g {
			for _, ring := range poly {
				pts = append(pts, ring...)
			}
		}
	}
	return pts
}
