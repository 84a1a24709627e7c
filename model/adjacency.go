package model

import (
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Adjacency is the global neighbor structure for a map of geographic areas.
// It is built once, checked, and then shared read-only by every concurrent
// chain and run. Areas are indexed 0..NumAreas-1.
//
// The layout is the flattened form every CAR computation wants: Adj holds
// all neighbor lists back to back, Num[i] is area i's neighbor count, and
// Index is the prefix sum of Num with a leading zero, so area i's block is
// Adj[Index[i]:Index[i+1]].
type Adjacency struct {
	NumAreas int
	Adj      []int
	Num      []int
	Index    []int
}

// NewAdjacency builds the flattened structure from per-area neighbor lists
// and validates it. The neighbor relation must be symmetric and no area may
// be isolated.
func NewAdjacency(neighbors [][]int) (*Adjacency, error) {
	n := len(neighbors)
	if n < 2 {
		return nil, Configf("adjacency needs at least 2 areas, got %d", n)
	}

	a := &Adjacency{
		NumAreas: n,
		Num:      make([]int, n),
		Index:    make([]int, n+1),
	}

	total := 0
	for i, nbs := range neighbors {
		a.Num[i] = len(nbs)
		a.Index[i] = total
		total += len(nbs)
	}
	a.Index[n] = total

	a.Adj = make([]int, 0, total)
	for _, nbs := range neighbors {
		a.Adj = append(a.Adj, nbs...)
	}

	if err := a.Check(); err != nil {
		return nil, err
	}
	return a, nil
}

// LoadAdjacencyList reads a plain-text neighbor file: one line per area,
// whitespace-separated 0-based neighbor indices. An alternative to the
// shapefile path when the neighbor relation is already known.
func LoadAdjacencyList(path string) (*Adjacency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read adjacency list %s", path)
	}

	var neighbors [][]int
	for ln, line := range strings.Split(strings.TrimRight(string(data), "\n"), "\n") {
		var nbs []int
		for _, tok := range strings.Fields(line) {
			v, err := strconv.Atoi(tok)
			if err != nil {
				return nil, Configf("bad neighbor id %q at line %d of %s", tok, ln+1, path)
			}
			nbs = append(nbs, v)
		}
		neighbors = append(neighbors, nbs)
	}

	return NewAdjacency(neighbors)
}

// Neighbors returns area i's neighbor block. The returned slice aliases the
// shared structure and must not be modified.
func (a *Adjacency) Neighbors(i int) []int {
	return a.Adj[a.Index[i]:a.Index[i+1]]
}

// Check returns an error if there is a problem with the structure: bad
// prefix sums, out-of-range ids, an asymmetric relation, or an isolated
// area (which makes the CAR conditional undefined).
func (a *Adjacency) Check() error {
	n := a.NumAreas
	if len(a.Num) != n || len(a.Index) != n+1 {
		return Configf("adjacency arrays sized for %d areas, Num=%d Index=%d", n, len(a.Num), len(a.Index))
	}

	total := 0
	for i := 0; i < n; i++ {
		if a.Index[i] != total {
			return Configf("adjacency index[%d]=%d, want prefix sum %d", i, a.Index[i], total)
		}
		total += a.Num[i]
	}
	if a.Index[n] != total || len(a.Adj) != total {
		return Configf("adjacency sum(num)=%d but len(adj)=%d", total, len(a.Adj))
	}

	for i := 0; i < n; i++ {
		if a.Num[i] == 0 {
			return NonIdentifiablef(i, "area has no neighbors")
		}
		for _, j := range a.Neighbors(i) {
			if j < 0 || j >= n {
				return Configf("area %d has out-of-range neighbor %d", i, j)
			}
			if j == i {
				return Configf("area %d lists itself as a neighbor", i)
			}
			if !contains(a.Neighbors(j), i) {
				return Configf("asymmetric adjacency: %d -> %d but not %d -> %d", i, j, j, i)
			}
		}
	}

	return nil
}

func sqrtProd(a, b float64) float64 {
	return math.Sqrt(a * b)
}

func contains(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

// UniformWeights returns edge weights of 1.0 aligned with Adj. This is the
// classical CAR-normal weighting.
func UniformWeights(a *Adjacency) []float64 {
	w := make([]float64, len(a.Adj))
	for i := range w {
		w[i] = 1.0
	}
	return w
}

// WeightsFromScales returns edge weights sqrt(c[i]*c[j]) aligned with Adj,
// where c holds one positive scale per area. This is the weighting the
// adaptive models estimate jointly and the one fed back into univariate
// BYM runs. Note the result is symmetric: the weight stored in i's block
// for neighbor j equals the one stored in j's block for i.
func WeightsFromScales(a *Adjacency, c []float64) ([]float64, error) {
	if len(c) != a.NumAreas {
		return nil, Configf("scales len %d != %d areas", len(c), a.NumAreas)
	}
	for i, ci := range c {
		if ci <= 0 {
			return nil, Configf("scale for area %d is %f, must be positive", i, ci)
		}
	}

	w := make([]float64, len(a.Adj))
	for i := 0; i < a.NumAreas; i++ {
		for k, j := range a.Neighbors(i) {
			w[a.Index[i]+k] = sqrtProd(c[i], c[j])
		}
	}
	return w, nil
}

// WeightsPerArea returns edge weights aligned with Adj where the slot for
// neighbor j in area i's block holds c[j] directly. This is deliberately a
// different strategy from WeightsFromScales (and is not symmetric across
// blocks); the univariate Leroux path uses this one.
func WeightsPerArea(a *Adjacency, c []float64) ([]float64, error) {
	if len(c) != a.NumAreas {
		return nil, Configf("scales len %d != %d areas", len(c), a.NumAreas)
	}
	for i, ci := range c {
		if ci <= 0 {
			return nil, Configf("scale for area %d is %f, must be positive", i, ci)
		}
	}

	w := make([]float64, len(a.Adj))
	for i := 0; i < a.NumAreas; i++ {
		for k, j := range a.Neighbors(i) {
			w[a.Index[i]+k] = c[j]
		}
	}
	return w, nil
}
