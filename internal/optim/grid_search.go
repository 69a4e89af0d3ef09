// Package optim searches policy parameters for the highest mean return.
package optim

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Objective scores one parameter set. Higher is better.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

// Axis is one searched parameter and the values tried for it.
type Axis struct {
	Name   string
	Values []float64
}

// Trial is one evaluated grid point.
type Trial struct {
	Params map[string]float64
	Score  float64
	Err    error
}

type GridSearch struct {
	axes []Axis
}

func NewGridSearch(axes ...Axis) *GridSearch {
	return &GridSearch{axes: axes}
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	if len(g.axes) == 0 {
		return 0
	}
	n := 1
	for _, a := range g.axes {
		n *= len(a.Values)
	}
	return n
}

// Search evaluates every grid point and returns the best parameters, its
// score, and all trials in evaluation order. Points whose objective fails
// or returns NaN are recorded but never chosen.
func (g *GridSearch) Search(ctx context.Context, obj Objective) (map[string]float64, float64, []Trial, error) {
	if g.Size() == 0 {
		return nil, 0, nil, fmt.Errorf("empty grid")
	}

	best := math.Inf(-1)
	var bestParams map[string]float64
	trials := make([]Trial, 0, g.Size())

	err := g.searchRecursive(ctx, 0, map[string]float64{}, func(p map[string]float64) {
		score, err := obj(ctx, p)
		trials = append(trials, Trial{Params: p, Score: score, Err: err})
		if err != nil || math.IsNaN(score) {
			return
		}
		if score > best {
			best = score
			bestParams = p
		}
	})
	if err != nil {
		return bestParams, best, trials, err
	}
	if bestParams == nil {
		return nil, 0, trials, fmt.Errorf("no grid point evaluated successfully")
	}
	return bestParams, best, trials, nil
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current map[string]float64, visit func(map[string]float64)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.axes) {
		p := make(map[string]float64, len(current))
		for k, v := range current {
			p[k] = v
		}
		visit(p)
		return nil
	}

	axis := g.axes[depth]
	for _, val := range axis.Values {
		current[axis.Name] = val
		if err := g.searchRecursive(ctx, depth+1, current, visit); err != nil {
			return err
		}
	}
	delete(current, axis.Name)
	return nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// ParseAxis reads "name=min:max:n" or "name=v1,v2,...".
func ParseAxis(s string) (Axis, error) {
	name, values, ok := strings.Cut(s, "=")
	if !ok || name == "" || values == "" {
		return Axis{}, fmt.Errorf("bad axis %q: want name=min:max:n or name=v1,v2", s)
	}

	if parts := strings.Split(values, ":"); len(parts) == 3 {
		lo, err1 := strconv.ParseFloat(parts[0], 64)
		hi, err2 := strconv.ParseFloat(parts[1], 64)
		n, err3 := strconv.Atoi(parts[2])
		if err1 != nil || err2 != nil || err3 != nil || n < 1 {
			return Axis{}, fmt.Errorf("bad axis %q", s)
		}
		return Axis{Name: name, Values: Linspace(lo, hi, n)}, nil
	}

	var vals []float64
	for _, f := range strings.Split(values, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return Axis{}, fmt.Errorf("bad axis %q: %w", s, err)
		}
		vals = append(vals, v)
	}
	return Axis{Name: name, Values: vals}, nil
}

// Ranked returns successful trials sorted by score, best first.
func Ranked(trials []Trial) []Trial {
	out := make([]Trial, 0, len(trials))
	for _, t := range trials {
		if t.Err == nil && !math.IsNaN(t.Score) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}
