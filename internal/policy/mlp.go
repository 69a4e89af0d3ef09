package policy

import (
	"fmt"
	"math"
	"math/rand"
	"os"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/spotsim/internal/dynamo"
	"github.com/san-kum/spotsim/internal/env"
)

// DefaultHidden is the hidden layer layout used when none is given.
var DefaultHidden = []int{64, 64}

type layer struct {
	w    *mat.Dense
	b    *mat.VecDense
	out  *mat.VecDense
	tanh bool
}

func (l *layer) size() int {
	r, c := l.w.Dims()
	return r*c + r
}

func (l *layer) forward(x mat.Vector) *mat.VecDense {
	l.out.MulVec(l.w, x)
	l.out.AddVec(l.out, l.b)
	if l.tanh {
		raw := l.out.RawVector()
		for i := 0; i < raw.N; i++ {
			raw.Data[i*raw.Inc] = math.Tanh(raw.Data[i*raw.Inc])
		}
	}
	return l.out
}

// MLP is a feed-forward network from the 42-value observation to the
// 12 joint targets: tanh hidden layers and a linear output layer.
//
// Its flat parameter vector lists, layer by layer, the weights in
// row-major (output, input) order followed by the biases. This is the
// exported form of a trained policy.
type MLP struct {
	hidden []int
	layers []*layer
	in     *mat.VecDense
}

// NewMLP builds a network with Xavier-uniform weights drawn from seed.
// A nil hidden uses DefaultHidden; an empty one gives a single linear
// layer.
func NewMLP(hidden []int, seed int64) (*MLP, error) {
	if hidden == nil {
		hidden = DefaultHidden
	}
	sizes := append([]int{env.ObservationDim}, hidden...)
	sizes = append(sizes, env.ActionDim)
	for _, n := range hidden {
		if n < 1 {
			return nil, fmt.Errorf("hidden layer size must be >= 1, got %d", n)
		}
	}

	rng := rand.New(rand.NewSource(seed))
	m := &MLP{hidden: append(make([]int, 0, len(hidden)), hidden...), in: mat.NewVecDense(env.ObservationDim, nil)}
	for i := 0; i+1 < len(sizes); i++ {
		nIn, nOut := sizes[i], sizes[i+1]
		scale := math.Sqrt(2 / float64(nIn+nOut))
		uniform := func(n int) []float64 {
			v := make([]float64, n)
			for j := range v {
				v[j] = (2*rng.Float64() - 1) * scale
			}
			return v
		}
		m.layers = append(m.layers, &layer{
			w:    mat.NewDense(nOut, nIn, uniform(nOut*nIn)),
			b:    mat.NewVecDense(nOut, uniform(nOut)),
			out:  mat.NewVecDense(nOut, nil),
			tanh: i+2 < len(sizes),
		})
	}
	return m, nil
}

// Hidden returns the hidden layer sizes.
func (m *MLP) Hidden() []int { return append(make([]int, 0, len(m.hidden)), m.hidden...) }

func (m *MLP) NumParams() int {
	n := 0
	for _, l := range m.layers {
		n += l.size()
	}
	return n
}

// Params returns a copy of the flat parameter vector.
func (m *MLP) Params() []float64 {
	out := make([]float64, 0, m.NumParams())
	for _, l := range m.layers {
		out = append(out, l.w.RawMatrix().Data...)
		out = append(out, l.b.RawVector().Data...)
	}
	return out
}

// SetParams loads a flat parameter vector in the order of Params.
func (m *MLP) SetParams(p []float64) error {
	if len(p) != m.NumParams() {
		return fmt.Errorf("mlp params: %w", &env.DimensionError{Want: m.NumParams(), Got: len(p)})
	}
	if !dynamo.Finite(p...) {
		return fmt.Errorf("mlp params: %w", dynamo.ErrInvalidState)
	}
	off := 0
	for _, l := range m.layers {
		w := l.w.RawMatrix().Data
		off += copy(w, p[off:off+len(w)])
		b := l.b.RawVector().Data
		off += copy(b, p[off:off+len(b)])
	}
	return nil
}

// Forward runs the network on obs.
func (m *MLP) Forward(obs env.Observation) []float64 {
	for i, v := range obs {
		m.in.SetVec(i, float64(v))
	}
	var x mat.Vector = m.in
	for _, l := range m.layers {
		x = l.forward(x)
	}
	out := make([]float64, env.ActionDim)
	for i := range out {
		out[i] = x.AtVec(i)
	}
	return out
}

func (m *MLP) Act(obs env.Observation, _ float64) []float32 {
	y := m.Forward(obs)
	out := make([]float32, len(y))
	for i, v := range y {
		out[i] = float32(v)
	}
	return out
}

func (m *MLP) Reset() {}

// mlpFile is the on-disk parameter format. YAML or JSON are both accepted.
type mlpFile struct {
	Hidden []int     `yaml:"hidden"`
	Params []float64 `yaml:"params,flow"`
}

// LoadMLP reads a parameter file written by SaveMLP.
func LoadMLP(path string) (*MLP, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f mlpFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	m, err := NewMLP(f.Hidden, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := m.SetParams(f.Params); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func SaveMLP(path string, m *MLP) error {
	data, err := yaml.Marshal(mlpFile{Hidden: m.Hidden(), Params: m.Params()})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
