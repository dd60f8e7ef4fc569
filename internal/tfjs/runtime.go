package tfjs

import (
	"context"
	"fmt"
	"sync"

	"github.com/f3rmion/kakitori/internal/recognizer"
	"github.com/tidwall/gjson"
	"gorgonia.org/tensor"
)

// Model is a loaded sequential model. Predict is safe for concurrent use.
type Model struct {
	layers  []layer
	input   *shape // nil when the topology does not declare one
	outputs int    // zero when input is nil

	pool sync.Pool
}

func build(topology gjson.Result, weights map[string][]float32) (*Model, error) {
	defs, err := layerConfigs(topology)
	if err != nil {
		return nil, err
	}

	m := &Model{}
	for i, def := range defs {
		bis := def.Get("config.batch_input_shape")
		if !bis.Exists() {
			bis = def.Get("config.batch_shape")
		}
		if i == 0 && bis.IsArray() {
			dims := bis.Array()
			if len(dims) != 4 {
				return nil, fmt.Errorf("input shape %s: want 4 dimensions", bis.Raw)
			}
			m.input = &shape{int(dims[1].Int()), int(dims[2].Int()), int(dims[3].Int())}
		}

		l, err := newLayer(def, weights)
		if err != nil {
			return nil, fmt.Errorf("building layer %d: %w", i, err)
		}
		if l != nil {
			m.layers = append(m.layers, l)
		}
	}
	if len(m.layers) == 0 {
		return nil, fmt.Errorf("model has no computational layers")
	}

	if m.input != nil {
		s, err := m.trace(*m.input)
		if err != nil {
			return nil, err
		}
		m.outputs = s[len(s)-1].size()
	}

	m.pool.New = func() any { return new(scratch) }
	return m, nil
}

// trace returns the output shape of every layer for the given input.
func (m *Model) trace(in shape) ([]shape, error) {
	shapes := make([]shape, len(m.layers))
	cur := in
	for i, l := range m.layers {
		next, err := l.outShape(cur)
		if err != nil {
			return nil, err
		}
		shapes[i] = next
		cur = next
	}
	return shapes, nil
}

// Outputs returns the width of the final layer, or zero when the model does
// not declare its input shape.
func (m *Model) Outputs() int { return m.outputs }

// Predict runs the forward pass for a single [1,H,W,C] float32 input.
// Cancellation is checked between layers.
func (m *Model) Predict(ctx context.Context, input *tensor.Dense) (recognizer.Output, error) {
	if input == nil {
		return nil, fmt.Errorf("nil input tensor")
	}
	dims := input.Shape()
	if len(dims) != 4 || dims[0] != 1 {
		return nil, fmt.Errorf("input shape %v: want [1 H W C]", dims)
	}
	in := shape{dims[1], dims[2], dims[3]}
	if m.input != nil && in != *m.input {
		return nil, fmt.Errorf("input shape %v, model expects %v", in, *m.input)
	}
	data, ok := input.Data().([]float32)
	if !ok {
		return nil, fmt.Errorf("input dtype %v: want float32", input.Dtype())
	}

	shapes, err := m.trace(in)
	if err != nil {
		return nil, err
	}

	sc := m.pool.Get().(*scratch)
	cur, cs := data, in
	for i, l := range m.layers {
		if err := ctx.Err(); err != nil {
			m.pool.Put(sc)
			return nil, err
		}
		out := sc.buf(i, shapes[i].size())
		l.forward(cur, cs, out, shapes[i])
		cur, cs = out, shapes[i]
	}

	return &output{probs: cur, sc: sc, model: m}, nil
}

// scratch holds one activation buffer per layer. Buffers are reused across
// predictions once returned to the pool.
type scratch struct {
	bufs [][]float32
}

func (s *scratch) buf(i, n int) []float32 {
	for len(s.bufs) <= i {
		s.bufs = append(s.bufs, nil)
	}
	if cap(s.bufs[i]) < n {
		s.bufs[i] = make([]float32, n)
	}
	return s.bufs[i][:n]
}

type output struct {
	probs []float32
	sc    *scratch
	model *Model
	once  sync.Once
}

func (o *output) Probabilities() []float32 { return o.probs }

// Release returns the buffers to the model. The probabilities must not be
// used afterwards.
func (o *output) Release() {
	o.once.Do(func() {
		o.model.pool.Put(o.sc)
		o.probs, o.sc = nil, nil
	})
}
