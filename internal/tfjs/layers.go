package tfjs

import (
	"fmt"
	"math"

	"github.com/tidwall/gjson"
)

// shape is the per-example shape of an activation in channels-last order.
// Dense activations are 1x1xN.
type shape struct {
	h, w, c int
}

func (s shape) size() int { return s.h * s.w * s.c }

func (s shape) String() string { return fmt.Sprintf("[%d %d %d]", s.h, s.w, s.c) }

type layer interface {
	name() string
	outShape(in shape) (shape, error)
	forward(in []float32, is shape, out []float32, os shape)
}

// activation transforms x in place. c is the channel count, the axis
// softmax normalizes over.
type activation func(x []float32, c int)

func activationFor(name string) (activation, error) {
	switch name {
	case "", "linear":
		return nil, nil
	case "relu":
		return func(x []float32, _ int) {
			for i, v := range x {
				if v < 0 {
					x[i] = 0
				}
			}
		}, nil
	case "relu6":
		return func(x []float32, _ int) {
			for i, v := range x {
				x[i] = float32(math.Min(math.Max(float64(v), 0), 6))
			}
		}, nil
	case "sigmoid":
		return func(x []float32, _ int) {
			for i, v := range x {
				x[i] = float32(1 / (1 + math.Exp(-float64(v))))
			}
		}, nil
	case "tanh":
		return func(x []float32, _ int) {
			for i, v := range x {
				x[i] = float32(math.Tanh(float64(v)))
			}
		}, nil
	case "elu":
		return func(x []float32, _ int) {
			for i, v := range x {
				if v < 0 {
					x[i] = float32(math.Expm1(float64(v)))
				}
			}
		}, nil
	case "softmax":
		return softmax, nil
	default:
		return nil, fmt.Errorf("unsupported activation %q", name)
	}
}

func softmax(x []float32, c int) {
	for start := 0; start+c <= len(x); start += c {
		row := x[start : start+c]
		max := row[0]
		for _, v := range row[1:] {
			if v > max {
				max = v
			}
		}
		var sum float64
		for i, v := range row {
			e := math.Exp(float64(v - max))
			row[i] = float32(e)
			sum += e
		}
		for i := range row {
			row[i] = float32(float64(row[i]) / sum)
		}
	}
}

// window resolves output length and leading padding along one axis, the
// way TensorFlow does for "valid" and "same".
func window(in, k, stride int, padding string) (out, pad int, err error) {
	switch padding {
	case "", "valid":
		if in < k {
			return 0, 0, fmt.Errorf("window %d larger than input %d", k, in)
		}
		return (in-k)/stride + 1, 0, nil
	case "same":
		out = (in + stride - 1) / stride
		total := (out-1)*stride + k - in
		if total < 0 {
			total = 0
		}
		return out, total / 2, nil
	default:
		return 0, 0, fmt.Errorf("unsupported padding %q", padding)
	}
}

func pair(v gjson.Result, fallback int) (int, int) {
	if !v.Exists() || v.Type == gjson.Null {
		return fallback, fallback
	}
	if v.IsArray() {
		a := v.Array()
		if len(a) == 2 {
			return int(a[0].Int()), int(a[1].Int())
		}
		if len(a) == 1 {
			return int(a[0].Int()), int(a[0].Int())
		}
		return fallback, fallback
	}
	return int(v.Int()), int(v.Int())
}

type conv2D struct {
	id           string
	kernel, bias []float32
	kh, kw       int
	sh, sw       int
	filters      int
	padding      string
	act          activation
}

func (l *conv2D) name() string { return l.id }

func (l *conv2D) outShape(in shape) (shape, error) {
	if want := l.kh * l.kw * in.c * l.filters; len(l.kernel) != want {
		return shape{}, fmt.Errorf("%s: kernel has %d values, want %d for input %v", l.id, len(l.kernel), want, in)
	}
	oh, _, err := window(in.h, l.kh, l.sh, l.padding)
	if err != nil {
		return shape{}, fmt.Errorf("%s: %w", l.id, err)
	}
	ow, _, err := window(in.w, l.kw, l.sw, l.padding)
	if err != nil {
		return shape{}, fmt.Errorf("%s: %w", l.id, err)
	}
	return shape{oh, ow, l.filters}, nil
}

func (l *conv2D) forward(in []float32, is shape, out []float32, os shape) {
	_, pt, _ := window(is.h, l.kh, l.sh, l.padding)
	_, pl, _ := window(is.w, l.kw, l.sw, l.padding)
	cin, cout := is.c, l.filters

	for oy := 0; oy < os.h; oy++ {
		for ox := 0; ox < os.w; ox++ {
			o := out[(oy*os.w+ox)*cout:][:cout]
			if l.bias != nil {
				copy(o, l.bias)
			} else {
				clear(o)
			}
			for ky := 0; ky < l.kh; ky++ {
				iy := oy*l.sh - pt + ky
				if iy < 0 || iy >= is.h {
					continue
				}
				for kx := 0; kx < l.kw; kx++ {
					ix := ox*l.sw - pl + kx
					if ix < 0 || ix >= is.w {
						continue
					}
					px := in[(iy*is.w+ix)*cin:][:cin]
					for ci, v := range px {
						if v == 0 {
							continue
						}
						k := l.kernel[((ky*l.kw+kx)*cin+ci)*cout:][:cout]
						for co, kv := range k {
							o[co] += v * kv
						}
					}
				}
			}
		}
	}
	if l.act != nil {
		l.act(out, cout)
	}
}

type pool2D struct {
	id      string
	max     bool
	ph, pw  int
	sh, sw  int
	padding string
}

func (l *pool2D) name() string { return l.id }

func (l *pool2D) outShape(in shape) (shape, error) {
	oh, _, err := window(in.h, l.ph, l.sh, l.padding)
	if err != nil {
		return shape{}, fmt.Errorf("%s: %w", l.id, err)
	}
	ow, _, err := window(in.w, l.pw, l.sw, l.padding)
	if err != nil {
		return shape{}, fmt.Errorf("%s: %w", l.id, err)
	}
	return shape{oh, ow, in.c}, nil
}

// forward skips padded cells: they never win a max and do not count
// toward an average.
func (l *pool2D) forward(in []float32, is shape, out []float32, os shape) {
	_, pt, _ := window(is.h, l.ph, l.sh, l.padding)
	_, pl, _ := window(is.w, l.pw, l.sw, l.padding)
	c := is.c

	for oy := 0; oy < os.h; oy++ {
		for ox := 0; ox < os.w; ox++ {
			o := out[(oy*os.w+ox)*c:][:c]
			for ch := range o {
				acc := float32(math.Inf(-1))
				if !l.max {
					acc = 0
				}
				n := 0
				for ky := 0; ky < l.ph; ky++ {
					iy := oy*l.sh - pt + ky
					if iy < 0 || iy >= is.h {
						continue
					}
					for kx := 0; kx < l.pw; kx++ {
						ix := ox*l.sw - pl + kx
						if ix < 0 || ix >= is.w {
							continue
						}
						v := in[(iy*is.w+ix)*c+ch]
						if l.max {
							if v > acc {
								acc = v
							}
						} else {
							acc += v
						}
						n++
					}
				}
				if !l.max && n > 0 {
					acc /= float32(n)
				}
				o[ch] = acc
			}
		}
	}
}

type flatten struct{ id string }

func (l *flatten) name() string { return l.id }

func (l *flatten) outShape(in shape) (shape, error) { return shape{1, 1, in.size()}, nil }

func (l *flatten) forward(in []float32, _ shape, out []float32, _ shape) { copy(out, in) }

type dense struct {
	id           string
	kernel, bias []float32
	units        int
	act          activation
}

func (l *dense) name() string { return l.id }

func (l *dense) outShape(in shape) (shape, error) {
	if in.h != 1 || in.w != 1 {
		return shape{}, fmt.Errorf("%s: input %v is not flat", l.id, in)
	}
	if want := in.c * l.units; len(l.kernel) != want {
		return shape{}, fmt.Errorf("%s: kernel has %d values, want %d for input %v", l.id, len(l.kernel), want, in)
	}
	return shape{1, 1, l.units}, nil
}

func (l *dense) forward(in []float32, _ shape, out []float32, _ shape) {
	if l.bias != nil {
		copy(out, l.bias)
	} else {
		clear(out)
	}
	for i, v := range in {
		if v == 0 {
			continue
		}
		row := l.kernel[i*l.units:][:l.units]
		for j, k := range row {
			out[j] += v * k
		}
	}
	if l.act != nil {
		l.act(out, l.units)
	}
}

// batchNorm applies inference-mode normalization folded into a per-channel
// scale and offset.
type batchNorm struct {
	id            string
	scale, offset []float32
}

func newBatchNorm(id string, gamma, beta, mean, variance []float32, epsilon float64) (*batchNorm, error) {
	c := len(mean)
	if c == 0 || len(variance) != c || (gamma != nil && len(gamma) != c) || (beta != nil && len(beta) != c) {
		return nil, fmt.Errorf("%s: inconsistent batch norm weights", id)
	}
	l := &batchNorm{id: id, scale: make([]float32, c), offset: make([]float32, c)}
	for i := 0; i < c; i++ {
		s := 1 / math.Sqrt(float64(variance[i])+epsilon)
		if gamma != nil {
			s *= float64(gamma[i])
		}
		l.scale[i] = float32(s)
		l.offset[i] = -mean[i] * float32(s)
		if beta != nil {
			l.offset[i] += beta[i]
		}
	}
	return l, nil
}

func (l *batchNorm) name() string { return l.id }

func (l *batchNorm) outShape(in shape) (shape, error) {
	if in.c != len(l.scale) {
		return shape{}, fmt.Errorf("%s: %d channels, input has %d", l.id, len(l.scale), in.c)
	}
	return in, nil
}

func (l *batchNorm) forward(in []float32, is shape, out []float32, _ shape) {
	for i, v := range in {
		ch := i % is.c
		out[i] = v*l.scale[ch] + l.offset[ch]
	}
}

// activate is a standalone Activation, ReLU or Softmax layer.
type activate struct {
	id  string
	act activation
}

func (l *activate) name() string { return l.id }

func (l *activate) outShape(in shape) (shape, error) { return in, nil }

func (l *activate) forward(in []float32, is shape, out []float32, _ shape) {
	copy(out, in)
	if l.act != nil {
		l.act(out, is.c)
	}
}

// passthrough layers only matter during training.
var passthrough = map[string]bool{
	"Dropout":          true,
	"SpatialDropout2D": true,
	"GaussianNoise":    true,
	"GaussianDropout":  true,
	"AlphaDropout":     true,
}

// newLayer builds the layer described by a Keras layer config. It returns a
// nil layer for layers that are identities at inference time.
func newLayer(def gjson.Result, weights map[string][]float32) (layer, error) {
	class := def.Get("class_name").String()
	cfg := def.Get("config")
	id := cfg.Get("name").String()

	if f := cfg.Get("data_format").String(); f != "" && f != "channels_last" {
		return nil, fmt.Errorf("%s: unsupported data format %q", id, f)
	}

	act, err := activationFor(cfg.Get("activation").String())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", id, err)
	}

	useBias := !cfg.Get("use_bias").Exists() || cfg.Get("use_bias").Bool()
	bias := func() ([]float32, error) {
		if !useBias {
			return nil, nil
		}
		b, ok := weightFor(weights, id, "bias")
		if !ok {
			return nil, fmt.Errorf("%s: missing bias", id)
		}
		return b, nil
	}

	switch class {
	case "InputLayer":
		return nil, nil

	case "Conv2D":
		kernel, ok := weightFor(weights, id, "kernel")
		if !ok {
			return nil, fmt.Errorf("%s: missing kernel", id)
		}
		b, err := bias()
		if err != nil {
			return nil, err
		}
		if dh, dw := pair(cfg.Get("dilation_rate"), 1); dh != 1 || dw != 1 {
			return nil, fmt.Errorf("%s: dilated convolution is not supported", id)
		}
		filters := int(cfg.Get("filters").Int())
		if b != nil && len(b) != filters {
			return nil, fmt.Errorf("%s: bias has %d values, want %d", id, len(b), filters)
		}
		l := &conv2D{
			id:      id,
			kernel:  kernel,
			bias:    b,
			filters: filters,
			padding: cfg.Get("padding").String(),
			act:     act,
		}
		l.kh, l.kw = pair(cfg.Get("kernel_size"), 1)
		l.sh, l.sw = pair(cfg.Get("strides"), 1)
		return l, nil

	case "MaxPooling2D", "AveragePooling2D":
		l := &pool2D{
			id:      id,
			max:     class == "MaxPooling2D",
			padding: cfg.Get("padding").String(),
		}
		l.ph, l.pw = pair(cfg.Get("pool_size"), 2)
		l.sh, l.sw = pair(cfg.Get("strides"), 0)
		if l.sh == 0 {
			l.sh, l.sw = l.ph, l.pw
		}
		return l, nil

	case "Flatten":
		return &flatten{id: id}, nil

	case "Dense":
		kernel, ok := weightFor(weights, id, "kernel")
		if !ok {
			return nil, fmt.Errorf("%s: missing kernel", id)
		}
		b, err := bias()
		if err != nil {
			return nil, err
		}
		units := int(cfg.Get("units").Int())
		if b != nil && len(b) != units {
			return nil, fmt.Errorf("%s: bias has %d values, want %d", id, len(b), units)
		}
		return &dense{id: id, kernel: kernel, bias: b, units: units, act: act}, nil

	case "BatchNormalization":
		if axis := cfg.Get("axis"); axis.Exists() && !axis.IsArray() && axis.Int() != -1 && axis.Int() != 3 {
			return nil, fmt.Errorf("%s: unsupported axis %d", id, axis.Int())
		}
		mean, ok := weightFor(weights, id, "moving_mean")
		if !ok {
			return nil, fmt.Errorf("%s: missing moving_mean", id)
		}
		variance, ok := weightFor(weights, id, "moving_variance")
		if !ok {
			return nil, fmt.Errorf("%s: missing moving_variance", id)
		}
		gamma, _ := weightFor(weights, id, "gamma")
		beta, _ := weightFor(weights, id, "beta")
		eps := 1e-3
		if e := cfg.Get("epsilon"); e.Exists() {
			eps = e.Float()
		}
		return newBatchNorm(id, gamma, beta, mean, variance, eps)

	case "Activation":
		return &activate{id: id, act: act}, nil

	case "ReLU":
		relu, _ := activationFor("relu")
		return &activate{id: id, act: relu}, nil

	case "Softmax":
		return &activate{id: id, act: softmax}, nil

	default:
		if passthrough[class] {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: unsupported layer %q", id, class)
	}
}
