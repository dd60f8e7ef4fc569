// Package tfjs runs Keras models exported in the TensorFlow.js layers format
// (model.json plus binary weight shards) on the CPU.
package tfjs

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/f3rmion/kakitori/internal/logging"
	"github.com/f3rmion/kakitori/internal/recognizer"
	"github.com/tidwall/gjson"
)

// Runtime loads layers-format models. It satisfies recognizer.Runtime.
type Runtime struct{}

// Acquire returns the runtime. It matches recognizer.RuntimeFunc; the CPU
// runtime has nothing to set up.
func Acquire(ctx context.Context) (recognizer.Runtime, error) {
	return Runtime{}, nil
}

// LoadModel fetches model.json at location, then its weight shards, and
// builds the layer stack.
func (Runtime) LoadModel(ctx context.Context, fetch recognizer.Fetcher, location string) (recognizer.Model, error) {
	manifest, err := fetch.Fetch(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("fetching model manifest: %w", err)
	}
	if !gjson.ValidBytes(manifest) {
		return nil, fmt.Errorf("model manifest is not valid JSON")
	}
	doc := gjson.ParseBytes(manifest)

	weights, err := loadWeights(ctx, fetch, location, doc.Get("weightsManifest"))
	if err != nil {
		return nil, err
	}

	model, err := build(doc.Get("modelTopology"), weights)
	if err != nil {
		return nil, err
	}

	logging.L().Debug("tfjs model loaded",
		"location", location,
		"layers", len(model.layers),
		"outputs", model.outputs,
	)
	return model, nil
}

// Parse builds a model from an in-memory manifest and weight groups; shards
// are looked up by the paths listed in the manifest.
func Parse(manifest []byte, shards map[string][]byte) (*Model, error) {
	fetch := recognizer.FetcherFunc(func(ctx context.Context, location string) ([]byte, error) {
		if location == "model.json" {
			return manifest, nil
		}
		data, ok := shards[location]
		if !ok {
			return nil, fmt.Errorf("missing shard %s", location)
		}
		return data, nil
	})

	m, err := Runtime{}.LoadModel(context.Background(), fetch, "model.json")
	if err != nil {
		return nil, err
	}
	return m.(*Model), nil
}

// loadWeights decodes every weight named in the manifest, keyed by name.
func loadWeights(ctx context.Context, fetch recognizer.Fetcher, base string, manifest gjson.Result) (map[string][]float32, error) {
	weights := make(map[string][]float32)

	for gi, group := range manifest.Array() {
		var buf []byte
		for _, p := range group.Get("paths").Array() {
			data, err := fetch.Fetch(ctx, recognizer.Resolve(base, p.String()))
			if err != nil {
				return nil, fmt.Errorf("fetching weight shard %s: %w", p.String(), err)
			}
			buf = append(buf, data...)
		}

		offset := 0
		for _, w := range group.Get("weights").Array() {
			name := w.Get("name").String()
			n := 1
			for _, d := range w.Get("shape").Array() {
				n *= int(d.Int())
			}

			vals, used, err := decode(buf[offset:], n, w)
			if err != nil {
				return nil, fmt.Errorf("decoding weight %s in group %d: %w", name, gi, err)
			}
			weights[name] = vals
			offset += used
		}
	}

	return weights, nil
}

// decode reads n values of the entry's dtype from buf, dequantizing when the
// entry carries quantization parameters. It returns the values and the
// number of bytes consumed.
func decode(buf []byte, n int, entry gjson.Result) ([]float32, int, error) {
	dtype := entry.Get("dtype").String()
	if dtype != "" && dtype != "float32" {
		return nil, 0, fmt.Errorf("unsupported dtype %q", dtype)
	}

	out := make([]float32, n)
	q := entry.Get("quantization")
	if !q.Exists() {
		if len(buf) < n*4 {
			return nil, 0, fmt.Errorf("need %d bytes, have %d", n*4, len(buf))
		}
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		}
		return out, n * 4, nil
	}

	scale := float32(q.Get("scale").Float())
	min := float32(q.Get("min").Float())
	switch qt := q.Get("dtype").String(); qt {
	case "uint8":
		if len(buf) < n {
			return nil, 0, fmt.Errorf("need %d bytes, have %d", n, len(buf))
		}
		for i := range out {
			out[i] = float32(buf[i])*scale + min
		}
		return out, n, nil
	case "uint16":
		if len(buf) < n*2 {
			return nil, 0, fmt.Errorf("need %d bytes, have %d", n*2, len(buf))
		}
		for i := range out {
			out[i] = float32(binary.LittleEndian.Uint16(buf[i*2:]))*scale + min
		}
		return out, n * 2, nil
	default:
		return nil, 0, fmt.Errorf("unsupported quantization dtype %q", qt)
	}
}

// layerConfigs finds the layer list in the topology. Keras versions nest it
// differently: under model_config or not, as config or config.layers.
func layerConfigs(topology gjson.Result) ([]gjson.Result, error) {
	if mc := topology.Get("model_config"); mc.Exists() {
		topology = mc
	}
	if cls := topology.Get("class_name").String(); cls != "Sequential" {
		return nil, fmt.Errorf("unsupported model class %q", cls)
	}

	cfg := topology.Get("config")
	if cfg.IsArray() {
		return cfg.Array(), nil
	}
	layers := cfg.Get("layers")
	if !layers.IsArray() {
		return nil, fmt.Errorf("model topology has no layers")
	}
	return layers.Array(), nil
}

// weightFor returns the weight of the named layer with the given suffix
// (kernel, bias, gamma, ...). Converted names look like "conv2d_1/kernel",
// optionally nested under the model name.
func weightFor(weights map[string][]float32, layer, suffix string) ([]float32, bool) {
	if w, ok := weights[layer+"/"+suffix]; ok {
		return w, true
	}
	for name, w := range weights {
		name = strings.TrimSuffix(name, ":0")
		if strings.HasSuffix(name, "/"+layer+"/"+suffix) {
			return w, true
		}
	}
	return nil, false
}
