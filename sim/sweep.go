package sim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// BusinessModelFactory builds a fresh business model for one sweep point.
// It must not return operations shared with any other call.
type BusinessModelFactory func(combo Params) (*BusinessModel, error)

// ParamAxis is one named dimension of a sweep with its candidate values.
type ParamAxis struct {
	Name   string
	Values []any
}

// ParamGrid is an ordered set of sweep axes. Order matters: it fixes both
// the iteration order (right-most axis varies fastest) and the combo key.
type ParamGrid []ParamAxis

// Combination is one point of a grid, in axis order.
type Combination []ComboParam

// ComboParam is one axis value within a Combination.
type ComboParam struct {
	Name  string
	Value any
}

// Key renders the combination as name=value parts joined by "_".
func (c Combination) Key() string {
	parts := make([]string, len(c))
	for i, p := range c {
		parts[i] = p.Name + "=" + FormatParamValue(p.Value)
	}
	return strings.Join(parts, "_")
}

// Params returns the combination as a parameter map for the factory.
func (c Combination) Params() Params {
	p := make(Params, len(c))
	for _, cp := range c {
		p[cp.Name] = cp.Value
	}
	return p
}

// Validate rejects grids with no axes, unnamed axes or axes without values.
func (g ParamGrid) Validate() error {
	if len(g) == 0 {
		return configErrorf("param_grid", "must contain at least one parameter")
	}
	for i, axis := range g {
		if axis.Name == "" {
			return configErrorf("param_grid", "axis %d has no name", i)
		}
		if len(axis.Values) == 0 {
			return configErrorf("param_grid", "parameter %q has no candidate values", axis.Name)
		}
	}
	return nil
}

// Size returns the number of combinations in the grid.
func (g ParamGrid) Size() int {
	if len(g) == 0 {
		return 0
	}
	n := 1
	for _, axis := range g {
		n *= len(axis.Values)
	}
	return n
}

// Combinations returns the Cartesian product of all axes, right-most axis
// varying fastest, matching nested loops over the axes in order.
func (g ParamGrid) Combinations() []Combination {
	total := g.Size()
	combos := make([]Combination, 0, total)
	if total == 0 {
		return combos
	}
	idx := make([]int, len(g))
	for n := 0; n < total; n++ {
		combo := make(Combination, len(g))
		for i, axis := range g {
			combo[i] = ComboParam{Name: axis.Name, Value: axis.Values[idx[i]]}
		}
		combos = append(combos, combo)

		for i := len(g) - 1; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(g[i].Values) {
				break
			}
			idx[i] = 0
		}
	}
	return combos
}

// UnmarshalYAML decodes a mapping of name -> list, preserving key order.
func (g *ParamGrid) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: param grid must be a mapping of name to list", node.Line)
	}
	grid := make(ParamGrid, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keyNode, valNode := node.Content[i], node.Content[i+1]
		var values []any
		if err := valNode.Decode(&values); err != nil {
			return fmt.Errorf("line %d: parameter %q: %w", valNode.Line, keyNode.Value, err)
		}
		grid = append(grid, ParamAxis{Name: keyNode.Value, Values: values})
	}
	*g = grid
	return nil
}

// MarshalYAML encodes the grid as an ordered mapping.
func (g ParamGrid) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	for _, axis := range g {
		var val yaml.Node
		if err := val.Encode(axis.Values); err != nil {
			return nil, err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: axis.Name}, &val)
	}
	return node, nil
}

// UnmarshalJSON decodes an object of name -> array, preserving key order.
// Numbers are kept as json.Number so that integers render without a
// fractional part in combo keys.
func (g *ParamGrid) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("param grid must be a JSON object")
	}
	grid := ParamGrid{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := tok.(string)
		var values []any
		if err := dec.Decode(&values); err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
		grid = append(grid, ParamAxis{Name: name, Values: values})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*g = grid
	return nil
}

// MarshalJSON encodes the grid as an ordered JSON object.
func (g ParamGrid) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, axis := range g {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(axis.Name)
		if err != nil {
			return nil, err
		}
		values, err := json.Marshal(axis.Values)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(values)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FormatParamValue renders a grid value for a combo key. Integers print
// without a fraction, integral floats keep a trailing ".0", other floats
// use the shortest round-trip form, booleans print as True/False and a nil
// value prints as None.
func FormatParamValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case string:
		return x
	case bool:
		if x {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return formatFloat(float64(x), 32)
	case float64:
		return formatFloat(x, 64)
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(v)
	}
}

// formatFloat renders f like Python's float repr: shortest round-trip
// digits, positional for decimal exponents in [-4, 16), scientific otherwise.
func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	sci := strconv.FormatFloat(f, 'e', -1, bits)
	exp, err := strconv.Atoi(sci[strings.LastIndexByte(sci, 'e')+1:])
	if err != nil || exp < -4 || exp >= 16 {
		return sci
	}
	s := strconv.FormatFloat(f, 'f', -1, bits)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// SweepResults holds the results of every sweep point keyed by combo key,
// remembering the order in which keys were first produced. A nil
// *SweepResults reads as empty.
type SweepResults struct {
	keys   []string
	runs   map[string]Results
	params map[string]Params
}

// SweepEntry is one sweep point as returned by Entries.
type SweepEntry struct {
	Key     string
	Params  Params
	Results Results
}

func newSweepResults(capacity int) *SweepResults {
	return &SweepResults{
		keys:   make([]string, 0, capacity),
		runs:   make(map[string]Results, capacity),
		params: make(map[string]Params, capacity),
	}
}

// put records a sweep point. A repeated key replaces the stored results but
// keeps its original position.
func (sr *SweepResults) put(key string, params Params, results Results) {
	if _, exists := sr.runs[key]; !exists {
		sr.keys = append(sr.keys, key)
	}
	sr.runs[key] = results
	sr.params[key] = params
}

// Len returns the number of distinct combo keys.
func (sr *SweepResults) Len() int {
	if sr == nil {
		return 0
	}
	return len(sr.keys)
}

// Keys returns combo keys in production order.
func (sr *SweepResults) Keys() []string {
	if sr == nil {
		return []string{}
	}
	out := make([]string, len(sr.keys))
	copy(out, sr.keys)
	return out
}

// Get returns the results of one sweep point.
func (sr *SweepResults) Get(key string) (Results, bool) {
	if sr == nil {
		return nil, false
	}
	r, ok := sr.runs[key]
	return r, ok
}

// Params returns the parameter combination that produced key.
func (sr *SweepResults) Params(key string) (Params, bool) {
	if sr == nil {
		return nil, false
	}
	p, ok := sr.params[key]
	return p, ok
}

// Map returns the combo key -> results mapping.
func (sr *SweepResults) Map() map[string]Results {
	if sr == nil {
		return map[string]Results{}
	}
	out := make(map[string]Results, len(sr.runs))
	for k, v := range sr.runs {
		out[k] = v
	}
	return out
}

// Entries returns every sweep point in production order.
func (sr *SweepResults) Entries() []SweepEntry {
	if sr == nil {
		return []SweepEntry{}
	}
	out := make([]SweepEntry, 0, len(sr.keys))
	for _, k := range sr.keys {
		out = append(out, SweepEntry{Key: k, Params: sr.params[k], Results: sr.runs[k]})
	}
	return out
}

// RunParameterSweep runs the full pipeline once per grid combination. Each
// point gets a brand-new Simulator with this simulator's period and global
// parameters and a fresh business model from factory, so no state crosses
// between points. The receiver's own models and results are untouched.
func (s *Simulator) RunParameterSweep(grid ParamGrid, factory BusinessModelFactory) (*SweepResults, error) {
	combos, err := s.prepareSweep(grid, factory)
	if err != nil {
		return nil, err
	}
	out := newSweepResults(len(combos))
	for _, combo := range combos {
		results, err := s.runCombo(combo, factory)
		if err != nil {
			return nil, err
		}
		out.put(combo.Key(), combo.Params(), results)
	}
	logrus.Debugf("parameter sweep finished: %d combinations", out.Len())
	return out, nil
}

// RunParameterSweepParallel is RunParameterSweep with sweep points spread
// over at most workers goroutines (workers <= 0 means unbounded). Results
// are assembled in the same order as the serial sweep. The factory is
// called concurrently and must be safe for that.
func (s *Simulator) RunParameterSweepParallel(ctx context.Context, grid ParamGrid, factory BusinessModelFactory, workers int) (*SweepResults, error) {
	combos, err := s.prepareSweep(grid, factory)
	if err != nil {
		return nil, err
	}

	perCombo := make([]Results, len(combos))
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, combo := range combos {
		i, combo := i, combo
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results, err := s.runCombo(combo, factory)
			if err != nil {
				return err
			}
			perCombo[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := newSweepResults(len(combos))
	for i, combo := range combos {
		out.put(combo.Key(), combo.Params(), perCombo[i])
	}
	logrus.Debugf("parallel parameter sweep finished: %d combinations", out.Len())
	return out, nil
}

func (s *Simulator) prepareSweep(grid ParamGrid, factory BusinessModelFactory) ([]Combination, error) {
	if s.Period < 0 {
		return nil, configErrorf("simulation_period", "must be non-negative, got %d", s.Period)
	}
	if factory == nil {
		return nil, configErrorf("business_model_factory", "must not be nil")
	}
	if err := grid.Validate(); err != nil {
		return nil, err
	}
	return grid.Combinations(), nil
}

func (s *Simulator) runCombo(combo Combination, factory BusinessModelFactory) (Results, error) {
	key := combo.Key()
	bm, err := factory(combo.Params())
	if err != nil {
		return nil, fmt.Errorf("building business model for %s: %w", key, err)
	}
	if bm == nil {
		return nil, configErrorf("business_model_factory", "returned nil business model for %s", key)
	}

	sub := NewSimulator(s.Period, s.GlobalParams.Clone())
	sub.AddBusinessModel(bm)
	if err := sub.Run(); err != nil {
		return nil, fmt.Errorf("running %s: %w", key, err)
	}
	logrus.Debugf("sweep point %s done", key)
	return sub.CollectResults(), nil
}
