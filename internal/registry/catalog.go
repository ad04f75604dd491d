package registry

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vexlang/vex/internal/types"
)

// The builtin descriptor tables are configuration data, not code. They live
// in an embedded YAML catalog and are joined with the evaluator's operation
// table through the descriptor's op key.

//go:embed catalog.yaml
var builtinCatalog []byte

type catalogEntry struct {
	Name   string   `yaml:"name"`
	Op     string   `yaml:"op"`
	Params []string `yaml:"params"`
	Result string   `yaml:"result"`
}

type catalogFile struct {
	Globals    []catalogEntry            `yaml:"globals"`
	Classes    map[string][]catalogEntry `yaml:"classes"`
	Instance   map[string][]catalogEntry `yaml:"instance"`
	Properties map[string][]catalogEntry `yaml:"properties"`
}

var kindByName = map[string]types.Kind{
	"integer":   types.Integer,
	"real":      types.Real,
	"complex":   types.Complex,
	"boolean":   types.Boolean,
	"string":    types.String,
	"date":      types.Date,
	"intvector": types.IntegerVector,
	"vector":    types.RealVector,
	"cvector":   types.ComplexVector,
	"matrix":    types.Matrix,
	"lower":     types.LowerMatrix,
	"upper":     types.UpperMatrix,
	"series":    types.TimeSeries,
	"intseq":    types.IntegerSequence,
	"seq":       types.RealSequence,
	"record":    types.Record,
	"void":      types.Void,
	"any":       types.Any,
}

func parseKind(s string) (types.Kind, error) {
	k, ok := kindByName[s]
	if !ok {
		return types.Invalid, fmt.Errorf("registry catalog: unknown kind %q", s)
	}
	return k, nil
}

// parseParam interprets one catalog parameter string. Recognized shapes:
// a plain kind name, "kind..." (trailing variadic), "lambda(k)" and
// "lambda(k1,k2)" (lambda slots), and the defaultable trailing sentinels
// "seed?", "zero?", "one?".
func (d *Descriptor) parseParam(i int, s string) error {
	switch s {
	case "seed?":
		d.Params = append(d.Params, types.Integer)
		d.Default = DefaultSeed
		return nil
	case "zero?":
		d.Params = append(d.Params, types.Real)
		d.Default = DefaultZero
		return nil
	case "one?":
		d.Params = append(d.Params, types.Real)
		d.Default = DefaultOne
		return nil
	}
	if rest, ok := strings.CutPrefix(s, "lambda("); ok {
		body, ok := strings.CutSuffix(rest, ")")
		if !ok {
			return fmt.Errorf("registry catalog: malformed lambda param %q", s)
		}
		parts := strings.Split(body, ",")
		sig := make([]types.Kind, 0, len(parts))
		for _, p := range parts {
			k, err := parseKind(strings.TrimSpace(p))
			if err != nil {
				return err
			}
			sig = append(sig, k)
		}
		switch len(sig) {
		case 1:
			d.Lambda1 |= 1 << uint(i)
		case 2:
			d.Lambda2 |= 1 << uint(i)
		default:
			return fmt.Errorf("registry catalog: lambda arity %d not supported in %q", len(sig), s)
		}
		if d.LambdaSig == nil {
			d.LambdaSig = make(map[int][]types.Kind)
		}
		d.LambdaSig[i] = sig
		d.Params = append(d.Params, types.Function)
		return nil
	}
	if base, ok := strings.CutSuffix(s, "..."); ok {
		k, err := parseKind(base)
		if err != nil {
			return err
		}
		d.Params = append(d.Params, k)
		d.Variadic = true
		return nil
	}
	k, err := parseKind(s)
	if err != nil {
		return err
	}
	d.Params = append(d.Params, k)
	return nil
}

func (e catalogEntry) descriptor() (*Descriptor, error) {
	d := &Descriptor{Name: e.Name, Op: e.Op}
	res, err := parseKind(e.Result)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Name, err)
	}
	d.Result = res
	for i, p := range e.Params {
		if err := d.parseParam(i, p); err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name, err)
		}
	}
	return d, nil
}

// LoadCatalog populates a registry from YAML catalog data.
func LoadCatalog(data []byte) (*Registry, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("registry catalog: %w", err)
	}

	r := New()
	for _, e := range file.Globals {
		d, err := e.descriptor()
		if err != nil {
			return nil, err
		}
		r.AddGlobal(d)
	}
	for class, entries := range file.Classes {
		for _, e := range entries {
			d, err := e.descriptor()
			if err != nil {
				return nil, err
			}
			r.AddClass(class, d)
		}
	}
	for recv, entries := range file.Instance {
		k, err := parseKind(recv)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			d, err := e.descriptor()
			if err != nil {
				return nil, err
			}
			r.AddInstance(k, d)
		}
	}
	for recv, entries := range file.Properties {
		k, err := parseKind(recv)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			d, err := e.descriptor()
			if err != nil {
				return nil, err
			}
			r.AddProperty(k, d)
		}
	}
	return r, nil
}

// Builtin returns the registry built from the embedded catalog. The catalog
// is trusted configuration; a malformed entry is a programming error.
func Builtin() *Registry {
	r, err := LoadCatalog(builtinCatalog)
	if err != nil {
		panic(err)
	}
	return r
}
