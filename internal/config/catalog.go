package config

import (
	"fmt"
	"os"

	"github.com/meikuraledutech/nodegraph"
	"gopkg.in/yaml.v3"
)

// Catalog is the YAML form of a set of node types.
//
//	types:
//	  - name: add
//	    caption: Add
//	    in:
//	      - data_type: {id: number, name: Number}
//	      - data_type: {id: number, name: Number}
//	    out:
//	      - data_type: {id: number, name: Number}
//	        policy: many
type Catalog struct {
	Types []NodeType `yaml:"types"`
}

// NodeType describes one registered node type.
type NodeType struct {
	Name           string `yaml:"name"`
	Caption        string `yaml:"caption"`
	CaptionVisible *bool  `yaml:"caption_visible,omitempty"`
	Resizable      bool   `yaml:"resizable,omitempty"`
	In             []Port `yaml:"in,omitempty"`
	Out            []Port `yaml:"out,omitempty"`
}

// Port describes one port of a node type. An empty policy means "one" for
// inputs and "many" for outputs.
type Port struct {
	DataType       nodegraph.DataType `yaml:"data_type"`
	Policy         string             `yaml:"policy,omitempty"`
	Caption        string             `yaml:"caption,omitempty"`
	CaptionVisible bool               `yaml:"caption_visible,omitempty"`
}

// LoadCatalog reads a catalog file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading node types: %w", err)
	}
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing node types: %w", err)
	}
	return &c, nil
}

// Registry registers every catalog entry in a new registry.
func (c *Catalog) Registry() (*nodegraph.Registry, error) {
	r := nodegraph.NewRegistry()
	for i, t := range c.Types {
		if t.Name == "" {
			return nil, fmt.Errorf("node type %d: name is required", i)
		}
		if err := r.Register(t.Name, t.spec()); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (t NodeType) spec() nodegraph.NodeSpec {
	spec := nodegraph.NodeSpec{
		Caption:        t.Caption,
		CaptionVisible: t.CaptionVisible == nil || *t.CaptionVisible,
		In:             ports(t.In, nodegraph.PolicyOne),
		Out:            ports(t.Out, nodegraph.PolicyMany),
	}
	if t.Resizable {
		spec.Flags |= nodegraph.FlagResizable
	}
	return spec
}

func ports(in []Port, fallback nodegraph.ConnectionPolicy) []nodegraph.PortSpec {
	out := make([]nodegraph.PortSpec, len(in))
	for i, p := range in {
		policy := fallback
		if p.Policy != "" {
			policy = nodegraph.ParseConnectionPolicy(p.Policy)
		}
		out[i] = nodegraph.PortSpec{
			DataType:       p.DataType,
			Policy:         policy,
			Caption:        p.Caption,
			CaptionVisible: p.CaptionVisible,
		}
	}
	return out
}
