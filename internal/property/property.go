// Package property indexes the verifier's property listing
// (--show-properties) by property name.
package property

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"go.uber.org/zap"

	"proofview/internal/adapter"
	"proofview/internal/diag"
	"proofview/internal/location"
)

// Property is one verification condition.
type Property struct {
	Class       string            `json:"class"`
	Description string            `json:"description"`
	Expression  string            `json:"expression"`
	Location    location.Location `json:"location"`
}

// Registry maps property names to their definitions.
type Registry struct {
	props map[string]Property
}

// Empty returns a registry with no properties.
func Empty() *Registry { return &Registry{props: map[string]Property{}} }

// Get looks up a property by name.
func (r *Registry) Get(name string) (Property, bool) {
	p, ok := r.props[name]
	return p, ok
}

// Names returns all property names, sorted.
func (r *Registry) Names() []string { return slices.Sorted(maps.Keys(r.props)) }

func (r *Registry) Len() int { return len(r.props) }

// Read loads a property listing. A missing file yields an empty registry.
func Read(in adapter.Input, c *location.Canonicalizer, log *zap.Logger) (*Registry, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if in.Path == "" {
		log.Info("No property information found")
		return Empty(), nil
	}
	f, err := adapter.Open(in.Path)
	if err != nil {
		if diag.CodeOf(err) == diag.InMissingInput {
			log.Info("No property information found", zap.String("path", in.Path))
			return Empty(), nil
		}
		return nil, err
	}
	defer f.Close()

	var r *Registry
	switch in.Format {
	case adapter.FormatJSON:
		r, err = ParseJSON(f, c)
	case adapter.FormatXML:
		r, err = ParseXML(f, c)
	default:
		err = &diag.Error{Code: diag.InUnknownFormat, Subject: in.Format.String(), Msg: "property data must be xml or json"}
	}
	if err != nil {
		return nil, diag.WithPath(in.Path, err)
	}
	return r, nil
}

type jsonProperty struct {
	Name           string                  `json:"name"`
	Class          string                  `json:"class"`
	Description    string                  `json:"description"`
	Expression     string                  `json:"expression"`
	SourceLocation *adapter.SourceLocation `json:"sourceLocation"`
}

// ParseJSON reads `cbmc --show-properties --json-ui` output.
func ParseJSON(r io.Reader, c *location.Canonicalizer) (*Registry, error) {
	entries, err := adapter.ReadJSON(r)
	if err != nil {
		return nil, err
	}
	var list []jsonProperty
	if _, err := adapter.FindJSON(entries, "properties", &list); err != nil {
		return nil, err
	}
	reg := Empty()
	for _, p := range list {
		reg.props[p.Name] = Property{
			Class:       p.Class,
			Description: p.Description,
			Expression:  p.Expression,
			Location:    p.SourceLocation.Resolve(c),
		}
	}
	return reg, nil
}

// ParseXML reads `cbmc --show-properties --xml-ui` output.
func ParseXML(r io.Reader, c *location.Canonicalizer) (*Registry, error) {
	root, err := adapter.ReadXML(r)
	if err != nil {
		return nil, err
	}
	reg := Empty()
	err = root.Walk("property", func(n *adapter.Node) error {
		name, ok := n.Attr("name")
		if !ok {
			return &diag.Error{Code: diag.InMalformedInput, Msg: "property without a name"}
		}
		class, _ := n.Attr("class")
		reg.props[name] = Property{
			Class:       class,
			Description: n.Text("description"),
			Expression:  n.Text("expression"),
			Location:    n.Child("location").Location(c),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reg, nil
}

type registryJSON struct {
	Properties map[string]Property `json:"properties"`
}

// MarshalJSON writes the viewer-properties.json shape.
func (r *Registry) MarshalJSON() ([]byte, error) {
	return json.Marshal(registryJSON{Properties: r.props})
}

// Load reads a viewer-properties.json dump.
func Load(b []byte) (*Registry, error) {
	var raw registryJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("viewer-properties: %w", err)
	}
	if raw.Properties == nil {
		raw.Properties = map[string]Property{}
	}
	return &Registry{props: raw.Properties}, nil
}
