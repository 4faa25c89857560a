package config

import (
	"fmt"
	"slices"
	"strconv"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
	"gopkg.in/yaml.v3"
)

// listBlocks are block types that always collect into a list, even when they
// appear once.
var listBlocks = map[string]bool{"loop": true}

// decodeHCL maps an HCL document onto the YAML schema: attributes become keys,
// unlabeled blocks become nested mappings, labeled blocks become mappings keyed
// by their labels and repeated blocks become lists. Attribute and block order
// follows the source; keys inside object expressions are sorted.
func decodeHCL(data []byte, filename string, cfg *Config) error {
	file, diags := hclparse.NewParser().ParseHCL(data, filename)
	if diags.HasErrors() {
		return fmt.Errorf("failed to parse HCL: %w", diags)
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return fmt.Errorf("unexpected HCL body %T", file.Body)
	}
	node, err := bodyNode(body)
	if err != nil {
		return err
	}
	return node.Decode(cfg)
}

type member struct {
	pos  int
	key  string
	node *yaml.Node
}

func bodyNode(body *hclsyntax.Body) (*yaml.Node, error) {
	var members []*member
	index := make(map[string]*member)

	for name, attr := range body.Attributes {
		val, diags := attr.Expr.Value(nil)
		if diags.HasErrors() {
			return nil, fmt.Errorf("attribute %s: %w", name, diags)
		}
		n, err := ctyNode(val)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", name, err)
		}
		m := &member{pos: attr.SrcRange.Start.Byte, key: name, node: n}
		members = append(members, m)
		index[name] = m
	}

	for _, b := range body.Blocks {
		child, err := bodyNode(b.Body)
		if err != nil {
			return nil, fmt.Errorf("block %s: %w", b.Type, err)
		}
		m := index[b.Type]
		switch {
		case len(b.Labels) > 0:
			if m == nil {
				m = &member{pos: b.TypeRange.Start.Byte, key: b.Type, node: &yaml.Node{Kind: yaml.MappingNode}}
				members = append(members, m)
				index[b.Type] = m
			}
			if m.node.Kind != yaml.MappingNode {
				return nil, duplicate(b)
			}
			if err := insertLabeled(m.node, b.Labels, child); err != nil {
				return nil, fmt.Errorf("block %s: %w", b.Type, err)
			}
		case listBlocks[b.Type]:
			if m == nil {
				m = &member{pos: b.TypeRange.Start.Byte, key: b.Type, node: &yaml.Node{Kind: yaml.SequenceNode}}
				members = append(members, m)
				index[b.Type] = m
			}
			if m.node.Kind != yaml.SequenceNode {
				return nil, duplicate(b)
			}
			m.node.Content = append(m.node.Content, child)
		default:
			if m != nil {
				return nil, duplicate(b)
			}
			m = &member{pos: b.TypeRange.Start.Byte, key: b.Type, node: child}
			members = append(members, m)
			index[b.Type] = m
		}
	}

	slices.SortFunc(members, func(a, b *member) int { return a.pos - b.pos })
	out := &yaml.Node{Kind: yaml.MappingNode}
	for _, m := range members {
		out.Content = append(out.Content, strNode(m.key), m.node)
	}
	return out, nil
}

func duplicate(b *hclsyntax.Block) error {
	r := b.DefRange()
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  fmt.Sprintf("Duplicate %q block", b.Type),
		Detail:   fmt.Sprintf("Only one %q block or attribute is allowed.", b.Type),
		Subject:  &r,
	}
}

func insertLabeled(parent *yaml.Node, labels []string, child *yaml.Node) error {
	for i, label := range labels {
		var next *yaml.Node
		for j := 0; j+1 < len(parent.Content); j += 2 {
			if parent.Content[j].Value == label {
				next = parent.Content[j+1]
			}
		}
		last := i == len(labels)-1
		switch {
		case last && next != nil:
			return fmt.Errorf("duplicate label %q", label)
		case last:
			parent.Content = append(parent.Content, strNode(label), child)
		case next == nil:
			next = &yaml.Node{Kind: yaml.MappingNode}
			parent.Content = append(parent.Content, strNode(label), next)
		}
		parent = next
	}
	return nil
}

// ctyNode converts a cty value into a YAML node.
func ctyNode(v cty.Value) (*yaml.Node, error) {
	if v.IsNull() || !v.IsKnown() {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}, nil
	}
	ty := v.Type()
	switch {
	case ty == cty.String:
		return strNode(v.AsString()), nil

	case ty == cty.Number:
		if v.AsBigFloat().IsInt() {
			var i int64
			if err := gocty.FromCtyValue(v, &i); err != nil {
				return nil, fmt.Errorf("could not convert cty.Number to int64: %w", err)
			}
			return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(i, 10)}, nil
		}
		var f float64
		if err := gocty.FromCtyValue(v, &f); err != nil {
			return nil, fmt.Errorf("could not convert cty.Number to float64: %w", err)
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!float", Value: strconv.FormatFloat(f, 'g', -1, 64)}, nil

	case ty == cty.Bool:
		var b bool
		if err := gocty.FromCtyValue(v, &b); err != nil {
			return nil, fmt.Errorf("could not convert cty.Bool to bool: %w", err)
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: strconv.FormatBool(b)}, nil

	case ty.IsListType() || ty.IsTupleType() || ty.IsSetType():
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		it := v.ElementIterator()
		for it.Next() {
			_, el := it.Element()
			n, err := ctyNode(el)
			if err != nil {
				return nil, err
			}
			seq.Content = append(seq.Content, n)
		}
		return seq, nil

	case ty.IsObjectType() || ty.IsMapType():
		m := &yaml.Node{Kind: yaml.MappingNode}
		it := v.ElementIterator()
		for it.Next() {
			k, el := it.Element()
			n, err := ctyNode(el)
			if err != nil {
				return nil, fmt.Errorf("in attribute '%s': %w", k.AsString(), err)
			}
			m.Content = append(m.Content, strNode(k.AsString()), n)
		}
		return m, nil
	}
	return nil, fmt.Errorf("unsupported cty type %s", ty.FriendlyName())
}

func strNode(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}
