package bridge

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Neumenon/bencode/bencode"
)

// ToYAML converts a Value to a YAML document. Binary strings become
// !!binary scalars, so the conversion is lossless.
func ToYAML(v *bencode.Value) ([]byte, error) {
	node, err := ToYAMLNode(v)
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(node)
}

// ToYAMLNode converts a Value to a yaml.Node tree.
func ToYAMLNode(v *bencode.Value) (*yaml.Node, error) {
	switch v.Type() {
	case bencode.TypeInt:
		n, _ := v.AsInt()
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.FormatInt(n, 10)}, nil

	case bencode.TypeString:
		b, _ := v.AsBytes()
		return stringNode(b), nil

	case bencode.TypeList:
		seq := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for i, elem := range v.List() {
			item, err := ToYAMLNode(elem)
			if err != nil {
				return nil, fmt.Errorf("sequence[%d]: %w", i, err)
			}
			seq.Content = append(seq.Content, item)
		}
		return seq, nil

	case bencode.TypeDict:
		m := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, entry := range v.Entries() {
			val, err := ToYAMLNode(entry.Value)
			if err != nil {
				return nil, fmt.Errorf("mapping[%q]: %w", entry.Key, err)
			}
			m.Content = append(m.Content, stringNode([]byte(entry.Key)), val)
		}
		return m, nil

	default:
		return nil, fmt.Errorf("unsupported value type: %s", v.Type())
	}
}

func stringNode(b []byte) *yaml.Node {
	if isText(b) {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: string(b)}
	}
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!binary", Value: base64.StdEncoding.EncodeToString(b)}
}

// FromYAML converts a YAML document to a Value. Mapping order is kept.
func FromYAML(data []byte) (*bencode.Value, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("YAML parse error: %w", err)
	}
	if doc.Kind == 0 {
		return nil, fmt.Errorf("empty YAML document")
	}
	return FromYAMLNode(&doc)
}

// FromYAMLNode converts a yaml.Node tree to a Value.
func FromYAMLNode(n *yaml.Node) (*bencode.Value, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) != 1 {
			return nil, fmt.Errorf("YAML document holds %d values", len(n.Content))
		}
		return FromYAMLNode(n.Content[0])

	case yaml.AliasNode:
		return FromYAMLNode(n.Alias)

	case yaml.ScalarNode:
		return fromYAMLScalar(n)

	case yaml.SequenceNode:
		list := bencode.NewList()
		for i, item := range n.Content {
			v, err := FromYAMLNode(item)
			if err != nil {
				return nil, fmt.Errorf("sequence[%d]: %w", i, err)
			}
			list.Append(v)
		}
		return list, nil

	case yaml.MappingNode:
		dict := bencode.NewDict()
		for i := 0; i+1 < len(n.Content); i += 2 {
			keyNode, valNode := n.Content[i], n.Content[i+1]
			if keyNode.ShortTag() == "!!merge" {
				return nil, fmt.Errorf("line %d: merge keys are not supported", keyNode.Line)
			}
			key, err := fromYAMLScalar(keyNode)
			if err != nil {
				return nil, fmt.Errorf("line %d: mapping key: %w", keyNode.Line, err)
			}
			keyBytes, err := key.AsBytes()
			if err != nil {
				return nil, fmt.Errorf("line %d: mapping key must be a string", keyNode.Line)
			}
			v, err := FromYAMLNode(valNode)
			if err != nil {
				return nil, fmt.Errorf("mapping[%q]: %w", keyNode.Value, err)
			}
			dict.Set(string(keyBytes), v)
		}
		return dict, nil

	default:
		return nil, fmt.Errorf("line %d: unsupported YAML node kind %d", n.Line, n.Kind)
	}
}

func fromYAMLScalar(n *yaml.Node) (*bencode.Value, error) {
	if n.Kind != yaml.ScalarNode {
		return nil, fmt.Errorf("line %d: expected a scalar", n.Line)
	}

	switch tag := n.ShortTag(); tag {
	case "!!str":
		return bencode.NewString(n.Value), nil

	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return bencode.NewInt(i), nil

	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return nil, fmt.Errorf("line %d: %w", n.Line, err)
		}
		return fromFloat(f)

	case "!!binary":
		data, err := base64.StdEncoding.DecodeString(strings.Join(strings.Fields(n.Value), ""))
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid base64: %w", n.Line, err)
		}
		return bencode.NewBytes(data), nil

	case "!!bool", "!!null":
		return nil, fmt.Errorf("line %d: %s has no bencode form", n.Line, tag)

	default:
		return nil, fmt.Errorf("line %d: unsupported tag %s", n.Line, tag)
	}
}
