package config

import (
	"fmt"

	"github.com/wolfeidau/dynentry/internal/entry"
	"gopkg.in/yaml.v3"
)

// Entry decodes an entry description from YAML, keeping mapping keys in
// document order.
type Entry struct {
	entry.Entry
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	decoded, err := decodeNode(node, false)
	if err != nil {
		return err
	}
	e.Entry = decoded
	return nil
}

func decodeNode(node *yaml.Node, nested bool) (entry.Entry, error) {
	switch node.Kind {
	case yaml.AliasNode:
		return decodeNode(node.Alias, nested)
	case yaml.ScalarNode:
		path, err := scalarPath(node)
		if err != nil {
			return nil, err
		}
		return entry.Single{Path: path}, nil
	case yaml.SequenceNode:
		paths, err := sequencePaths(node)
		if err != nil {
			return nil, err
		}
		return entry.Sequence{Paths: paths}, nil
	case yaml.MappingNode:
		if nested && hasKey(node, "import") {
			return decodeDescriptor(node)
		}
		return decodeMapping(node)
	default:
		return nil, fmt.Errorf("line %d: %w", node.Line, entry.ErrUnrecognizedShape)
	}
}

func scalarPath(node *yaml.Node) (string, error) {
	if node.Kind == yaml.AliasNode {
		return scalarPath(node.Alias)
	}
	if node.Kind != yaml.ScalarNode || node.ShortTag() != "!!str" {
		return "", fmt.Errorf("line %d: %w: expected a path, got %s", node.Line, entry.ErrUnrecognizedShape, node.ShortTag())
	}
	return node.Value, nil
}

func sequencePaths(node *yaml.Node) ([]string, error) {
	if len(node.Content) == 0 {
		return nil, fmt.Errorf("line %d: %w", node.Line, entry.ErrEmptySequence)
	}
	paths := make([]string, 0, len(node.Content))
	for _, item := range node.Content {
		path, err := scalarPath(item)
		if err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func hasKey(node *yaml.Node, key string) bool {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return true
		}
	}
	return false
}

func decodeMapping(node *yaml.Node) (entry.Entry, error) {
	out := entry.Mapping{Entries: make([]entry.Pair, 0, len(node.Content)/2)}
	seen := make(map[string]bool, len(node.Content)/2)

	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if seen[key.Value] {
			return nil, fmt.Errorf("line %d: entry %q defined twice", key.Line, key.Value)
		}
		seen[key.Value] = true

		decoded, err := decodeNode(value, true)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", key.Value, err)
		}
		out.Entries = append(out.Entries, entry.Pair{Name: key.Value, Value: decoded})
	}
	return out, nil
}

func decodeDescriptor(node *yaml.Node) (entry.Entry, error) {
	var desc struct {
		Import    yaml.Node `yaml:"import"`
		ChunkName string    `yaml:"chunkName"`
	}
	if err := node.Decode(&desc); err != nil {
		return nil, fmt.Errorf("line %d: %w", node.Line, err)
	}

	imp := &desc.Import
	if imp.Kind == yaml.AliasNode {
		imp = imp.Alias
	}

	switch imp.Kind {
	case yaml.ScalarNode:
		path, err := scalarPath(imp)
		if err != nil {
			return nil, err
		}
		return entry.Single{Path: path, ChunkName: desc.ChunkName}, nil
	case yaml.SequenceNode:
		paths, err := sequencePaths(imp)
		if err != nil {
			return nil, err
		}
		return entry.Sequence{Paths: paths, ChunkName: desc.ChunkName}, nil
	default:
		return nil, fmt.Errorf("line %d: %w: descriptor import must be a path or a list of paths", node.Line, entry.ErrUnrecognizedShape)
	}
}
