package previews

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	ldKeyType  = "@type"
	ldKeyGraph = "@graph"
)

// Node is one structured-data object from a JSON-LD block.
type Node map[string]any

// Types returns the node's @type values.
func (n Node) Types() []string {
	switch t := n[ldKeyType].(type) {
	case string:
		return []string{t}
	case []any:
		types := make([]string, 0, len(t))

		for _, v := range t {
			if s, ok := v.(string); ok {
				types = append(types, s)
			}
		}

		return types
	default:
		return nil
	}
}

// HasType reports whether the node declares the given @type, ignoring case.
func (n Node) HasType(want string) bool {
	for _, t := range n.Types() {
		if strings.EqualFold(t, want) {
			return true
		}
	}

	return false
}

// parseJSONLD decodes one script block and flattens @graph containers and
// top-level arrays into a single node list.
func parseJSONLD(data string) ([]Node, error) {
	data = strings.TrimSpace(data)
	data = strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(data, "<!--"), "-->"))

	if data == "" {
		return nil, nil
	}

	var v any
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil, fmt.Errorf("decode json-ld: %w", err)
	}

	return flattenJSONLD(v, nil), nil
}

func flattenJSONLD(v any, nodes []Node) []Node {
	switch t := v.(type) {
	case map[string]any:
		nodes = append(nodes, Node(t))

		if graph, ok := t[ldKeyGraph]; ok {
			nodes = flattenJSONLD(graph, nodes)
		}
	case []any:
		for _, item := range t {
			nodes = flattenJSONLD(item, nodes)
		}
	}

	return nodes
}

// urlCandidates collects string URLs from a JSON-LD value in document order.
// Objects contribute the values under objectKeys; lists contribute every element.
func urlCandidates(v any, objectKeys ...string) []string {
	switch t := v.(type) {
	case string:
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, urlCandidates(item, objectKeys...)...)
		}

		return out
	case map[string]any:
		var out []string
		for _, key := range objectKeys {
			if nested, ok := t[key]; ok {
				out = append(out, urlCandidates(nested, objectKeys...)...)
			}
		}

		return out
	default:
		return nil
	}
}
