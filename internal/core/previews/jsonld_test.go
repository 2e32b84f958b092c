package previews

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseJSONLD(t *testing.T) {
	tests := []struct {
		name      string
		data      string
		wantTypes [][]string
		wantErr   bool
	}{
		{
			name:      "single object",
			data:      `{"@type":"SoftwareApplication","name":"A"}`,
			wantTypes: [][]string{{"SoftwareApplication"}},
		},
		{
			name:      "top-level array",
			data:      `[{"@type":"A"},{"@type":"B"}]`,
			wantTypes: [][]string{{"A"}, {"B"}},
		},
		{
			name:      "graph container",
			data:      `{"@context":"https://schema.org","@graph":[{"@type":"WebPage"},{"@type":["VideoObject","CreativeWork"]}]}`,
			wantTypes: [][]string{nil, {"WebPage"}, {"VideoObject", "CreativeWork"}},
		},
		{
			name:      "graph object",
			data:      `{"@graph":{"@type":"Product"}}`,
			wantTypes: [][]string{nil, {"Product"}},
		},
		{
			name:      "nested graph",
			data:      `[{"@graph":[{"@graph":[{"@type":"Deep"}]}]}]`,
			wantTypes: [][]string{nil, nil, {"Deep"}},
		},
		{
			name:      "html comment wrapper",
			data:      "<!--\n{\"@type\":\"A\"}\n-->",
			wantTypes: [][]string{{"A"}},
		},
		{
			name:      "scalars ignored",
			data:      `[1,"x",{"@type":"A"}]`,
			wantTypes: [][]string{{"A"}},
		},
		{
			name: "empty block",
			data: "   ",
		},
		{
			name:    "malformed",
			data:    `{"@type":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nodes, err := parseJSONLD(tt.data)
			if tt.wantErr {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			require.Len(t, nodes, len(tt.wantTypes))

			for i, want := range tt.wantTypes {
				require.Equal(t, want, nodes[i].Types())
			}
		})
	}
}

func TestNodeHasType(t *testing.T) {
	node := Node{"@type": []any{"CreativeWork", "videoobject"}}

	require.True(t, node.HasType("VideoObject"))
	require.True(t, node.HasType("creativework"))
	require.False(t, node.HasType("ImageObject"))
	require.False(t, Node{}.HasType("VideoObject"))
}

func TestURLCandidates(t *testing.T) {
	tests := []struct {
		name string
		v    any
		keys []string
		want []string
	}{
		{name: "string", v: "https://a/1.jpg", want: []string{"https://a/1.jpg"}},
		{name: "list", v: []any{"a", 1, "b"}, want: []string{"a", "b"}},
		{name: "object", v: map[string]any{"url": "u", "contentUrl": "c"}, keys: []string{"url", "contentUrl"}, want: []string{"u", "c"}},
		{name: "list of objects", v: []any{map[string]any{"contentUrl": "c1"}, "s"}, keys: []string{"contentUrl"}, want: []string{"c1", "s"}},
		{name: "object without keys", v: map[string]any{"url": "u"}},
		{name: "number", v: 3.0},
		{name: "nil", v: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, urlCandidates(tt.v, tt.keys...))
		})
	}
}
