package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractList(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{
			name: "clean array",
			text: `[{"id": "a"}, {"id": "b"}]`,
			want: 2,
		},
		{
			name: "fenced array",
			text: "```json\n[{\"id\": \"a\"}]\n```",
			want: 1,
		},
		{
			name: "array embedded in prose",
			text: `Here are the results: [{"id": "a"}] Hope that helps!`,
			want: 1,
		},
		{
			name: "garbage falls back to default",
			text: "I could not process the emails.",
			want: 0,
		},
		{
			name: "truncated json falls back",
			text: `[{"id": "a"}, {"id":`,
			want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractList(tt.text, []map[string]any{})
			assert.Len(t, got, tt.want)
		})
	}
}

func TestExtractObject(t *testing.T) {
	obj := ExtractObject("```\n{\"approve\": true}\n```", nil)
	assert.Equal(t, true, obj["approve"])

	def := map[string]any{"approve": false}
	obj = ExtractObject("no json here", def)
	assert.Equal(t, def, obj)

	// An object inside prose, with a stray bracket before it.
	obj = ExtractObject(`Sure! {"summary": "quiet week"} is my take.`, nil)
	assert.Equal(t, "quiet week", obj["summary"])
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`{"a":1}`))
	assert.Equal(t, `plain`, stripFences("```\nplain\n```"))
}
