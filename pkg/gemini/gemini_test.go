package gemini

import (
	"testing"

	"SigSecure/internal/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEntities(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  []entity.EntitySpan
	}{
		{
			name:  "plain array",
			reply: `[{"text":"John Doe","label":"PERSON"},{"text":"Boston","label":"LOCATION"}]`,
			want:  []entity.EntitySpan{{Text: "John Doe", Label: "PERSON"}, {Text: "Boston", Label: "LOCATION"}},
		},
		{
			name:  "fenced",
			reply: "```json\n[{\"text\":\"May 1, 2020\",\"label\":\"DATE\"}]\n```",
			want:  []entity.EntitySpan{{Text: "May 1, 2020", Label: "DATE"}},
		},
		{
			name:  "blank spans dropped",
			reply: `[{"text":" ","label":"PERSON"}]`,
			want:  []entity.EntitySpan{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEntities(tt.reply)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseEntities("I found John Doe")
	assert.Error(t, err)
}
