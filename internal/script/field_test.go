package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFieldTag(t *testing.T) {
	tests := []struct {
		name string
		text string
		want FieldTag
		ok   bool
	}{
		{"no_nulls", "#NO_NULLS", FieldTag{Kind: TagNoNulls}, true},
		{"unique", "#UNIQUE", FieldTag{Kind: TagUnique}, true},
		{"incremental", "#INCREMENTAL", FieldTag{Kind: TagIncremental}, true},
		{"unique_by", "#UNIQUE_BY(account_id)", FieldTag{Kind: TagUniqueBy, By: "account_id"}, true},
		{"set", "#SET{a,b,c}", FieldTag{Kind: TagSet, Set: []string{"a", "b", "c"}}, true},
		{"not a tag", "just a comment", FieldTag{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseFieldTag(tt.text)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestFieldTagLabel(t *testing.T) {
	assert.Equal(t, "UNIQUE", FieldTag{Kind: TagUnique}.Label())
	assert.Equal(t, "UNIQUE_BY_account_id", FieldTag{Kind: TagUniqueBy, By: "account_id"}.Label())
}

func TestFieldHasTag(t *testing.T) {
	f := Field{Name: "email", Tags: []FieldTag{{Kind: TagNoNulls}, {Kind: TagUnique}}}
	assert.True(t, f.HasTag(TagNoNulls))
	assert.True(t, f.HasTag(TagUnique))
	assert.False(t, f.HasTag(TagIncremental))
}
