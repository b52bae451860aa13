package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnionName(t *testing.T) {
	tests := []struct {
		name        string
		names       []string
		add         string
		want        []string
		wantChanged bool
	}{
		{
			name:        "new alias appended",
			names:       []string{"alice"},
			add:         "al1ce",
			want:        []string{"alice", "al1ce"},
			wantChanged: true,
		},
		{
			name:  "exact duplicate ignored",
			names: []string{"alice", "al1ce"},
			add:   "alice",
			want:  []string{"alice", "al1ce"},
		},
		{
			name:  "case-insensitive duplicate keeps stored casing",
			names: []string{"Alice"},
			add:   "ALICE",
			want:  []string{"Alice"},
		},
		{
			name:        "empty set",
			names:       nil,
			add:         "bob",
			want:        []string{"bob"},
			wantChanged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := UnionName(tt.names, tt.add)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantChanged, changed)
		})
	}
}
