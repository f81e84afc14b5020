package decode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPayloads(t *testing.T) {
	tests := []struct {
		name string
		out  []byte
		want [][]byte
	}{
		{name: "empty output", out: nil, want: nil},
		{name: "single code", out: []byte("010461234567890121ABC123\n"), want: [][]byte{[]byte("010461234567890121ABC123")}},
		{
			name: "two codes separated by form feed",
			out:  []byte("first\n\x0csecond\n"),
			want: [][]byte{[]byte("first"), []byte("second")},
		},
		{name: "trailing form feed with no content", out: []byte("only\n\x0c"), want: [][]byte{[]byte("only")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitPayloads(tt.out)
			assert.Equal(t, tt.want, got)
		})
	}
}
