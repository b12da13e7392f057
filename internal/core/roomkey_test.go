package core_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirerelay/internal/core"
)

func TestCanonicalKey(t *testing.T) {
	tests := []struct {
		name    string
		in      any
		want    core.RoomKey
		wantErr bool
	}{
		{name: "string", in: "42", want: "42"},
		{name: "int", in: 42, want: "42"},
		{name: "int64", in: int64(42), want: "42"},
		{name: "float integral", in: 42.0, want: "42"},
		{name: "float fraction", in: 4.5, want: "4.5"},
		{name: "json number", in: json.Number("42"), want: "42"},
		{name: "json number float", in: json.Number("42.0"), want: "42"},
		{name: "identity", in: "user-abc", want: "user-abc"},
		{name: "string keeps leading zero", in: "042", want: "042"},
		{name: "empty", in: "", wantErr: true},
		{name: "nil", in: nil, wantErr: true},
		{name: "unsupported", in: []int{1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := core.CanonicalKey(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
