package dbx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDArray_Scan(t *testing.T) {
	tests := []struct {
		name      string
		src       any
		want      []int64
		wantValid bool
	}{
		{"two ids as string", "{42,7}", []int64{42, 7}, true},
		{"bytes", []byte("{3}"), []int64{3}, true},
		{"present but empty", "{}", []int64{}, true},
		{"null column", nil, []int64{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ids []int64
			a := NewIDArray(&ids)
			require.NoError(t, a.Scan(tt.src))
			assert.Equal(t, tt.want, ids)
			assert.NotNil(t, ids)
			assert.Equal(t, tt.wantValid, a.Valid)
		})
	}
}

func TestIDArray_ScanGarbage(t *testing.T) {
	var ids []int64
	err := NewIDArray(&ids).Scan("{forty-two}")
	assert.Error(t, err)
}
