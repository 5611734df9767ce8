package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tickloom/swmread/internal/reader"
)

// TestParseIterations_Table tests parsing of the iteration budget flag.
func TestParseIterations_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		value   string
		want    int
		wantErr bool
	}{
		{name: "Empty_Default", value: "", want: reader.DefaultIterations},
		{name: "Zero", value: "0", want: 0},
		{name: "Positive", value: "42", want: 42},
		{name: "Negative", value: "-5", wantErr: true},
		{name: "NonNumeric", value: "abc", wantErr: true},
		{name: "Overflow", value: "18446744073709551615", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := parseIterations(tt.value)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidFlag)

				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
