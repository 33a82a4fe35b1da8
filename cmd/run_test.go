package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmRun(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		yes     bool
		json    bool
		want    bool
		wantErr error
	}{
		{name: "yes flag", yes: true, want: true},
		{name: "yes flag with json", yes: true, json: true, want: true},
		{name: "json without yes", json: true, input: "y\n", wantErr: errConfirmationRequired},
		{name: "answer y", input: "y\n", want: true},
		{name: "answer YES", input: " YES \n", want: true},
		{name: "answer n", input: "n\n"},
		{name: "empty answer", input: "\n"},
		{name: "closed stdin", input: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := confirmRun(strings.NewReader(tt.input), tt.yes, tt.json, 2)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.False(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
