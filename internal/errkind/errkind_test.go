package errkind

import (
	"errors"
	"fmt"
	"testing"
)

func TestOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"nil", nil, nil},
		{"plain", errors.New("boom"), nil},
		{"invalid argument", fmt.Errorf("width -1: %w", InvalidArgument), InvalidArgument},
		{"out of range", fmt.Errorf("x=9: %w", OutOfRange), OutOfRange},
		{"runtime", fmt.Errorf("bad token: %w", Runtime), Runtime},
		{"double wrapped", fmt.Errorf("reading: %w", fmt.Errorf("line 3: %w", Runtime)), Runtime},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Of(tt.err); got != tt.want {
				t.Errorf("Of(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
