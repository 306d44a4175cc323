package store

import (
	"errors"
	"fmt"
	"testing"
)

func TestSentinelErrorsWrap(t *testing.T) {
	tests := []struct {
		name     string
		sentinel error
	}{
		{"duplicate transaction", ErrDuplicateTransaction},
		{"address not found", ErrAddressNotFound},
		{"no previous chain", ErrNoPreviousChain},
		{"user not found", ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("%w: some context", tt.sentinel)
			if !errors.Is(wrapped, tt.sentinel) {
				t.Errorf("Expected errors.Is to match wrapped %v", tt.sentinel)
			}
		})
	}
}

func TestSentinelErrorsDistinct(t *testing.T) {
	if errors.Is(ErrDuplicateTransaction, ErrAddressNotFound) {
		t.Error("Sentinels must not match each other")
	}
	if errors.Is(ErrNoPreviousChain, ErrUserNotFound) {
		t.Error("Sentinels must not match each other")
	}
}
