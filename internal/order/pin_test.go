package order

import (
	"errors"
	"testing"
)

func TestVerifyPIN(t *testing.T) {
	pin := "123456"

	tests := []struct {
		name    string
		order   Order
		code    string
		wantErr error
	}{
		{"correct PIN", Order{PIN: &pin}, "123456", nil},
		{"too short", Order{PIN: &pin}, "12345", ErrPINLength},
		{"too long", Order{PIN: &pin}, "1234567", ErrPINLength},
		{"non digits", Order{PIN: &pin}, "12345a", ErrPINLength},
		{"empty", Order{PIN: &pin}, "", ErrPINLength},
		{"wrong six digits", Order{PIN: &pin}, "654321", ErrPINMismatch},
		{"order without PIN", Order{PIN: nil}, "123456", ErrPINMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := VerifyPIN(tt.order, tt.code); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}
