package order

import "errors"

// PIN verification failures. Length and value mismatches are reported
// separately; both are retryable with no attempt limit.
var (
	ErrPINLength   = errors.New("PIN must be 6 digits")
	ErrPINMismatch = errors.New("incorrect PIN")
)

// VerifyPIN gates completion of card orders: the candidate code must be
// exactly six decimal digits and equal to the order's stored PIN. Nothing
// is mutated on failure.
func VerifyPIN(o Order, code string) error {
	if len(code) != 6 {
		return ErrPINLength
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return ErrPINLength
		}
	}
	if o.PIN == nil || *o.PIN != code {
		return ErrPINMismatch
	}
	return nil
}
