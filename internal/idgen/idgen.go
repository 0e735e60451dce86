// Package idgen produces the human-facing identifiers of bookings and
// payments. Uniqueness is enforced by the store; callers regenerate on
// collision.
package idgen

import "math/rand/v2"

const (
	BookingPrefix     = "BK"
	TransactionPrefix = "TRX"
)

// Generator returns a fresh identifier on every call.
type Generator func() string

// BookingNumber returns "BK" followed by 8 random digits.
func BookingNumber() string {
	return Numeric(BookingPrefix, 8)
}

// TransactionID returns "TRX" followed by 10 random digits.
func TransactionID() string {
	return Numeric(TransactionPrefix, 10)
}

func Numeric(prefix string, digits int) string {
	b := make([]byte, len(prefix), len(prefix)+digits)
	copy(b, prefix)
	for range digits {
		b = append(b, byte('0'+rand.IntN(10)))
	}
	return string(b)
}
