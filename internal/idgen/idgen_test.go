package idgen

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBookingNumber(t *testing.T) {
	re := regexp.MustCompile(`^BK[0-9]{8}$`)
	for range 100 {
		assert.Regexp(t, re, BookingNumber())
	}
}

func TestTransactionID(t *testing.T) {
	assert.Regexp(t, `^TRX[0-9]{10}$`, TransactionID())
}

func TestNumeric(t *testing.T) {
	assert.Equal(t, "X", Numeric("X", 0))
	assert.Len(t, Numeric("", 12), 12)
}
