package orders

import (
	"crypto/rand"
	"math/big"
	"time"
)

const numberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewOrderNumber returns MKS-YYYYMMDD-XXXX for the UTC date of now. The
// suffix is random, so two orders on one day can collide.
func NewOrderNumber(now time.Time) string {
	suffix := make([]byte, 4)
	limit := big.NewInt(int64(len(numberAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			n = big.NewInt(now.UnixNano() % int64(len(numberAlphabet)))
		}
		suffix[i] = numberAlphabet[n.Int64()]
	}
	return "MKS-" + now.UTC().Format("20060102") + "-" + string(suffix)
}
