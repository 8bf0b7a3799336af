package market

import (
	"math/bits"

	"github.com/iliyamo/ticket-ledger/internal/model"
)

// ResaleCap returns floor(basePrice * factor / 100). A product that does
// not fit in 64 bits is rejected instead of wrapping.
func ResaleCap(basePrice, factor uint64) (uint64, error) {
	hi, lo := bits.Mul64(basePrice, factor)
	if hi != 0 {
		return 0, model.ErrPriceOverflow
	}
	return lo / 100, nil
}
