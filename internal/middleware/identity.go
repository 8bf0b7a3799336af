package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-ledger/internal/model"
)

// CurrentWallet returns the identity JWTAuth stored, or false on
// unauthenticated requests.
func CurrentWallet(c echo.Context) (model.Identity, bool) {
	id, ok := c.Get(WalletKey).(model.Identity)
	return id, ok && !id.IsZero()
}

func walletOrAnon(c echo.Context) string {
	if id, ok := CurrentWallet(c); ok {
		return id.String()
	}
	return "anon"
}
