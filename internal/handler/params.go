package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-ledger/internal/middleware"
	"github.com/iliyamo/ticket-ledger/internal/model"
	"github.com/iliyamo/ticket-ledger/internal/wallet"
)

func idParam(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

func walletParam(c echo.Context, name string) (model.Identity, bool) {
	id, err := wallet.Parse(c.Param(name))
	return id, err == nil
}

// caller is the authenticated wallet. Routes behind JWTAuth always have one.
func caller(c echo.Context) model.Identity {
	id, _ := middleware.CurrentWallet(c)
	return id
}
