package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/ticket-ledger/internal/model"
)

const (
	defaultRecordPage = 100
	maxRecordPage     = 1000
)

// ListRecords pages through the journal: ?after=<seq>&limit=<n>.
func (h *LedgerHandler) ListRecords(c echo.Context) error {
	var after uint64
	if s := c.QueryParam("after"); s != "" {
		n, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return badRequest(c, "invalid after")
		}
		after = n
	}
	limit := defaultRecordPage
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return badRequest(c, "invalid limit")
		}
		limit = min(n, maxRecordPage)
	}
	recs := h.Market.Records(after, limit)
	if recs == nil {
		recs = []model.Record{}
	}
	next := after
	if len(recs) > 0 {
		next = recs[len(recs)-1].Seq
	}
	return c.JSON(http.StatusOK, echo.Map{"items": recs, "next": next, "head": h.Market.Head()})
}
