package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appledger "github.com/retailops/ledger/internal/application/ledger"
	"github.com/retailops/ledger/internal/interfaces/http/dto"
)

// BalanceHandler serves historical stock balances
type BalanceHandler struct {
	BaseHandler
	service *appledger.BalanceService
}

// NewBalanceHandler creates a new BalanceHandler
func NewBalanceHandler(service *appledger.BalanceService) *BalanceHandler {
	return &BalanceHandler{service: service}
}

// AsOf godoc
// @ID           getBalancesAsOf
// @Summary      Stock balances as of a date
// @Description  Reconstruct every product's stock at the end of the as_of day, read in the report timezone.
// @Description  Negative reconstructions are clamped to zero and flagged on the row.
// @Tags         ledger
// @Produce      json
// @Param        as_of query string false "Calendar day in YYYY-MM-DD, defaults to today" format(date)
// @Success      200 {object} dto.Response{data=appledger.BalanceReport}
// @Failure      400 {object} dto.Response
// @Failure      401 {object} dto.Response
// @Failure      403 {object} dto.Response
// @Failure      500 {object} dto.Response
// @Security     BearerAuth
// @Router       /ledger/balances [get]
func (h *BalanceHandler) AsOf(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	loc := h.service.Location()
	asOf := time.Now().In(loc)
	if raw := c.Query("as_of"); raw != "" {
		parsed, err := time.ParseInLocation(time.DateOnly, raw, loc)
		if err != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "as_of must be a date in YYYY-MM-DD format")
			return
		}
		asOf = parsed
	}

	report, err := h.service.BalancesAsOf(c.Request.Context(), actor, asOf)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, report)
}
