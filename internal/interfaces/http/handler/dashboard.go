package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/ledger/backend/internal/application/ledger"
	"github.com/ledger/backend/internal/application/report"
	domainreport "github.com/ledger/backend/internal/domain/report"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/ledger/backend/internal/infrastructure/logger"
)

// DashboardHandler serves the dashboard summary
type DashboardHandler struct {
	BaseHandler
	ledger    *ledger.Ledger
	clock     shared.Clock
	formatter domainreport.CurrencyFormatter
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(l *ledger.Ledger, clock shared.Clock, formatter domainreport.CurrencyFormatter, languages LanguageSource) *DashboardHandler {
	return &DashboardHandler{
		BaseHandler: BaseHandler{languages: languages},
		ledger:      l,
		clock:       clock,
		formatter:   formatter,
	}
}

// Get godoc
// @Summary      Dashboard
// @Description  Balances, debts, queues and charts for a date range. Defaults to this month.
// @Tags         dashboard
// @Produce      json
// @Param        range  query string false "ALL_TIME, TODAY, YESTERDAY, THIS_WEEK, THIS_MONTH, THIS_YEAR or CUSTOM"
// @Param        start  query string false "Start of a CUSTOM range"
// @Param        end    query string false "End of a CUSTOM range"
// @Param        scale  query string false "Revenue chart scale: LINEAR (default) or PADDED"
// @Success      200 {object} dto.Response{data=report.DashboardState}
// @Router       /dashboard [get]
func (h *DashboardHandler) Get(c *gin.Context) {
	date, err := queueDate(c, h.clock, trade.QueueDateThisMonth)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	scale, err := report.ParseChartScale(c.Query("scale"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	state, err := report.Snapshot(c.Request.Context(), h.ledger, date, report.DashboardOptions{
		Clock:     h.clock,
		Formatter: h.formatter,
		Language:  h.Language(c),
		Scale:     scale,
		Logger:    logger.FromGin(c),
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, state)
}
