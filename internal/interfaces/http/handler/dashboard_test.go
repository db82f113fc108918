package handler

import (
	"net/http"
	"testing"

	"github.com/ledger/backend/internal/application/report"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDashboardHandler_Get(t *testing.T) {
	env := newTestEnv(t)
	tea := env.create("/products", ProductRequest{Name: "Tea", Price: 100})
	amy := env.create("/customers", CustomerRequest{Name: "Amy", Balance: 250})
	env.create("/queues", QueueRequest{
		CustomerID:    &amy,
		Status:        "UNPAID",
		ProductOrders: []ProductOrderRequest{{ProductID: tea, Quantity: qty(2)}},
	})
	env.create("/queues", QueueRequest{
		Status:        "COMPLETED",
		Date:          "2024-01-10T09:00:00Z",
		ProductOrders: []ProductOrderRequest{{ProductID: tea, Quantity: qty(1)}},
	})

	var state report.DashboardState
	w, resp := env.do(http.MethodGet, "/dashboard", nil)
	env.data(w, resp, http.StatusOK, &state)
	assert.Equal(t, trade.QueueDateThisMonth, state.Date.Range)
	assert.Equal(t, int64(250), state.TotalBalance)
	assert.True(t, decimal.NewFromInt(-200).Equal(state.TotalDebt), state.TotalDebt.String())
	assert.Len(t, state.Queues, 1)

	w, resp = env.do(http.MethodGet, "/dashboard?range=this_year", nil)
	env.data(w, resp, http.StatusOK, &state)
	assert.Len(t, state.Queues, 2)

	w, resp = env.do(http.MethodGet, "/dashboard?range=FOREVER", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, resp.Error)

	w, resp = env.do(http.MethodGet, "/dashboard?range=this_year&scale=padded", nil)
	env.data(w, resp, http.StatusOK, &state)
	require.Len(t, state.Revenue.Chart.YAxisDomain, 101)

	w, resp = env.do(http.MethodGet, "/dashboard?scale=log", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.NotNil(t, resp.Error)
}
