package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/ledger/backend/internal/application/ledger"
	"github.com/ledger/backend/internal/application/listing"
	"github.com/ledger/backend/internal/domain/partner"
	"github.com/ledger/backend/internal/infrastructure/async"
	"github.com/ledger/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// CustomerHandler handles customer endpoints
type CustomerHandler struct {
	BaseHandler
	customers *ledger.CustomerRepository
	queues    *ledger.QueueRepository
}

// NewCustomerHandler creates a new CustomerHandler
func NewCustomerHandler(customers *ledger.CustomerRepository, queues *ledger.QueueRepository, languages LanguageSource) *CustomerHandler {
	return &CustomerHandler{
		BaseHandler: BaseHandler{languages: languages},
		customers:   customers,
		queues:      queues,
	}
}

// CustomerRequest is the body of customer writes. Debt is derived from
// unpaid queues and cannot be written.
// @Description Customer fields
type CustomerRequest struct {
	Name    string `json:"name" binding:"max=200" example:"Amy"`
	Balance int64  `json:"balance" example:"50000"`
}

func (r CustomerRequest) toCustomer(id int64) partner.Customer {
	return partner.Customer{ID: id, Name: r.Name, Balance: r.Balance, Debt: decimal.Zero}
}

// CustomerUpsertRequest is a customer with an optional id
type CustomerUpsertRequest struct {
	ID int64 `json:"id" binding:"gte=0"`
	CustomerRequest
}

// CustomerBatchRequest is the body of batch customer writes
type CustomerBatchRequest struct {
	Items []CustomerUpsertRequest `json:"items" binding:"required,min=1,dive"`
}

func customersOf(items []CustomerUpsertRequest) []partner.Customer {
	out := make([]partner.Customer, len(items))
	for i, it := range items {
		out[i] = it.toCustomer(it.ID)
	}
	return out
}

// AmountRequest is the body of deposits and withdrawals
type AmountRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0" example:"10000"`
}

// CustomerTotalDebt is the debt of one customer
type CustomerTotalDebt struct {
	ID   int64           `json:"id"`
	Debt decimal.Decimal `json:"debt"`
}

// List godoc
// @Summary      List customers
// @Description  Lists customers with their debt. Debt bounds are positive amounts compared with the absolute debt.
// @Tags         customers
// @Produce      json
// @Param        q            query string false "Search text"
// @Param        min_balance  query int    false "Lowest balance"
// @Param        max_balance  query int    false "Highest balance"
// @Param        min_debt     query number false "Lowest absolute debt"
// @Param        max_debt     query number false "Highest absolute debt"
// @Param        sort         query string false "NAME or BALANCE"
// @Param        asc          query bool   false "Ascending order"
// @Success      200 {object} dto.Response{data=[]partner.Customer}
// @Router       /customers [get]
func (h *CustomerHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	var future *async.Future[[]partner.Customer]
	if q := c.Query("q"); q != "" {
		future = h.customers.Search(ctx, q)
	} else {
		future = h.customers.SelectAll(ctx)
	}
	customers, err := await(c, future)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	filters := listing.CustomerFilters{
		Balance: int64Range(c, "min_balance", "max_balance"),
		Debt:    decimalRange(c, "min_debt", "max_debt"),
	}
	method := sortMethod(c,
		listing.SortMethod[listing.CustomerSortBy]{By: listing.CustomerSortByName, Ascending: true},
		listing.CustomerSortByName, listing.CustomerSortByBalance,
	)
	List(c, listing.NewSorter(h.Language(c)).Customers(filters.Filter(customers), method))
}

// Get godoc
// @Summary      Get a customer
// @Tags         customers
// @Param        id  path int true "Customer id"
// @Success      200 {object} dto.Response{data=partner.Customer}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /customers/{id} [get]
func (h *CustomerHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	if cust, ok := found(&h.BaseHandler, c, h.customers.SelectByID(c.Request.Context(), id), "Customer"); ok {
		h.Success(c, cust)
	}
}

// Create godoc
// @Summary      Create a customer
// @Tags         customers
// @Accept       json
// @Param        Idempotency-Key header string false "Retry key"
// @Param        request body CustomerRequest true "Customer"
// @Success      201 {object} dto.Response{data=dto.IDResponse}
// @Router       /customers [post]
func (h *CustomerHandler) Create(c *gin.Context) {
	var req CustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}
	id, err := await(c, h.customers.Add(c.Request.Context(), req.toCustomer(0)))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.IDResponse{ID: id})
}

// Update godoc
// @Summary      Update a customer
// @Tags         customers
// @Param        id  path int true "Customer id"
// @Param        request body CustomerRequest true "Customer"
// @Success      200 {object} dto.Response{data=dto.AffectedResponse}
// @Router       /customers/{id} [put]
func (h *CustomerHandler) Update(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req CustomerRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.affected(c, h.customers.Update(c.Request.Context(), req.toCustomer(id)), "Customer")
}

// Delete godoc
// @Summary      Delete a customer
// @Description  The customer's queues are kept without customer
// @Tags         customers
// @Param        id  path int true "Customer id"
// @Success      200 {object} dto.Response{data=dto.AffectedResponse}
// @Router       /customers/{id} [delete]
func (h *CustomerHandler) Delete(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	h.affected(c, h.customers.Delete(c.Request.Context(), partner.Customer{ID: id}), "Customer")
}

// CreateBatch godoc
// @Summary      Create customers
// @Tags         customers
// @Router       /customers/batch [post]
func (h *CustomerHandler) CreateBatch(c *gin.Context) {
	var req CustomerBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.batch(c, h.customers.AddAll(c.Request.Context(), customersOf(req.Items)))
}

// UpsertBatch godoc
// @Summary      Insert or update customers
// @Tags         customers
// @Router       /customers/batch [put]
func (h *CustomerHandler) UpsertBatch(c *gin.Context) {
	var req CustomerBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.batch(c, h.customers.UpsertAll(c.Request.Context(), customersOf(req.Items)))
}

// DeleteBatch godoc
// @Summary      Delete customers
// @Tags         customers
// @Router       /customers/batch-delete [post]
func (h *CustomerHandler) DeleteBatch(c *gin.Context) {
	var req BatchIDsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	customers := make([]partner.Customer, len(req.IDs))
	for i, id := range req.IDs {
		customers[i] = partner.Customer{ID: id}
	}
	h.batch(c, h.customers.DeleteAll(c.Request.Context(), customers))
}

// BalanceInfo godoc
// @Summary      Customers with a positive balance
// @Tags         customers
// @Success      200 {object} dto.Response{data=[]partner.CustomerBalanceInfo}
// @Router       /customers/balance-info [get]
func (h *CustomerHandler) BalanceInfo(c *gin.Context) {
	infos, err := await(c, h.customers.SelectAllInfoWithBalance(c.Request.Context()))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	List(c, infos)
}

// DebtInfo godoc
// @Summary      Customers with debt
// @Tags         customers
// @Success      200 {object} dto.Response{data=[]partner.CustomerDebtInfo}
// @Router       /customers/debt-info [get]
func (h *CustomerHandler) DebtInfo(c *gin.Context) {
	infos, err := await(c, h.customers.SelectAllInfoWithDebt(c.Request.Context()))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	List(c, infos)
}

// Debt godoc
// @Summary      Total debt of a customer
// @Description  Zero or negative: the sum of the customer's unpaid queues
// @Tags         customers
// @Param        id  path int true "Customer id"
// @Success      200 {object} dto.Response{data=CustomerTotalDebt}
// @Router       /customers/{id}/debt [get]
func (h *CustomerHandler) Debt(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	debt, err := await(c, h.customers.TotalDebtByID(c.Request.Context(), id))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, CustomerTotalDebt{ID: id, Debt: debt})
}

// QueueIDs godoc
// @Summary      Ids of a customer's queues
// @Tags         customers
// @Param        id  path int true "Customer id"
// @Success      200 {object} dto.Response{data=[]int64}
// @Router       /customers/{id}/queue-ids [get]
func (h *CustomerHandler) QueueIDs(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	ids, err := await(c, h.queues.SelectAllIDsByCustomerID(c.Request.Context(), id))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	List(c, ids)
}

// Deposit godoc
// @Summary      Add to a customer's balance
// @Tags         customers
// @Param        id  path int true "Customer id"
// @Param        request body AmountRequest true "Amount"
// @Success      200 {object} dto.Response{data=partner.Customer}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /customers/{id}/deposit [post]
func (h *CustomerHandler) Deposit(c *gin.Context) {
	h.moveBalance(c, h.customers.Deposit)
}

// Withdraw godoc
// @Summary      Take from a customer's balance
// @Tags         customers
// @Param        id  path int true "Customer id"
// @Param        request body AmountRequest true "Amount"
// @Success      200 {object} dto.Response{data=partner.Customer}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /customers/{id}/withdraw [post]
func (h *CustomerHandler) Withdraw(c *gin.Context) {
	h.moveBalance(c, h.customers.Withdraw)
}

func (h *CustomerHandler) moveBalance(c *gin.Context, move func(ctx context.Context, id, amount int64) *async.Future[*partner.Customer]) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req AmountRequest
	if !h.BindJSON(c, &req) {
		return
	}
	cust, ok := found(&h.BaseHandler, c, move(c.Request.Context(), id, req.Amount), "Customer")
	if !ok {
		return
	}
	h.Success(c, cust)
}
