package handler

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ledger/backend/internal/application/ledger"
	"github.com/ledger/backend/internal/application/listing"
	"github.com/ledger/backend/internal/domain/catalog"
	"github.com/ledger/backend/internal/domain/partner"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/ledger/backend/internal/infrastructure/async"
	"github.com/ledger/backend/internal/infrastructure/export"
	"github.com/ledger/backend/internal/interfaces/http/dto"
	"github.com/shopspring/decimal"
)

// QueueHandler handles queue endpoints
type QueueHandler struct {
	BaseHandler
	queues        *ledger.QueueRepository
	productOrders *ledger.ProductOrderRepository
	products      *ledger.ProductRepository
	customers     *ledger.CustomerRepository
	clock         shared.Clock
}

// NewQueueHandler creates a new QueueHandler
func NewQueueHandler(l *ledger.Ledger, clock shared.Clock, languages LanguageSource) *QueueHandler {
	return &QueueHandler{
		BaseHandler:   BaseHandler{languages: languages},
		queues:        l.Queues,
		productOrders: l.ProductOrders,
		products:      l.Products,
		customers:     l.Customers,
		clock:         clock,
	}
}

// ProductOrderRequest is one order line of a queue write. An id refers to
// an existing line of the queue being updated; such a line keeps its product
// snapshot and product_id may be omitted.
type ProductOrderRequest struct {
	ID              int64           `json:"id" binding:"gte=0"`
	ProductID       int64           `json:"product_id" binding:"gte=0" example:"1"`
	Quantity        decimal.Decimal `json:"quantity" example:"2"`
	DiscountPercent decimal.Decimal `json:"discount_percent" example:"0"`
}

// QueueRequest is the body of queue writes. Omitted fields keep their
// current value on update and take the form defaults on create.
// @Description Queue fields
type QueueRequest struct {
	CustomerID    *int64                `json:"customer_id" binding:"omitempty,gte=0" example:"1"`
	Status        string                `json:"status" binding:"omitempty,queue_status" example:"IN_QUEUE"`
	PaymentMethod string                `json:"payment_method" binding:"omitempty,payment_method" example:"CASH"`
	Date          string                `json:"date" example:"2024-05-01T10:00:00Z"`
	ProductOrders []ProductOrderRequest `json:"product_orders" binding:"dive"`
}

// List godoc
// @Summary      List queues
// @Tags         queues
// @Produce      json
// @Param        q                   query string false "Search text"
// @Param        range               query string false "ALL_TIME, TODAY, YESTERDAY, THIS_WEEK, THIS_MONTH, THIS_YEAR or CUSTOM"
// @Param        start               query string false "Start of a CUSTOM range"
// @Param        end                 query string false "End of a CUSTOM range; a bare date includes that day"
// @Param        customer_id         query string false "Comma separated customer ids"
// @Param        show_null_customer  query bool   false "Include queues without customer"
// @Param        status              query string false "Comma separated statuses"
// @Param        min_total           query number false "Lowest grand total"
// @Param        max_total           query number false "Highest grand total"
// @Param        sort                query string false "CUSTOMER_NAME, DATE or TOTAL_PRICE"
// @Param        asc                 query bool   false "Ascending order"
// @Success      200 {object} dto.Response{data=[]trade.Queue}
// @Router       /queues [get]
func (h *QueueHandler) List(c *gin.Context) {
	if queues, ok := h.selectQueues(c); ok {
		List(c, queues)
	}
}

// Export godoc
// @Summary      Export queues as CSV
// @Description  Takes the List parameters. kind=orders exports the order lines instead.
// @Tags         queues
// @Produce      text/csv
// @Param        kind  query string false "queues or orders"
// @Success      200 {string} string
// @Router       /queues/export.csv [get]
func (h *QueueHandler) Export(c *gin.Context) {
	queues, ok := h.selectQueues(c)
	if !ok {
		return
	}
	kind := strings.ToLower(c.DefaultQuery("kind", "queues"))
	if kind != "queues" && kind != "orders" {
		h.BadRequest(c, "kind must be queues or orders")
		return
	}

	name := fmt.Sprintf("%s-%s.csv", kind, h.clock.Now().Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)

	var err error
	if kind == "orders" {
		err = export.WriteProductOrders(c.Writer, queues)
	} else {
		err = export.WriteQueues(c.Writer, queues, h.clock.Location())
	}
	if err != nil {
		// headers are gone, the client sees a truncated file
		_ = c.Error(err)
	}
}

func (h *QueueHandler) selectQueues(c *gin.Context) ([]trade.Queue, bool) {
	date, err := queueDate(c, h.clock, trade.QueueDateAllTime)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}
	filters := listing.NewQueueFilters()
	filters.Date = date
	filters.CustomerIDs = int64List(c, "customer_id")
	filters.ShowNullCustomer = boolParam(c, "show_null_customer", true)
	filters.TotalPrice = decimalRange(c, "min_total", "max_total")
	if raw := c.Query("status"); raw != "" {
		var statuses []trade.QueueStatus
		for _, part := range strings.Split(raw, ",") {
			if strings.TrimSpace(part) == "" {
				continue
			}
			s, err := trade.ParseQueueStatus(part)
			if err != nil {
				h.HandleError(c, err)
				return nil, false
			}
			statuses = append(statuses, s)
		}
		filters = filters.WithStatuses(statuses...)
	}

	ctx := c.Request.Context()
	var future *async.Future[[]trade.Queue]
	switch q := c.Query("q"); {
	case q != "":
		future = h.queues.Search(ctx, q)
	case !date.IsAllTime():
		future = h.queues.SelectAllInRange(ctx, date.Start, date.End)
	default:
		future = h.queues.SelectAll(ctx)
	}
	queues, err := await(c, future)
	if err != nil {
		h.HandleError(c, err)
		return nil, false
	}

	method := sortMethod(c,
		listing.SortMethod[listing.QueueSortBy]{By: listing.QueueSortByDate, Ascending: false},
		listing.QueueSortByCustomerName, listing.QueueSortByDate, listing.QueueSortByTotalPrice,
	)
	return listing.NewSorter(h.Language(c)).Queues(filters.Filter(queues), method), true
}

// Get godoc
// @Summary      Get a queue
// @Tags         queues
// @Param        id  path int true "Queue id"
// @Success      200 {object} dto.Response{data=trade.Queue}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /queues/{id} [get]
func (h *QueueHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	if q, ok := found(&h.BaseHandler, c, h.queues.SelectByID(c.Request.Context(), id), "Queue"); ok {
		h.Success(c, q)
	}
}

// ProductOrders godoc
// @Summary      Order lines of a queue
// @Tags         queues
// @Param        id  path int true "Queue id"
// @Success      200 {object} dto.Response{data=[]trade.ProductOrder}
// @Router       /queues/{id}/product-orders [get]
func (h *QueueHandler) ProductOrders(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	orders, err := await(c, h.productOrders.SelectAllByQueueID(c.Request.Context(), id))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	List(c, orders)
}

// Create godoc
// @Summary      Create a queue
// @Description  Settles the customer's balance or debt according to status and payment method
// @Tags         queues
// @Accept       json
// @Param        Idempotency-Key header string false "Retry key"
// @Param        request body QueueRequest true "Queue"
// @Success      201 {object} dto.Response{data=dto.IDResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /queues [post]
func (h *QueueHandler) Create(c *gin.Context) {
	var req QueueRequest
	if !h.BindJSON(c, &req) {
		return
	}
	q, ok := h.buildQueue(c, nil, req)
	if !ok {
		return
	}
	id, err := await(c, h.queues.Add(c.Request.Context(), q))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.IDResponse{ID: id})
}

// Update godoc
// @Summary      Update a queue
// @Description  Order lines with an id are updated, without one are added, and missing ones are deleted
// @Tags         queues
// @Param        id  path int true "Queue id"
// @Param        request body QueueRequest true "Queue"
// @Success      200 {object} dto.Response{data=dto.AffectedResponse}
// @Router       /queues/{id} [put]
func (h *QueueHandler) Update(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req QueueRequest
	if !h.BindJSON(c, &req) {
		return
	}
	current, ok := found(&h.BaseHandler, c, h.queues.SelectByID(c.Request.Context(), id), "Queue")
	if !ok {
		return
	}
	q, ok := h.buildQueue(c, &current, req)
	if !ok {
		return
	}
	q.ID = id
	h.affected(c, h.queues.Update(c.Request.Context(), q), "Queue")
}

// Delete godoc
// @Summary      Delete a queue
// @Description  Reverts the queue's effect on its customer's balance
// @Tags         queues
// @Param        id  path int true "Queue id"
// @Success      200 {object} dto.Response{data=dto.AffectedResponse}
// @Router       /queues/{id} [delete]
func (h *QueueHandler) Delete(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	h.affected(c, h.queues.Delete(c.Request.Context(), trade.Queue{ID: id}), "Queue")
}

// DeleteBatch godoc
// @Summary      Delete queues
// @Tags         queues
// @Router       /queues/batch-delete [post]
func (h *QueueHandler) DeleteBatch(c *gin.Context) {
	var req BatchIDsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	queues := make([]trade.Queue, len(req.IDs))
	for i, id := range req.IDs {
		queues[i] = trade.Queue{ID: id}
	}
	h.batch(c, h.queues.DeleteAll(c.Request.Context(), queues))
}

// buildQueue runs the request through a PaymentForm. current is the stored
// queue when updating.
func (h *QueueHandler) buildQueue(c *gin.Context, current *trade.Queue, req QueueRequest) (trade.Queue, bool) {
	ctx := c.Request.Context()

	customerID := int64(0)
	if current != nil {
		customerID = current.CustomerID
	}
	if req.CustomerID != nil {
		customerID = *req.CustomerID
	}
	var customer *partner.Customer
	if customerID > 0 {
		cust, ok := found(&h.BaseHandler, c, h.customers.SelectByID(ctx, customerID), "Customer")
		if !ok {
			return trade.Queue{}, false
		}
		customer = &cust
	}

	orders, ok := h.buildOrders(c, current, req.ProductOrders)
	if !ok {
		return trade.Queue{}, false
	}

	form := trade.NewPaymentForm(current, customer)
	if current == nil || req.Date != "" {
		date, err := parseDate(req.Date, h.clock)
		if err != nil {
			h.HandleError(c, err)
			return trade.Queue{}, false
		}
		form.SetDate(date)
	}
	if req.Status != "" {
		status, err := trade.ParseQueueStatus(req.Status)
		if err != nil {
			h.HandleError(c, err)
			return trade.Queue{}, false
		}
		form.SetStatus(status)
	}
	if current == nil || req.ProductOrders != nil {
		form.SetProductOrders(orders)
	}
	if req.PaymentMethod != "" {
		method, err := trade.ParsePaymentMethod(req.PaymentMethod)
		if err != nil {
			h.HandleError(c, err)
			return trade.Queue{}, false
		}
		if !form.SetPaymentMethod(method) {
			h.HandleError(c, shared.NewDomainError(shared.CodeOutOfRange,
				fmt.Sprintf("Payment method %s is not allowed, allowed: %v", method, form.AllowedPaymentMethods())))
			return trade.Queue{}, false
		}
	}

	q := form.Queue()
	q.Customer = nil
	return q, true
}

// buildOrders snapshots the requested products into order lines. Lines of
// current keep their snapshot unless they switch product.
func (h *QueueHandler) buildOrders(c *gin.Context, current *trade.Queue, lines []ProductOrderRequest) ([]trade.ProductOrder, bool) {
	existing := map[int64]trade.ProductOrder{}
	if current != nil {
		for _, o := range current.ProductOrders {
			existing[o.ID] = o
		}
	}

	var productIDs []int64
	for _, l := range lines {
		if o, ok := existing[l.ID]; ok && l.ID > 0 && (l.ProductID == 0 || l.ProductID == o.ProductID) {
			continue
		}
		if l.ProductID == 0 {
			h.BadRequest(c, "product_id is required for new order lines")
			return nil, false
		}
		productIDs = append(productIDs, l.ProductID)
	}

	products := map[int64]catalog.Product{}
	if len(productIDs) > 0 {
		list, err := await(c, h.products.SelectByIDs(c.Request.Context(), productIDs))
		if err != nil {
			h.HandleError(c, err)
			return nil, false
		}
		for _, p := range list {
			products[p.ID] = p
		}
	}

	orders := make([]trade.ProductOrder, 0, len(lines))
	for _, l := range lines {
		if o, ok := existing[l.ID]; ok && l.ID > 0 && (l.ProductID == 0 || l.ProductID == o.ProductID) {
			o.Quantity = l.Quantity.Round(trade.QuantityMaxFractionDigits)
			o.DiscountPercent = l.DiscountPercent
			if err := o.Validate(); err != nil {
				h.HandleError(c, err)
				return nil, false
			}
			orders = append(orders, o.Recalculated())
			continue
		}
		p, ok := products[l.ProductID]
		if !ok {
			h.NotFound(c, fmt.Sprintf("Product %d not found", l.ProductID))
			return nil, false
		}
		o, err := trade.NewProductOrder(p, l.Quantity, l.DiscountPercent)
		if err != nil {
			h.HandleError(c, err)
			return nil, false
		}
		if _, ok := existing[l.ID]; ok {
			o.ID = l.ID
		}
		orders = append(orders, *o)
	}
	return orders, true
}
