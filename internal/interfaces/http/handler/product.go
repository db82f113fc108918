package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/ledger/backend/internal/application/ledger"
	"github.com/ledger/backend/internal/application/listing"
	"github.com/ledger/backend/internal/domain/catalog"
	"github.com/ledger/backend/internal/infrastructure/async"
	"github.com/ledger/backend/internal/interfaces/http/dto"
)

// ProductHandler handles product endpoints
type ProductHandler struct {
	BaseHandler
	products *ledger.ProductRepository
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(products *ledger.ProductRepository, languages LanguageSource) *ProductHandler {
	return &ProductHandler{
		BaseHandler: BaseHandler{languages: languages},
		products:    products,
	}
}

// ProductRequest is the body of product writes. Name and price are
// checked by the ledger.
// @Description Product fields
type ProductRequest struct {
	Name  string `json:"name" binding:"max=200" example:"Green Tea"`
	Price int64  `json:"price" example:"12000"`
}

func (r ProductRequest) toProduct(id int64) catalog.Product {
	return catalog.Product{ID: id, Name: r.Name, Price: r.Price}
}

// ProductBatchRequest is the body of batch product writes
type ProductBatchRequest struct {
	Items []ProductUpsertRequest `json:"items" binding:"required,min=1,dive"`
}

// ProductUpsertRequest is a product with an optional id
type ProductUpsertRequest struct {
	ID int64 `json:"id" binding:"gte=0"`
	ProductRequest
}

func productsOf(items []ProductUpsertRequest) []catalog.Product {
	out := make([]catalog.Product, len(items))
	for i, it := range items {
		out[i] = it.toProduct(it.ID)
	}
	return out
}

// List godoc
// @Summary      List products
// @Description  Lists products, narrowed by a word-prefix search and a price range, then sorted
// @Tags         products
// @Produce      json
// @Param        q          query string false "Search text"
// @Param        min_price  query int    false "Lowest price"
// @Param        max_price  query int    false "Highest price"
// @Param        sort       query string false "NAME or PRICE"
// @Param        asc        query bool   false "Ascending order"
// @Success      200 {object} dto.Response{data=[]catalog.Product}
// @Router       /products [get]
func (h *ProductHandler) List(c *gin.Context) {
	ctx := c.Request.Context()
	var future *async.Future[[]catalog.Product]
	if q := c.Query("q"); q != "" {
		future = h.products.Search(ctx, q)
	} else {
		future = h.products.SelectAll(ctx)
	}
	products, err := await(c, future)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	filters := listing.ProductFilters{Price: int64Range(c, "min_price", "max_price")}
	method := sortMethod(c,
		listing.SortMethod[listing.ProductSortBy]{By: listing.ProductSortByName, Ascending: true},
		listing.ProductSortByName, listing.ProductSortByPrice,
	)
	List(c, listing.NewSorter(h.Language(c)).Products(filters.Filter(products), method))
}

// Get godoc
// @Summary      Get a product
// @Tags         products
// @Produce      json
// @Param        id  path int true "Product id"
// @Success      200 {object} dto.Response{data=catalog.Product}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	if p, ok := found(&h.BaseHandler, c, h.products.SelectByID(c.Request.Context(), id), "Product"); ok {
		h.Success(c, p)
	}
}

// Create godoc
// @Summary      Create a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Retry key"
// @Param        request body ProductRequest true "Product"
// @Success      201 {object} dto.Response{data=dto.IDResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	var req ProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	id, err := await(c, h.products.Add(c.Request.Context(), req.toProduct(0)))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.IDResponse{ID: id})
}

// Update godoc
// @Summary      Update a product
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id  path int true "Product id"
// @Param        request body ProductRequest true "Product"
// @Success      200 {object} dto.Response{data=dto.AffectedResponse}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	var req ProductRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.affected(c, h.products.Update(c.Request.Context(), req.toProduct(id)), "Product")
}

// Delete godoc
// @Summary      Delete a product
// @Description  Orders keep their name and price snapshot of the deleted product
// @Tags         products
// @Param        id  path int true "Product id"
// @Success      200 {object} dto.Response{data=dto.AffectedResponse}
// @Router       /products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	id, ok := h.ParseID(c)
	if !ok {
		return
	}
	h.affected(c, h.products.Delete(c.Request.Context(), catalog.Product{ID: id}), "Product")
}

// CreateBatch godoc
// @Summary      Create products
// @Description  Results are aligned with items; zero marks an item that failed
// @Tags         products
// @Router       /products/batch [post]
func (h *ProductHandler) CreateBatch(c *gin.Context) {
	var req ProductBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.batch(c, h.products.AddAll(c.Request.Context(), productsOf(req.Items)))
}

// UpsertBatch godoc
// @Summary      Insert or update products
// @Tags         products
// @Router       /products/batch [put]
func (h *ProductHandler) UpsertBatch(c *gin.Context) {
	var req ProductBatchRequest
	if !h.BindJSON(c, &req) {
		return
	}
	h.batch(c, h.products.UpsertAll(c.Request.Context(), productsOf(req.Items)))
}

// DeleteBatch godoc
// @Summary      Delete products
// @Tags         products
// @Router       /products/batch-delete [post]
func (h *ProductHandler) DeleteBatch(c *gin.Context) {
	var req BatchIDsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	products := make([]catalog.Product, len(req.IDs))
	for i, id := range req.IDs {
		products[i] = catalog.Product{ID: id}
	}
	h.batch(c, h.products.DeleteAll(c.Request.Context(), products))
}
