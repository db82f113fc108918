// Package handler holds the gin handlers of the ledger API. Handlers await
// repository futures with the request context: a canceled request stops
// waiting, but a write it already queued still completes.
package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ledger/backend/internal/infrastructure/async"
	"github.com/ledger/backend/internal/infrastructure/logger"
	"github.com/ledger/backend/internal/interfaces/http/dto"
	"github.com/ledger/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

// LanguageSource returns the user's language
type LanguageSource interface {
	Language() (language.Tag, error)
}

// BaseHandler provides common handler utilities
type BaseHandler struct {
	languages LanguageSource
}

func getRequestID(c *gin.Context) string {
	if id := middleware.GetRequestID(c); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// List sends a 200 response for a list
func List[T any](c *gin.Context, items []T) {
	c.JSON(http.StatusOK, dto.NewListResponse(items))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.Set(middleware.ErrorCodeKey, code)
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// NotFound sends a 404 not found response
func (h *BaseHandler) NotFound(c *gin.Context, message string) {
	h.Error(c, http.StatusNotFound, dto.ErrCodeNotFound, message)
}

// BindJSON binds the body into req, answering 400 on failure
func (h *BaseHandler) BindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.Set(middleware.ErrorCodeKey, dto.ErrCodeValidation)
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// BindQuery binds the query string into req, answering 400 on failure
func (h *BaseHandler) BindQuery(c *gin.Context, req any) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.Set(middleware.ErrorCodeKey, dto.ErrCodeValidation)
		middleware.HandleValidationError(c, err)
		return false
	}
	return true
}

// HandleError converts domain, store and context errors to HTTP responses.
// Server side failures are logged with their cause.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	code, message := dto.ClassifyError(err)
	status := dto.GetHTTPStatus(code)
	if status >= http.StatusInternalServerError {
		logger.FromGin(c).Error("request failed", zap.String("code", code), zap.Error(err))
	}
	_ = c.Error(err)
	h.Error(c, status, code, message)
}

// ParseID reads the :id path parameter. Ids are positive; zero means
// absent and is never addressable.
func (h *BaseHandler) ParseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		h.BadRequest(c, "Invalid id")
		return 0, false
	}
	return id, true
}

// Language returns the user's language, or English when none is stored
func (h *BaseHandler) Language(c *gin.Context) language.Tag {
	if h.languages == nil {
		return language.English
	}
	tag, err := h.languages.Language()
	if err != nil {
		logger.FromGin(c).Warn("failed to read language", zap.Error(err))
		return language.English
	}
	return tag
}

// await waits for f with the request context
func await[T any](c *gin.Context, f *async.Future[T]) (T, error) {
	return f.Await(c.Request.Context())
}

// found unwraps a SelectByID result, answering 404 when absent
func found[T any](h *BaseHandler, c *gin.Context, f *async.Future[*T], what string) (T, bool) {
	var zero T
	m, err := await(c, f)
	if err != nil {
		h.HandleError(c, err)
		return zero, false
	}
	if m == nil {
		h.NotFound(c, what+" not found")
		return zero, false
	}
	return *m, true
}

// affected answers a single update or delete. Zero affected rows means the
// id did not exist.
func (h *BaseHandler) affected(c *gin.Context, f *async.Future[int64], what string) {
	n, err := await(c, f)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if n == 0 {
		h.NotFound(c, what+" not found")
		return
	}
	h.Success(c, dto.AffectedResponse{Affected: n})
}

// batch answers a batch write
func (h *BaseHandler) batch(c *gin.Context, f *async.Future[[]int64]) {
	results, err := await(c, f)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.NewBatchResponse(results))
}

// BatchIDsRequest lists ids for a batch delete
// @Description Ids of the records to delete
type BatchIDsRequest struct {
	IDs []int64 `json:"ids" binding:"required,min=1,dive,gt=0"`
}
