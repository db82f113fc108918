package middleware

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ledger/backend/internal/infrastructure/cache"
	"github.com/ledger/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader names the client supplied key of a write
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotentReplayHeader is set on answers replayed from the store
	IdempotentReplayHeader = "Idempotent-Replayed"
	// MaxIdempotencyKeyLength caps the accepted key size
	MaxIdempotencyKeyLength = 255
)

// storeTimeout bounds each idempotency store call so a slow redis does not
// hold the request
const storeTimeout = 2 * time.Second

// bodyRecorder tees the response body so it can be stored
type bodyRecorder struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *bodyRecorder) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *bodyRecorder) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Idempotency makes POST requests carrying an Idempotency-Key safe to
// retry. The first request reserves the key and its answer is stored for
// ttl; later requests with the same key get the stored answer. While the
// first request runs, duplicates are answered 409. Server errors release
// the key so the client may retry. Store failures let the request through
// unprotected.
func Idempotency(store cache.IdempotencyStore, ttl time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if c.Request.Method != http.MethodPost || key == "" {
			c.Next()
			return
		}
		if len(key) > MaxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, "Idempotency-Key is too long", GetRequestID(c)))
			return
		}
		key = c.Request.Method + " " + routePattern(c) + " " + key
		log := logger.With(zap.String("idempotency_key", key))

		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), storeTimeout)
		resp, found, err := store.Load(ctx, key)
		cancel()
		if err != nil {
			log.Warn("idempotency lookup failed", zap.Error(err))
			c.Next()
			return
		}
		if found {
			replay(c, resp)
			return
		}

		ctx, cancel = context.WithTimeout(context.WithoutCancel(c.Request.Context()), storeTimeout)
		reserved, err := store.Reserve(ctx, key, ttl)
		cancel()
		if err != nil {
			log.Warn("idempotency reserve failed", zap.Error(err))
			c.Next()
			return
		}
		if !reserved {
			replay(c, nil)
			return
		}

		rec := &bodyRecorder{ResponseWriter: c.Writer}
		c.Writer = rec
		c.Next()

		ctx, cancel = context.WithTimeout(context.WithoutCancel(c.Request.Context()), storeTimeout)
		defer cancel()
		status := rec.Status()
		if status >= http.StatusInternalServerError {
			if err := store.Release(ctx, key); err != nil {
				log.Warn("idempotency release failed", zap.Error(err))
			}
			return
		}
		saved := cache.Response{
			Status:      status,
			ContentType: rec.Header().Get("Content-Type"),
			Body:        rec.body.Bytes(),
		}
		if err := store.Save(ctx, key, saved, ttl); err != nil {
			log.Warn("idempotency save failed", zap.Error(err))
		}
	}
}

// replay answers with a stored response, or 409 when the first request
// has not finished yet
func replay(c *gin.Context, resp *cache.Response) {
	if resp == nil {
		c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeDuplicateRequest,
			"A request with this Idempotency-Key is still being processed",
			GetRequestID(c),
		))
		return
	}
	c.Header(IdempotentReplayHeader, "true")
	c.Data(resp.Status, resp.ContentType, resp.Body)
	c.Abort()
}
