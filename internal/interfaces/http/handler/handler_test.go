package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ledger/backend/internal/application/ledger"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/infrastructure/async"
	"github.com/ledger/backend/internal/infrastructure/config"
	"github.com/ledger/backend/internal/infrastructure/currency"
	"github.com/ledger/backend/internal/infrastructure/migration"
	"github.com/ledger/backend/internal/infrastructure/persistence"
	"github.com/ledger/backend/internal/interfaces/http/dto"
	"github.com/ledger/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/text/language"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

var testNow = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

type staticLanguage language.Tag

func (s staticLanguage) Language() (language.Tag, error) { return language.Tag(s), nil }

// envelope mirrors dto.Response with the payload left raw
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *dto.ErrorInfo  `json:"error"`
	Meta    *dto.Meta       `json:"meta"`
}

type testEnv struct {
	t      *testing.T
	ledger *ledger.Ledger
	db     *persistence.Database
	clock  shared.Clock
	engine *gin.Engine
}

// newTestEnv serves every ledger handler over a migrated in-memory database
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := persistence.NewDatabase(&config.DatabaseConfig{Path: ":memory:", LogLevel: "silent"}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	sqlDB, err := db.DB.DB()
	require.NoError(t, err)
	m, err := migration.New(sqlDB, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	owner := async.NewOwner(zap.NewNop())
	pool, err := async.NewPool(4, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = owner.Close(ctx)
		pool.Release()
	})
	l := ledger.New(ledger.Stores{
		Products:      persistence.NewGormProductStore(db.DB),
		Customers:     persistence.NewGormCustomerStore(db.DB),
		Queues:        persistence.NewGormQueueStore(db.DB),
		ProductOrders: persistence.NewGormProductOrderStore(db.DB),
		Tx:            db,
	}, ledger.Runtime{Owner: owner, Pool: pool, Logger: zap.NewNop()})

	env := &testEnv{t: t, ledger: l, db: db, clock: shared.FixedClock{At: testNow}}
	lang := staticLanguage(language.English)

	r := gin.New()
	products := NewProductHandler(l.Products, lang)
	r.GET("/products", products.List)
	r.POST("/products", products.Create)
	r.POST("/products/batch", products.CreateBatch)
	r.PUT("/products/batch", products.UpsertBatch)
	r.POST("/products/batch-delete", products.DeleteBatch)
	r.GET("/products/:id", products.Get)
	r.PUT("/products/:id", products.Update)
	r.DELETE("/products/:id", products.Delete)

	customers := NewCustomerHandler(l.Customers, l.Queues, lang)
	r.GET("/customers", customers.List)
	r.POST("/customers", customers.Create)
	r.POST("/customers/batch", customers.CreateBatch)
	r.GET("/customers/balance-info", customers.BalanceInfo)
	r.GET("/customers/debt-info", customers.DebtInfo)
	r.GET("/customers/:id", customers.Get)
	r.PUT("/customers/:id", customers.Update)
	r.DELETE("/customers/:id", customers.Delete)
	r.GET("/customers/:id/debt", customers.Debt)
	r.GET("/customers/:id/queue-ids", customers.QueueIDs)
	r.POST("/customers/:id/deposit", customers.Deposit)
	r.POST("/customers/:id/withdraw", customers.Withdraw)

	queues := NewQueueHandler(l, env.clock, lang)
	r.GET("/queues", queues.List)
	r.GET("/queues/export.csv", queues.Export)
	r.POST("/queues", queues.Create)
	r.POST("/queues/batch-delete", queues.DeleteBatch)
	r.GET("/queues/:id", queues.Get)
	r.PUT("/queues/:id", queues.Update)
	r.DELETE("/queues/:id", queues.Delete)
	r.GET("/queues/:id/product-orders", queues.ProductOrders)

	dashboard := NewDashboardHandler(l, env.clock, currency.NewFormatter(zap.NewNop()), lang)
	r.GET("/dashboard", dashboard.Get)

	env.engine = r
	return env
}

func (e *testEnv) do(method, path string, body any) (*httptest.ResponseRecorder, envelope) {
	e.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

// data decodes the payload of a successful response into out
func (e *testEnv) data(w *httptest.ResponseRecorder, env envelope, status int, out any) {
	e.t.Helper()
	require.Equal(e.t, status, w.Code, w.Body.String())
	require.True(e.t, env.Success, w.Body.String())
	if out != nil {
		require.NoError(e.t, json.Unmarshal(env.Data, out))
	}
}

func (e *testEnv) create(path string, body any) int64 {
	e.t.Helper()
	w, env := e.do(http.MethodPost, path, body)
	var id dto.IDResponse
	e.data(w, env, http.StatusCreated, &id)
	require.Positive(e.t, id.ID)
	return id.ID
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
