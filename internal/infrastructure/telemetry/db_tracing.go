package telemetry

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBConfig controls the gorm instrumentation
type DBConfig struct {
	Tracing         bool
	LogFullSQL      bool // include bound variables in span statements
	SlowQueryThresh time.Duration
}

// DefaultDBConfig traces nothing and marks queries over 200ms as slow
func DefaultDBConfig() DBConfig {
	return DBConfig{SlowQueryThresh: 200 * time.Millisecond}
}

// DBPlugin instruments a gorm handle. With tracing on it installs otelgorm
// and annotates the query spans with table, rows affected and slow query
// markers. With a metrics histogram it records every statement's duration.
type DBPlugin struct {
	config   DBConfig
	duration *Histogram
	logger   *zap.Logger
}

// NewDBPlugin builds the plugin. mp may be nil to skip duration metrics.
func NewDBPlugin(cfg DBConfig, mp *MeterProvider, logger *zap.Logger) (*DBPlugin, error) {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = DefaultDBConfig().SlowQueryThresh
	}
	p := &DBPlugin{config: cfg, logger: logger}
	if mp != nil {
		h, err := NewHistogram(mp.Meter("ledger/db"),
			"ledger_db_query_duration_seconds",
			"SQLite statement duration",
			"s",
			DBDurationBuckets...,
		)
		if err != nil {
			return nil, err
		}
		p.duration = h
	}
	return p, nil
}

type queryStartKey struct{}

// Register installs the callbacks on db
func (p *DBPlugin) Register(db *gorm.DB) error {
	if !p.config.Tracing && p.duration == nil {
		p.logger.Debug("database instrumentation disabled")
		return nil
	}
	cb := db.Callback()
	hooks := []struct {
		op            string
		before, after registrar
	}{
		{"create", cb.Create().Before("gorm:create"), cb.Create().After("gorm:create")},
		{"query", cb.Query().Before("gorm:query"), cb.Query().After("gorm:query")},
		{"update", cb.Update().Before("gorm:update"), cb.Update().After("gorm:update")},
		{"delete", cb.Delete().Before("gorm:delete"), cb.Delete().After("gorm:delete")},
		{"row", cb.Row().Before("gorm:row"), cb.Row().After("gorm:row")},
		{"raw", cb.Raw().Before("gorm:raw"), cb.Raw().After("gorm:raw")},
	}
	for _, h := range hooks {
		op := h.op
		if err := h.before.Register("ledger_telemetry:before_"+op, markStart); err != nil {
			return err
		}
		if err := h.after.Register("ledger_telemetry:after_"+op, func(db *gorm.DB) { p.after(db, op) }); err != nil {
			return err
		}
	}

	// otelgorm goes last so the after hooks above run while its span is
	// still recording
	if p.config.Tracing {
		opts := []otelgorm.Option{otelgorm.WithDBName("sqlite")}
		if !p.config.LogFullSQL {
			opts = append(opts, otelgorm.WithoutQueryVariables())
		}
		if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
			return err
		}
	}

	p.logger.Info("database instrumentation enabled",
		zap.Bool("tracing", p.config.Tracing),
		zap.Bool("metrics", p.duration != nil),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
	)
	return nil
}

// registrar is a positioned gorm callback
type registrar interface {
	Register(name string, fn func(*gorm.DB)) error
}

func markStart(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartKey{}, time.Now())
	}
}

func (p *DBPlugin) after(db *gorm.DB, op string) {
	ctx := db.Statement.Context
	if ctx == nil {
		return
	}
	start, timed := ctx.Value(queryStartKey{}).(time.Time)
	var elapsed time.Duration
	if timed {
		elapsed = time.Since(start)
	}

	if p.duration != nil && timed {
		p.duration.RecordDuration(ctx, elapsed,
			AttrDBOperation.String(operation(op, db.Statement.SQL.String())),
			AttrDBTable.String(db.Statement.Table),
		)
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	if db.Statement.RowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, db.Error.Error())
		span.RecordError(db.Error)
	}
	if timed && elapsed > p.config.SlowQueryThresh {
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
		)
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
		))
	}
}

// operation names raw statements by their leading keyword
func operation(op, sql string) string {
	if op != "raw" && op != "row" {
		return op
	}
	keyword, _, _ := strings.Cut(strings.TrimSpace(sql), " ")
	switch k := strings.ToLower(keyword); k {
	case "select", "insert", "update", "delete", "with":
		return k
	default:
		return op
	}
}
