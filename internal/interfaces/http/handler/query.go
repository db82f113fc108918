package handler

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/gin-gonic/gin"
	"github.com/ledger/backend/internal/application/listing"
	"github.com/ledger/backend/internal/domain/shared"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Filter inputs are coerced leniently: a present but unparsable number is
// read as zero, an absent one leaves the bound open.

func int64Bound(c *gin.Context, key string) *int64 {
	v, ok := c.GetQuery(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	n := cast.ToInt64(strings.TrimSpace(v))
	return &n
}

func decimalBound(c *gin.Context, key string) *decimal.Decimal {
	v, ok := c.GetQuery(key)
	if !ok || strings.TrimSpace(v) == "" {
		return nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		d = decimal.Zero
	}
	return &d
}

func int64Range(c *gin.Context, minKey, maxKey string) listing.Range[int64] {
	return listing.Range[int64]{Min: int64Bound(c, minKey), Max: int64Bound(c, maxKey)}
}

func decimalRange(c *gin.Context, minKey, maxKey string) listing.Range[decimal.Decimal] {
	return listing.Range[decimal.Decimal]{Min: decimalBound(c, minKey), Max: decimalBound(c, maxKey)}
}

// int64List reads a comma separated id list; repeated keys are merged and
// non-positive entries dropped
func int64List(c *gin.Context, key string) []int64 {
	var out []int64
	for _, raw := range c.QueryArray(key) {
		for _, part := range strings.Split(raw, ",") {
			if id := cast.ToInt64(strings.TrimSpace(part)); id > 0 {
				out = append(out, id)
			}
		}
	}
	return out
}

func boolParam(c *gin.Context, key string, def bool) bool {
	v, ok := c.GetQuery(key)
	if !ok || v == "" {
		return def
	}
	return cast.ToBool(v)
}

// sortMethod reads sort and asc. An unknown key falls back to def.
func sortMethod[K ~string](c *gin.Context, def listing.SortMethod[K], keys ...K) listing.SortMethod[K] {
	m := def
	if by := K(strings.ToUpper(c.Query("sort"))); by != "" {
		for _, k := range keys {
			if k == by {
				m.By = by
				break
			}
		}
	}
	m.Ascending = boolParam(c, "asc", def.Ascending)
	return m
}

// queueDate reads range, start and end. CUSTOM needs both start and end,
// in any layout dateparse understands, read in the clock's zone. A date
// without time of day makes end inclusive of that whole day.
func queueDate(c *gin.Context, clock shared.Clock, def trade.QueueDateRange) (trade.QueueDate, error) {
	r := trade.QueueDateRange(strings.ToUpper(c.DefaultQuery("range", string(def))))
	if r != trade.QueueDateCustom {
		return trade.NewQueueDate(r, clock)
	}

	loc := clock.Location()
	start, err := dateparse.ParseIn(c.Query("start"), loc)
	if err != nil {
		return trade.QueueDate{}, shared.NewDomainError(shared.CodeOutOfRange, "Invalid start date")
	}
	endRaw := c.Query("end")
	end, err := dateparse.ParseIn(endRaw, loc)
	if err != nil {
		return trade.QueueDate{}, shared.NewDomainError(shared.CodeOutOfRange, "Invalid end date")
	}
	if isDateOnly(end) {
		end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return trade.NewCustomQueueDate(start, end)
}

func isDateOnly(t time.Time) bool {
	return t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// parseDate reads a request date, or returns now when raw is empty
func parseDate(raw string, clock shared.Clock) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return clock.Now(), nil
	}
	t, err := dateparse.ParseIn(raw, clock.Location())
	if err != nil {
		return time.Time{}, shared.NewDomainError(shared.CodeOutOfRange, "Invalid date: "+raw)
	}
	return t, nil
}
