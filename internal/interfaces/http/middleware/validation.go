package middleware

import (
	"errors"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/ledger/backend/internal/domain/trade"
	"github.com/ledger/backend/internal/interfaces/http/dto"
)

var setupValidator sync.Once

// SetupValidator configures gin's validator: errors name fields by their
// JSON tag, and the queue_status, payment_method and date_range tags check
// ledger enums. Safe to call more than once.
func SetupValidator() {
	setupValidator.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				name = strings.SplitN(fld.Tag.Get("form"), ",", 2)[0]
			}
			return name
		})
		_ = v.RegisterValidation("queue_status", func(fl validator.FieldLevel) bool {
			_, err := trade.ParseQueueStatus(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("payment_method", func(fl validator.FieldLevel) bool {
			_, err := trade.ParsePaymentMethod(fl.Field().String())
			return err == nil
		})
		_ = v.RegisterValidation("date_range", func(fl validator.FieldLevel) bool {
			switch trade.QueueDateRange(strings.ToUpper(fl.Field().String())) {
			case trade.QueueDateAllTime, trade.QueueDateToday, trade.QueueDateYesterday,
				trade.QueueDateThisWeek, trade.QueueDateThisMonth, trade.QueueDateThisYear,
				trade.QueueDateCustom:
				return true
			}
			return false
		})
	})
}

// FormatValidationErrors formats binding errors into a standard response
func FormatValidationErrors(err error, requestID string) dto.Response {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return dto.NewErrorResponseWithRequestID(dto.ErrCodeInvalidJSON, "Request body is not valid JSON", requestID)
	}

	details := make([]dto.ValidationDetail, 0, len(validationErrors))
	for _, e := range validationErrors {
		details = append(details, dto.ValidationDetail{
			Field:   e.Field(),
			Message: getValidationMessage(e),
		})
	}
	return dto.NewValidationErrorResponse("Request validation failed", requestID, details)
}

// HandleValidationError answers 400 for a failed bind
func HandleValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, FormatValidationErrors(err, GetRequestID(c)))
}

func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "min":
		if e.Type().Kind() == reflect.String {
			return "Must be at least " + e.Param() + " characters"
		}
		return "Must be at least " + e.Param()
	case "max":
		if e.Type().Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must be at most " + e.Param()
	case "gte":
		return "Must be greater than or equal to " + e.Param()
	case "lte":
		return "Must be less than or equal to " + e.Param()
	case "gt":
		return "Must be greater than " + e.Param()
	case "oneof":
		return "Must be one of: " + e.Param()
	case "dive":
		return "Invalid item"
	case "queue_status":
		return "Must be one of: IN_QUEUE IN_PROCESS UNPAID COMPLETED"
	case "payment_method":
		return "Must be one of: CASH ACCOUNT_BALANCE"
	case "date_range":
		return "Must be one of: ALL_TIME TODAY YESTERDAY THIS_WEEK THIS_MONTH THIS_YEAR CUSTOM"
	default:
		return "Invalid value"
	}
}
