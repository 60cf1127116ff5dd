package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hugobelem/depoc/internal/models"
)

// ErrSweepInProgress is returned when another overdue sweep holds the lock.
var ErrSweepInProgress = errors.New("overdue sweep already in progress")

// ValidationError reports a request that is missing or has an invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConflictError reports an operation refused because of related records.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// DataError reports a value that could not be parsed, such as a malformed
// monetary amount.
type DataError struct {
	Field string
	Value string
	Err   error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("%s: invalid value %q: %v", e.Field, e.Value, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// parseAmount parses a positive amount with at most two decimal places.
func parseAmount(field string, in models.AmountInput) (decimal.Decimal, error) {
	raw := strings.TrimSpace(string(in))
	if raw == "" {
		return decimal.Zero, invalid(field, "is required")
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, &DataError{Field: field, Value: raw, Err: errors.New("not a decimal number")}
	}
	if !amount.Equal(amount.Round(2)) {
		return decimal.Zero, &DataError{Field: field, Value: raw, Err: errors.New("more than two decimal places")}
	}
	if !amount.IsPositive() {
		return decimal.Zero, invalid(field, "must be greater than zero")
	}
	return amount, nil
}

func parseDate(field, raw string) (time.Time, error) {
	t, err := time.Parse(models.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, invalid(field, "must be a date in YYYY-MM-DD format")
	}
	return t, nil
}

// parseOptionalDate returns fallback when raw is empty.
func parseOptionalDate(field, raw string, fallback time.Time) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return parseDate(field, raw)
}

// parseTimestamp accepts RFC 3339 timestamps and plain dates.
func parseTimestamp(field, raw string, fallback time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(models.DateLayout, raw); err == nil {
		return t, nil
	}
	return time.Time{}, invalid(field, "must be an RFC 3339 timestamp or a YYYY-MM-DD date")
}

var weekdays = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

func parseWeekday(raw string) (time.Weekday, error) {
	wd, ok := weekdays[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return 0, invalid("weekday", "must be a day of the week such as monday")
	}
	return wd, nil
}
