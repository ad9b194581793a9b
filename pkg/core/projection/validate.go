package projection

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidParameters is wrapped by every ValidationError.
var ErrInvalidParameters = errors.New("invalid simulation parameters")

// Upper bounds accepted by Validate. At these limits every emitted amount,
// including the cumulative totals over MaxMonths, stays a finite float64.
const (
	MaxMonths    = 1200
	MaxCustomers = 1e9
	MaxPrice     = 1e7
)

// FieldError describes one rejected parameter
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError lists every parameter that violates its constraint.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+" "+f.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidParameters, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidParameters
}

// Validate checks the preconditions of Project.
func (p Parameters) Validate() error {
	var fields []FieldError
	add := func(field, reason string) {
		fields = append(fields, FieldError{Field: field, Reason: reason})
	}

	checkFinite := func(field string, v float64) bool {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			add(field, "must be a finite number")
			return false
		}
		return true
	}

	tooLarge := func(limit float64) string {
		return "must be <= " + strconv.FormatFloat(limit, 'f', -1, 64)
	}

	switch {
	case !checkFinite("starting_customers", p.StartingCustomers):
	case p.StartingCustomers < 0:
		add("starting_customers", "must be >= 0")
	case p.StartingCustomers > MaxCustomers:
		add("starting_customers", tooLarge(MaxCustomers))
	}
	switch {
	case !checkFinite("monthly_new_customers", p.MonthlyNewCustomers):
	case p.MonthlyNewCustomers < 0:
		add("monthly_new_customers", "must be >= 0")
	case p.MonthlyNewCustomers > MaxCustomers:
		add("monthly_new_customers", tooLarge(MaxCustomers))
	}
	switch {
	case !checkFinite("price_per_customer", p.PricePerCustomer):
	case p.PricePerCustomer <= 0:
		add("price_per_customer", "must be > 0")
	case p.PricePerCustomer > MaxPrice:
		add("price_per_customer", tooLarge(MaxPrice))
	}
	if checkFinite("churn_rate_percent", p.ChurnRatePercent) && (p.ChurnRatePercent < 0 || p.ChurnRatePercent > 100) {
		add("churn_rate_percent", "must be between 0 and 100")
	}
	if p.Months < 0 {
		add("months", "must be >= 0")
	} else if p.Months > MaxMonths {
		add("months", "must be <= "+strconv.Itoa(MaxMonths))
	}
	switch {
	case !checkFinite("one_time_sale_price", p.OneTimeSalePrice):
	case p.OneTimeSalePrice <= 0:
		add("one_time_sale_price", "must be > 0")
	case p.OneTimeSalePrice > MaxPrice:
		add("one_time_sale_price", tooLarge(MaxPrice))
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// Fingerprint returns a stable hash identifying this exact parameter tuple.
func (p Parameters) Fingerprint() string {
	f := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	key := strings.Join([]string{
		f(p.StartingCustomers),
		f(p.MonthlyNewCustomers),
		f(p.PricePerCustomer),
		f(p.ChurnRatePercent),
		strconv.Itoa(p.Months),
		f(p.OneTimeSalePrice),
	}, "|")
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
