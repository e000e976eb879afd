package service

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidCurrencyCode indicates a currency code is not a 3-letter code.
var ErrInvalidCurrencyCode = errors.New("invalid currency code format")

// ErrInvalidClientID indicates the client id is not a valid UUID.
var ErrInvalidClientID = errors.New("invalid client id")

// ErrInvalidAmount indicates the operation amount is not positive.
var ErrInvalidAmount = errors.New("amount must be positive")

// ErrNotFound indicates the requested resource was not found.
var ErrNotFound = errors.New("not found")

// ErrInternal indicates an internal server error.
var ErrInternal = errors.New("internal error")

// ErrProviderUnavailable indicates the external rate provider failed.
var ErrProviderUnavailable = errors.New("rate provider unavailable")

// IsValidCurrencyCode checks whether a string is a valid 3-letter currency code.
func IsValidCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	code = strings.ToUpper(code)
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

func normalizePair(from, to string) (normFrom, normTo string, err error) {
	if !IsValidCurrencyCode(from) || !IsValidCurrencyCode(to) {
		return "", "", ErrInvalidCurrencyCode
	}
	return strings.ToUpper(from), strings.ToUpper(to), nil
}

// MonthOf truncates a timestamp to the first instant of its calendar month in UTC.
func MonthOf(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), 1, 0, 0, 0, 0, time.UTC)
}
