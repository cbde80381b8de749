package services

import (
	"errors"
	"fmt"
)

// Shared service-level errors. Handlers map these onto HTTP statuses.
var (
	ErrMobileExists       = errors.New("mobile number already registered")
	ErrWhatsAppExists     = errors.New("a customer with this WhatsApp number already exists for this vendor")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account is disabled")
	ErrNotOwned           = errors.New("resource does not belong to this vendor")
	ErrNoRecords          = errors.New("no records found for this month")
	ErrOverpayment        = errors.New("payment amount exceeds remaining balance")
	ErrInvalidUpiID       = errors.New("invalid UPI ID")
	ErrInvalidPeriod      = errors.New("period must be one of: today, week, month, all")
)

// StoreError reports a Record Store failure during payment allocation.
// Updates already applied before the failure stand; Updated tells the
// caller how many, so it can surface partial progress and re-query.
type StoreError struct {
	Updated int
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("record store failed after %d update(s): %v", e.Updated, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}
