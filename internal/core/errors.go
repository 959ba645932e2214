package core

import (
	"errors"
	"fmt"
)

// ValidationError reports caller input that violates a business rule. Never retried.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Message)
}

// NotFoundError reports a referenced record that does not exist.
type NotFoundError struct {
	Kind string // "item", "purchase", "project", "tracking record"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ConfigurationError reports item master data missing a parameter an operation requires.
type ConfigurationError struct {
	ItemID  string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("item %s misconfigured: %s", e.ItemID, e.Message)
}

// LedgerCommitError reports that a ledger batch could not be committed.
// No bucket change from the batch was applied; the whole operation may be retried.
type LedgerCommitError struct {
	Err error
}

func (e *LedgerCommitError) Error() string {
	return fmt.Sprintf("ledger batch not committed: %v", e.Err)
}

func (e *LedgerCommitError) Unwrap() error { return e.Err }

// ReceiptProcessingError wraps any failure after validation while receiving a purchase.
// No units were minted and no counters advanced.
type ReceiptProcessingError struct {
	PurchaseID string
	Err        error
}

func (e *ReceiptProcessingError) Error() string {
	if e.PurchaseID == "" {
		return fmt.Sprintf("purchase receipt failed: %v", e.Err)
	}
	return fmt.Sprintf("purchase %s receipt failed: %v", e.PurchaseID, e.Err)
}

func (e *ReceiptProcessingError) Unwrap() error { return e.Err }

// ErrorCode returns the stable machine-readable code for err, used by adapters and metrics.
func ErrorCode(err error) string {
	if err == nil {
		return "ok"
	}
	var (
		validationErr *ValidationError
		notFoundErr   *NotFoundError
		configErr     *ConfigurationError
		commitErr     *LedgerCommitError
		receiptErr    *ReceiptProcessingError
	)
	switch {
	case errors.As(err, &validationErr):
		return "VALIDATION"
	case errors.As(err, &notFoundErr):
		return "NOT_FOUND"
	case errors.As(err, &configErr):
		return "CONFIGURATION"
	case errors.As(err, &commitErr):
		return "LEDGER_COMMIT"
	case errors.As(err, &receiptErr):
		return "RECEIPT_FAILED"
	}
	return "INTERNAL"
}

// isDomainError reports whether err already belongs to the taxonomy and must reach the caller as-is.
func isDomainError(err error) bool {
	var (
		validationErr *ValidationError
		notFoundErr   *NotFoundError
		configErr     *ConfigurationError
		commitErr     *LedgerCommitError
	)
	return errors.As(err, &validationErr) || errors.As(err, &notFoundErr) ||
		errors.As(err, &configErr) || errors.As(err, &commitErr)
}
