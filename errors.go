package tribunal

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure scenarios.
var (
	// General errors
	ErrNotFound     = errors.New("tribunal: not found")
	ErrInvalidInput = errors.New("tribunal: invalid input")

	// Tenant errors
	ErrTenantNotFound  = errors.New("tribunal: tenant not found")
	ErrDuplicateTenant = errors.New("tribunal: tenant already exists")
	ErrTenantInactive  = errors.New("tribunal: tenant is inactive")
	ErrUnknownPlan     = errors.New("tribunal: unknown plan")

	// Entitlement errors
	ErrQuotaExceeded      = errors.New("tribunal: quota exceeded")
	ErrFeatureNotEntitled = errors.New("tribunal: feature not entitled")

	// Decision errors
	ErrDecisionNotFound  = errors.New("tribunal: decision not found")
	ErrDecisionTerminal  = errors.New("tribunal: decision already terminal")
	ErrReviewPending     = errors.New("tribunal: decision awaiting human review")
	ErrNotAwaitingReview = errors.New("tribunal: decision not awaiting review")
	ErrModuleUnavailable = errors.New("tribunal: mandatory module unavailable")
	ErrCanceled          = errors.New("tribunal: decision canceled")

	// Analysis errors
	ErrAnalysisNotFound = errors.New("tribunal: analysis not found")

	// Ledger errors
	ErrChainIntegrity = errors.New("tribunal: audit chain integrity violation")
	ErrChainHalted    = errors.New("tribunal: audit chain halted")
	ErrAppendFailed   = errors.New("tribunal: audit append failed")

	// Store errors
	ErrStoreNotReady     = errors.New("tribunal: store not ready")
	ErrStoreClosed       = errors.New("tribunal: store is closed")
	ErrTransactionFailed = errors.New("tribunal: transaction failed")
	ErrMigrationFailed   = errors.New("tribunal: migration failed")
)

// ValidationError represents a validation failure with details.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("tribunal: validation failed for %s: %s", e.Field, e.Message)
}

// IsNotFound returns true if the error is a not found error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrTenantNotFound) ||
		errors.Is(err, ErrDecisionNotFound) ||
		errors.Is(err, ErrAnalysisNotFound)
}

// IsEntitlementError returns true if the error is related to quota or
// feature entitlement.
func IsEntitlementError(err error) bool {
	return errors.Is(err, ErrQuotaExceeded) ||
		errors.Is(err, ErrFeatureNotEntitled) ||
		errors.Is(err, ErrTenantInactive)
}

// IsRetryable returns true if the error is temporary and the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreNotReady) ||
		errors.Is(err, ErrTransactionFailed) ||
		errors.Is(err, ErrAppendFailed)
}
