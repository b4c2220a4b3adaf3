// Package billing holds the pathology invoice rules: line and invoice
// totals, duplicate detection, payment status, edit locks and the audit
// diff. Nothing here performs I/O.
package billing

import (
	"PathLab/apperrors"
)

func sentinel(kind apperrors.Kind, msg string) *apperrors.Error {
	return &apperrors.Error{Kind: kind, Message: msg}
}

var (
	ErrInvalidQuantity      = sentinel(apperrors.KindValidation, "quantity must be at least 1")
	ErrNegativeDiscount     = sentinel(apperrors.KindValidation, "discount cannot be negative")
	ErrNegativePrice        = sentinel(apperrors.KindValidation, "price cannot be negative")
	ErrEmptyTestName        = sentinel(apperrors.KindValidation, "test name is required")
	ErrInvalidPaymentAmount = sentinel(apperrors.KindValidation, "payment amount must be greater than zero")
	ErrUnknownPolicy        = sentinel(apperrors.KindValidation, "unknown net payable policy")

	ErrDuplicateTest       = sentinel(apperrors.KindConflict, "test already added to this booking")
	ErrPaymentExceedsTotal = sentinel(apperrors.KindConflict, "paid amount cannot exceed total amount")
	ErrTotalBelowPaid      = sentinel(apperrors.KindConflict, "total amount cannot drop below the amount already paid")
	ErrTestNotInBooking    = sentinel(apperrors.KindNotFound, "test is not part of this booking")

	ErrHardLocked = sentinel(apperrors.KindLocked, "invoice is locked: a report has been generated")
	ErrSoftLocked = sentinel(apperrors.KindLocked, "invoice is locked: registration exists and editing is not allowed")
)
