// errors.go
package model

import "errors"

// Kind clasifica los errores de negocio para decidir el código HTTP.
type Kind string

const (
	KindNotFound   Kind = "not_found"
	KindConflict   Kind = "conflict"
	KindValidation Kind = "validation"
	KindForbidden  Kind = "forbidden"
	KindUnexpected Kind = "unexpected"
)

// Error es un error de negocio con su categoría. Se compara por identidad con errors.Is.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newError(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Errores de negocio exportados (los usa el controller)
var (
	ErrProductNotFound  = newError(KindNotFound, "product not found")
	ErrCartNotFound     = newError(KindNotFound, "cart not found")
	ErrLineNotFound     = newError(KindNotFound, "item not found in cart")
	ErrOrderNotFound    = newError(KindNotFound, "order not found")
	ErrPaymentNotFound  = newError(KindNotFound, "payment not found")
	ErrDeliveryNotFound = newError(KindNotFound, "delivery not found")

	ErrDuplicatePayment  = newError(KindConflict, "payment already exists for this order")
	ErrDuplicateDelivery = newError(KindConflict, "delivery already exists for this order")
	ErrDuplicateCart     = newError(KindConflict, "cart already exists for this user")
	ErrDuplicateTracking = newError(KindConflict, "tracking number already in use")
	ErrDuplicateTxn      = newError(KindConflict, "transaction id already in use")
	ErrAlreadyProcessed  = newError(KindConflict, "payment already processed")
	ErrPaymentInProgress = newError(KindConflict, "payment is being processed")
	ErrVersionConflict   = newError(KindConflict, "document was modified concurrently")

	ErrOutOfStock          = newError(KindValidation, "insufficient stock")
	ErrEmptyCart           = newError(KindValidation, "cart is empty")
	ErrInvalidQuantity     = newError(KindValidation, "quantity must be at least 1")
	ErrInvalidAddress      = newError(KindValidation, "shipping address requires street, city, state, zipCode, country and phone")
	ErrAmountMismatch      = newError(KindValidation, "payment amount does not match order total")
	ErrItemsPriceMismatch  = newError(KindValidation, "items price does not match order items")
	ErrRefundExceedsAmount = newError(KindValidation, "refund amount cannot exceed payment amount")
	ErrNotCompleted        = newError(KindValidation, "can only refund completed payments")
	ErrInvalidTransition   = newError(KindValidation, "invalid status transition")
	ErrInvalidStatus       = newError(KindValidation, "unknown status")
	ErrInvalidAmount       = newError(KindValidation, "amount must be between 0 and 999999999.99 with at most two decimals")
	ErrInvalidPayment      = newError(KindValidation, "invalid payment method or card details")
	ErrInvalidDelivery     = newError(KindValidation, "invalid delivery details")
	ErrOrderCancelled      = newError(KindValidation, "order is cancelled")
	ErrPaymentDeclined     = newError(KindValidation, "payment declined")

	ErrForbidden = newError(KindForbidden, "forbidden")
)

// KindOf devuelve la categoría del error; cualquier error ajeno al dominio es Unexpected.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnexpected
}
