package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation        Code = "VALIDATION_ERROR"
	CodeUnauthorized      Code = "UNAUTHORIZED"
	CodeNotFound          Code = "NOT_FOUND"
	CodeInternal          Code = "INTERNAL_ERROR"
	CodeDependency        Code = "DEPENDENCY_ERROR"
	CodePermissionDenied  Code = "PERMISSION_DENIED"
	CodeNoActiveShift     Code = "NO_ACTIVE_SHIFT"
	CodeShiftAlreadyOpen  Code = "SHIFT_ALREADY_OPEN"
	CodeShiftClosed       Code = "SHIFT_CLOSED"
	CodeShiftNotFound     Code = "SHIFT_NOT_FOUND"
	CodeShiftEditLocked   Code = "SHIFT_CLOSED_FOR_EDITING"
	CodeInsufficientStock Code = "INSUFFICIENT_STOCK"
	CodeCreditLimit       Code = "CREDIT_LIMIT_EXCEEDED"
	CodeCustomerBlocked   Code = "CUSTOMER_BLOCKED"
	CodePeriodLocked      Code = "PERIOD_LOCKED"
	CodeVariance          Code = "RECONCILIATION_VARIANCE"
	CodeCashMismatch      Code = "CASH_DECLARATION_MISMATCH"
	CodeUnbalancedEntry   Code = "UNBALANCED_ENTRY"
	CodeUnknownAccount    Code = "UNKNOWN_ACCOUNT"
	CodeMeterRegression   Code = "METER_READING_REGRESSION"
)

type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		PublicMessage: "authentication required",
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "resource not found",
	},
	CodePermissionDenied: {
		HTTPStatus:     http.StatusForbidden,
		PublicMessage:  "permission denied",
		DetailsAllowed: true,
	},
	CodeNoActiveShift: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "no shift is currently open",
		DetailsAllowed: true,
	},
	CodeShiftAlreadyOpen: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "a shift is already open",
		DetailsAllowed: true,
	},
	CodeShiftClosed: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "shift is already closed",
		DetailsAllowed: true,
	},
	CodeShiftNotFound: {
		HTTPStatus:    http.StatusNotFound,
		PublicMessage: "shift not found",
	},
	CodeShiftEditLocked: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "readings on a closed shift cannot be edited",
		DetailsAllowed: true,
	},
	CodeInsufficientStock: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "insufficient stock",
		DetailsAllowed: true,
	},
	CodeCreditLimit: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "credit limit exceeded",
		DetailsAllowed: true,
	},
	CodeCustomerBlocked: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "customer account is blocked",
		DetailsAllowed: true,
	},
	CodePeriodLocked: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "accounting period is locked",
		DetailsAllowed: true,
	},
	CodeVariance: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "meter variance outside tolerance",
		DetailsAllowed: true,
	},
	CodeCashMismatch: {
		HTTPStatus:     http.StatusConflict,
		PublicMessage:  "declared cash does not match expected cash",
		DetailsAllowed: true,
	},
	CodeMeterRegression: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		PublicMessage:  "meter readings cannot decrease",
		DetailsAllowed: true,
	},
	CodeUnbalancedEntry: {
		HTTPStatus:    http.StatusInternalServerError,
		PublicMessage: "internal server error",
	},
	CodeUnknownAccount: {
		HTTPStatus:    http.StatusInternalServerError,
		PublicMessage: "internal server error",
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Retryable:     true,
		PublicMessage: "internal server error",
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// HasCode reports whether err carries the given domain code.
func HasCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}
