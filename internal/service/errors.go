// Package service holds the canteen business rules: order placement, roles,
// reports, stock arithmetic and settings. Handlers translate its errors into
// HTTP responses.
package service

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned to clients in the "code" field.
const (
	CodeNoProducts          = "NO_PRODUCTS"
	CodeInvalidProduct      = "INVALID_PRODUCT"
	CodeProductUnavailable  = "PRODUCT_UNAVAILABLE"
	CodeInsufficientStock   = "INSUFFICIENT_STOCK"
	CodeOrderingDisabled    = "ORDERING_DISABLED"
	CodeTooManyItems        = "TOO_MANY_ITEMS"
	CodeInvalidPayment      = "INVALID_PAYMENT_METHOD"
	CodeTheaterIDRequired   = "THEATER_ID_REQUIRED"
	CodeAccessDenied        = "ACCESS_DENIED"
	CodeNoDataAccess        = "NO_DATA_ACCESS"
	CodeOrderNotFound       = "ORDER_NOT_FOUND"
	CodeInvalidStatus       = "INVALID_STATUS"
	CodeDuplicateQRCodeName = "DUPLICATE_QR_CODE_NAME"
	CodeDefaultRoleUpdate   = "DEFAULT_ROLE_PROTECTED"
	CodeInvalidSettings     = "INVALID_SETTINGS"
	CodeInvalidDate         = "INVALID_DATE"
)

// BusinessError is a rule violation the client can act on.
type BusinessError struct {
	Code    string
	Message string
	Status  int
	Details map[string]any
}

func (e *BusinessError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func badRequest(code, format string, args ...any) *BusinessError {
	return &BusinessError{Code: code, Message: fmt.Sprintf(format, args...), Status: http.StatusBadRequest}
}

func forbidden(code, message string) *BusinessError {
	return &BusinessError{Code: code, Message: message, Status: http.StatusForbidden}
}

// AsBusiness unwraps err into a BusinessError when it is one.
func AsBusiness(err error) (*BusinessError, bool) {
	var be *BusinessError
	if errors.As(err, &be) {
		return be, true
	}
	return nil, false
}
