// Package errors provides custom error types for CRM operations.
package errors

import "errors"

// Codes carried by ValidationError. Handlers and the mutation engine
// branch on these rather than on message text.
const (
	CodeMissingField     = "missing_field"
	CodeInvalidEmail     = "invalid_email"
	CodeDuplicateEmail   = "duplicate_email"
	CodeInvalidPhone     = "invalid_phone"
	CodeInvalidPrice     = "invalid_price"
	CodeInvalidStock     = "invalid_stock"
	CodeInvalidCustomer  = "invalid_customer"
	CodeEmptyProductList = "empty_product_list"
	CodeInvalidProduct   = "invalid_product"
)

// ValidationError reports bad caller input: field format, positivity,
// uniqueness or a dangling reference. It never indicates a store failure.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a ValidationError with the given code and message.
func NewValidationError(code, message string) *ValidationError {
	return &ValidationError{Code: code, Message: message}
}

// AsValidation unwraps err into a *ValidationError if it is one.
func AsValidation(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	ok := errors.As(err, &vErr)
	return vErr, ok
}

var ErrCustomerNotFound = errors.New("customer not found")
var ErrProductNotFound = errors.New("product not found")
var ErrOrderNotFound = errors.New("order not found")

var ErrCreateCustomer = errors.New("failed to create customer")
var ErrCreateProduct = errors.New("failed to create product")
var ErrCreateOrder = errors.New("failed to create order")

var ErrTransactionBegin = errors.New("failed to begin transaction")
var ErrTransactionCommit = errors.New("failed to commit transaction")
var ErrTransactionRollback = errors.New("failed to rollback transaction")
