package ledger

import (
	"github.com/pkg/errors"
	"max.ks1230/spending-tracker/internal/model/storage"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrCategoryExists = errors.New("category name already exists")
	ErrNotFound       = storage.ErrNotFound
)

const (
	fillAllFieldsMessage   = "Please fill all fields"
	amountMessage          = "The amount must be a number greater than 0"
	expenseNameLongMessage = "The expense name must not exceed 30 characters"
	futureDateMessage      = "The date must not be in the future"
	unknownCategoryMessage = "The category does not exist"
	completeFieldsMessage  = "Please complete all fields"
	enterBudgetMessage     = "Please enter the budget"
	budgetNumberMessage    = "The budget must be a number not lower than 0"
	budgetDigitsMessage    = "Please enter budget amount less than or equal to 8 digits"
	enterNicknameMessage   = "Please enter a nickname"
	nicknameSpacesMessage  = "Please do not enter spaces for your username"
	nicknameTooLongMessage = "Your nickname must not exceed 20 characters"
)

// ValidationError carries a message meant for the person who typed the input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
