package services

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"posledger/internal/core"
)

// TransactionRequest is the raw form input for a transaction. Amounts stay
// strings until validated so a comma decimal separator can be accepted.
type TransactionRequest struct {
	Type       string `json:"type" validate:"required,oneof=deposit withdrawal"`
	Amount     string `json:"amount" validate:"required"`
	Charge     string `json:"charge" validate:"required"`
	ChargeMode string `json:"chargeMode" validate:"required,oneof=from_account cash"`
}

// ValidationHelper wraps a validator configured to report JSON field names.
type ValidationHelper struct {
	validator *validator.Validate
}

func NewValidationHelper() *ValidationHelper {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &ValidationHelper{validator: v}
}

func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// Details maps each failing field to a short description. Errors that are
// not validator errors yield nil.
func Details(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fmt.Sprintf("failed on '%s'", fe.Tag())
	}
	return details
}

// Parse normalises and validates the request into a transaction without id
// or timestamp. Every failure wraps core.ErrValidation.
func (vh *ValidationHelper) Parse(req TransactionRequest) (core.Transaction, error) {
	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	req.ChargeMode = strings.ToLower(strings.TrimSpace(req.ChargeMode))
	req.Amount = strings.TrimSpace(req.Amount)
	req.Charge = strings.TrimSpace(req.Charge)

	if err := vh.ValidateStruct(&req); err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", core.ErrValidation, err)
	}
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", core.ErrValidation, err)
	}
	charge, err := core.ParseCharge(req.Charge)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("%w: %w", core.ErrValidation, err)
	}
	return core.Transaction{
		Type:       core.TransactionType(req.Type),
		Amount:     amount,
		Charge:     charge,
		ChargeMode: core.ChargeMode(req.ChargeMode),
	}, nil
}
