package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mauv0809/portfolio-tracker/internal/models"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

type accountForm struct {
	Name string `form:"account_name" validate:"required,max=255" label:"Account Name"`
	Type string `form:"account_type" validate:"required,account_type" label:"Account Type"`
}

type assetForm struct {
	Ticker string `form:"ticker" validate:"required,max=20" label:"Ticker Symbol"`
	Name   string `form:"asset_name" validate:"required,max=255" label:"Asset Name"`
	Class  string `form:"asset_class" validate:"required,asset_class" label:"Asset Class"`
}

type transactionForm struct {
	AccountID string `form:"account_id"`
	Type      string `form:"transaction_type" validate:"required,transaction_type" label:"Transaction Type"`
	Date      string `form:"transaction_date" validate:"required,datetime=2006-01-02" label:"Date"`
	Quantity  string `form:"quantity" validate:"required,decimal_gte=0.01" label:"Quantity"`
	Price     string `form:"price_per_unit" validate:"required,decimal_gte=0.01" label:"Price per Unit"`
}

type emailForm struct {
	Email string `form:"email" validate:"required,email,max=255" label:"Email"`
}

func (f *accountForm) normalize() {
	f.Name = strings.TrimSpace(f.Name)
}

func (f *assetForm) normalize() {
	f.Ticker = strings.ToUpper(strings.TrimSpace(f.Ticker))
	f.Name = strings.TrimSpace(f.Name)
}

func (f *emailForm) normalize() {
	f.Email = strings.TrimSpace(f.Email)
}

// transaction converts a validated form into a transaction on assetID.
func (f transactionForm) transaction(assetID int64) (models.Transaction, error) {
	typ, err := models.ParseTransactionType(f.Type)
	if err != nil {
		return models.Transaction{}, err
	}
	date, err := time.Parse(dateLayout, f.Date)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("parsing date: %w", err)
	}
	qty, err := decimal.NewFromString(f.Quantity)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("parsing quantity: %w", err)
	}
	price, err := decimal.NewFromString(f.Price)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("parsing price: %w", err)
	}
	return models.NewTransaction(assetID, typ, date, qty, price), nil
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		if label := fld.Tag.Get("label"); label != "" {
			return label
		}
		return fld.Name
	})

	mustRegister(v, "account_type", func(fl validator.FieldLevel) bool {
		return contains(models.AccountTypes, models.AccountType(fl.Field().String()))
	})
	mustRegister(v, "asset_class", func(fl validator.FieldLevel) bool {
		return contains(models.AssetClasses, models.AssetClass(fl.Field().String()))
	})
	mustRegister(v, "transaction_type", func(fl validator.FieldLevel) bool {
		_, err := models.ParseTransactionType(fl.Field().String())
		return err == nil
	})
	mustRegister(v, "decimal_gte", func(fl validator.FieldLevel) bool {
		value, err := decimal.NewFromString(fl.Field().String())
		if err != nil {
			return false
		}
		limit, err := decimal.NewFromString(fl.Param())
		if err != nil {
			return false
		}
		return value.GreaterThanOrEqual(limit)
	})

	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("registering %s validation: %v", tag, err))
	}
}

func contains[T comparable](values []T, v T) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// describeValidation turns validator errors into a message fit for a flash.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s characters", field, fe.Param()))
		case "email":
			msgs = append(msgs, field+" must be a valid email address")
		case "datetime":
			msgs = append(msgs, field+" must be a date (YYYY-MM-DD)")
		case "decimal_gte":
			msgs = append(msgs, fmt.Sprintf("%s must be a number of at least %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s has an invalid value", field))
		}
	}
	return strings.Join(msgs, "; ") + "."
}
