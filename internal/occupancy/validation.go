package occupancy

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/stanstork/nestpay-api/internal/models"
)

const (
	defaultCountry  = "Uganda"
	defaultUnitType = "standard"
	// amountScale matches the NUMERIC(14,2) money columns.
	amountScale = 2
)

var (
	joinCodePattern = regexp.MustCompile(`^[A-Za-z0-9-]+$`)
	maxAmount       = decimal.NewFromInt(100_000_000)
	validate        = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	// Money is validated as its canonical decimal string.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if d, ok := field.Interface().(decimal.Decimal); ok {
			return d.String()
		}
		return nil
	}, decimal.Decimal{})

	mustRegister(v, "joincode", func(fl validator.FieldLevel) bool {
		return joinCodePattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "positive", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.IsPositive()
	})
	mustRegister(v, "maxamount", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.LessThanOrEqual(maxAmount)
	})
	mustRegister(v, "cents", func(fl validator.FieldLevel) bool {
		d, err := decimal.NewFromString(fl.Field().String())
		return err == nil && d.Equal(d.Round(amountScale))
	})
	return v
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(err)
	}
}

// check runs the struct rules and reports the first failure as a ValidationError.
func check(in interface{}) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}
	fe := fieldErrs[0]
	return invalid(fe.Field(), "%s", describe(fe))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		if fe.Kind() == reflect.String {
			return field + " must be at most " + fe.Param() + " characters"
		}
		return field + " must be at most " + fe.Param()
	case "min":
		return field + " must be at least " + fe.Param()
	case "uuid":
		return field + " must be a UUID"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "iso4217":
		return field + " must be a 3-letter currency code"
	case "joincode":
		return field + " may only contain letters, digits and dashes"
	case "positive":
		return field + " must be greater than zero"
	case "maxamount":
		return field + " must not exceed " + maxAmount.String()
	case "cents":
		return field + " must have at most two decimal places"
	default:
		return field + " is invalid"
	}
}

type JoinRequestInput struct {
	TenantID string  `json:"-"`
	JoinCode string  `json:"join_code" validate:"required,max=50,joincode"`
	UnitID   *string `json:"unit_id,omitempty" validate:"omitempty,uuid"`
	Message  *string `json:"message,omitempty" validate:"omitempty,max=1000"`
}

func (in JoinRequestInput) normalize() (JoinRequestInput, error) {
	in.JoinCode = strings.TrimSpace(in.JoinCode)
	in.UnitID = trimmedOrNil(in.UnitID)
	in.Message = trimmedOrNil(in.Message)
	return in, check(in)
}

type PaymentInput struct {
	TenantID       string               `json:"-"`
	PropertyID     string               `json:"property_id" validate:"required,uuid"`
	UnitID         *string              `json:"unit_id,omitempty" validate:"omitempty,uuid"`
	Amount         decimal.Decimal      `json:"amount" validate:"positive,maxamount,cents"`
	Currency       string               `json:"currency" validate:"required,iso4217"`
	Method         models.PaymentMethod `json:"method" validate:"required,oneof=manual online"`
	Provider       *string              `json:"provider,omitempty"`
	DurationMonths int                  `json:"duration_months,omitempty" validate:"min=1,max=24"`
}

func (in PaymentInput) normalize() (PaymentInput, error) {
	in.PropertyID = strings.TrimSpace(in.PropertyID)
	in.UnitID = trimmedOrNil(in.UnitID)
	in.Currency = strings.ToUpper(strings.TrimSpace(in.Currency))
	if in.Currency == "" {
		in.Currency = models.DefaultCurrency
	}
	in.Provider = trimmedOrNil(in.Provider)
	if in.DurationMonths == 0 {
		in.DurationMonths = 1
	}
	if err := check(in); err != nil {
		return in, err
	}

	if in.Method == models.PaymentOnline && in.Provider == nil {
		return in, invalid("provider", "provider is required for online payments")
	}
	if in.Method == models.PaymentManual && in.Provider != nil {
		return in, invalid("provider", "provider is only allowed for online payments")
	}
	return in, nil
}

type PropertyInput struct {
	Title        string          `json:"title" validate:"required,max=200"`
	Description  *string         `json:"description,omitempty" validate:"omitempty,max=2000"`
	Address      *string         `json:"address,omitempty" validate:"omitempty,max=500"`
	City         *string         `json:"city,omitempty" validate:"omitempty,max=100"`
	Region       *string         `json:"region,omitempty" validate:"omitempty,max=100"`
	Country      string          `json:"country,omitempty" validate:"required,max=100"`
	RentAmount   decimal.Decimal `json:"rent_amount" validate:"positive,maxamount,cents"`
	RentCurrency string          `json:"rent_currency,omitempty" validate:"required,iso4217"`
	RentDueDay   *int            `json:"rent_due_day,omitempty" validate:"omitempty,min=1,max=31"`
}

// Normalize trims and validates property input, filling defaults.
func (in PropertyInput) Normalize() (PropertyInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = trimmedOrNil(in.Description)
	in.Address = trimmedOrNil(in.Address)
	in.City = trimmedOrNil(in.City)
	in.Region = trimmedOrNil(in.Region)
	in.Country = strings.TrimSpace(in.Country)
	if in.Country == "" {
		in.Country = defaultCountry
	}
	in.RentCurrency = strings.ToUpper(strings.TrimSpace(in.RentCurrency))
	if in.RentCurrency == "" {
		in.RentCurrency = models.DefaultCurrency
	}
	return in, check(in)
}

type UnitInput struct {
	Label       string           `json:"label" validate:"required,max=100"`
	UnitType    string           `json:"unit_type,omitempty" validate:"required"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=500"`
	RentAmount  *decimal.Decimal `json:"rent_amount,omitempty" validate:"omitempty,positive,maxamount,cents"`
}

func (in UnitInput) Normalize() (UnitInput, error) {
	in.Label = strings.TrimSpace(in.Label)
	in.UnitType = strings.TrimSpace(in.UnitType)
	if in.UnitType == "" {
		in.UnitType = defaultUnitType
	}
	in.Description = trimmedOrNil(in.Description)
	return in, check(in)
}

type ReviewInput struct {
	Rating  int     `json:"rating" validate:"min=1,max=5"`
	Comment *string `json:"comment,omitempty" validate:"omitempty,max=2000"`
}

func (in ReviewInput) Normalize() (ReviewInput, error) {
	in.Comment = trimmedOrNil(in.Comment)
	return in, check(in)
}

// ProfileInput carries the editable profile fields.
type ProfileInput struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,max=200"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=20"`
}

func (in ProfileInput) Normalize() (ProfileInput, error) {
	in.FullName = trimmedOrNil(in.FullName)
	in.Phone = trimmedOrNil(in.Phone)
	return in, check(in)
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
