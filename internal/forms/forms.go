// Package forms parses submitted form payloads into typed values and
// validates them without touching any data store. Handlers re-render the
// originating template with FieldErrors when validation fails and only hand
// validated values to a service on success.
package forms

import (
	"net/url"
	"strconv"

	"bazaar/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Validator instance shared by all forms
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// FieldErrors maps a form field name to a human-readable message
type FieldErrors map[string]string

// Valid reports whether the form passed validation
func (e FieldErrors) Valid() bool {
	return len(e) == 0
}

// SignupForm is the registration payload
type SignupForm struct {
	Username  string `validate:"required,min=3,max=150"`
	Email     string `validate:"required,email"`
	Password1 string `validate:"required,min=8"`
	Password2 string `validate:"required,eqfield=Password1"`
}

// LoginForm is the authentication payload
type LoginForm struct {
	Username string `validate:"required"`
	Password string `validate:"required"`
}

// ItemForm is the new/edit listing payload
type ItemForm struct {
	CategoryID  uuid.UUID `validate:"required"`
	Name        string    `validate:"required,max=255"`
	Description string    `validate:"max=5000"`
	Price       float64   `validate:"gte=0"`
	Stock       int       `validate:"gte=0"`
	IsSold      bool
	ImageURL    string `validate:"omitempty,url,max=500"`
}

// ParseSignup extracts and validates a registration form
func ParseSignup(values url.Values) (SignupForm, FieldErrors) {
	form := SignupForm{
		Username:  values.Get("username"),
		Email:     values.Get("email"),
		Password1: values.Get("password1"),
		Password2: values.Get("password2"),
	}
	return form, check(form)
}

// ParseLogin extracts and validates a login form
func ParseLogin(values url.Values) (LoginForm, FieldErrors) {
	form := LoginForm{
		Username: values.Get("username"),
		Password: values.Get("password"),
	}
	return form, check(form)
}

// ParseItem extracts and validates a listing form. Malformed numbers and an
// unparseable category are reported as field errors, not parse failures.
func ParseItem(values url.Values) (ItemForm, FieldErrors) {
	form := ItemForm{
		Name:        values.Get("name"),
		Description: values.Get("description"),
		IsSold:      values.Get("is_sold") == "on" || values.Get("is_sold") == "true",
		ImageURL:    values.Get("image_url"),
	}

	errs := FieldErrors{}

	categoryID, err := uuid.Parse(values.Get("category"))
	if err != nil {
		errs["category"] = "Choose a valid category"
	}
	form.CategoryID = categoryID

	if raw := values.Get("price"); raw == "" {
		errs["price"] = "This field is required"
	} else if price, err := strconv.ParseFloat(raw, 64); err != nil {
		errs["price"] = "Enter a valid price"
	} else {
		form.Price = price
	}

	if raw := values.Get("stock"); raw == "" {
		errs["stock"] = "This field is required"
	} else if stock, err := strconv.Atoi(raw); err != nil {
		errs["stock"] = "Enter a whole number"
	} else {
		form.Stock = stock
	}

	for field, message := range check(form) {
		if _, taken := errs[field]; !taken {
			errs[field] = message
		}
	}

	return form, errs
}

// Input converts a validated listing form into a service input
func (f ItemForm) Input() service.ListingInput {
	return service.ListingInput{
		CategoryID:  f.CategoryID,
		Name:        f.Name,
		Description: f.Description,
		Price:       f.Price,
		Stock:       f.Stock,
		IsSold:      f.IsSold,
		ImageURL:    f.ImageURL,
	}
}

// check runs struct validation and maps violations to form field names
func check(form interface{}) FieldErrors {
	errs := FieldErrors{}

	err := validate.Struct(form)
	if err == nil {
		return errs
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["form"] = "Invalid submission"
		return errs
	}

	for _, e := range validationErrors {
		field := fieldName(e.Field())
		if _, taken := errs[field]; !taken {
			errs[field] = message(e)
		}
	}

	return errs
}

// fieldName maps struct field names back to their HTML form names
func fieldName(structField string) string {
	switch structField {
	case "Username":
		return "username"
	case "Email":
		return "email"
	case "Password1":
		return "password1"
	case "Password2":
		return "password2"
	case "Password":
		return "password"
	case "CategoryID":
		return "category"
	case "Name":
		return "name"
	case "Description":
		return "description"
	case "Price":
		return "price"
	case "Stock":
		return "stock"
	case "ImageURL":
		return "image_url"
	default:
		return structField
	}
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return "Value is too short"
	case "max":
		return "Value is too long"
	case "eqfield":
		return "Passwords do not match"
	case "gte":
		return "Value must be greater than or equal to " + e.Param()
	case "lte":
		return "Value must be less than or equal to " + e.Param()
	case "url":
		return "Enter a valid URL"
	default:
		return "Invalid value"
	}
}
