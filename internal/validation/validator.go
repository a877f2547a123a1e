// Package validation checks raw intake payloads before anything is written.
package validation

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/artcircle/waitlist/internal/model"
)

// Length ceilings for text fields.
const (
	MaxNameLength   = 255
	MaxEmailLength  = 255
	MaxPhoneLength  = 50
	MaxHandleLength = 100
)

// MaxYearsOfExperience is the largest value the INTEGER column holds.
const MaxYearsOfExperience = math.MaxInt32

// Validation messages returned to clients.
const (
	MsgNameRequired     = "Name is required"
	MsgEmailInvalid     = "Valid email is required"
	MsgHandleRequired   = "Instagram handle is required"
	MsgYearsInvalid     = "Years of experience must be a positive number"
	MsgMinPriceRequired = "Minimum price is required"
	MsgNameTooLong      = "Name must be less than 255 characters"
	MsgEmailTooLong     = "Email must be less than 255 characters"
	MsgPhoneTooLong     = "Phone number must be less than 50 characters"
	MsgHandleTooLong    = "Instagram handle must be less than 100 characters"
	msgBooleanFormat    = "%s must be true or false"
	msgConsentRequired  = "%s consent is required"
)

// emailPattern is deliberately loose: non-whitespace local part, one @, a dot in the domain.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Result is the outcome of Validate.
type Result struct {
	Valid  bool
	Errors []string
}

// Validator applies the intake rules to a decoded JSON payload.
type Validator struct {
	validate         *validator.Validate
	requiredConsents []string
}

// Option customizes a Validator.
type Option func(*Validator)

// WithRequiredConsents makes each named boolean field mandatory and true.
func WithRequiredConsents(fields ...string) Option {
	return func(v *Validator) {
		v.requiredConsents = append([]string(nil), fields...)
	}
}

// New creates a Validator with the custom tags registered.
func New(opts ...Option) (*Validator, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())

	if err := validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	}); err != nil {
		return nil, fmt.Errorf("register notblank: %w", err)
	}
	if err := validate.RegisterValidation("emailshape", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	}); err != nil {
		return nil, fmt.Errorf("register emailshape: %w", err)
	}

	v := &Validator{validate: validate}
	for _, opt := range opts {
		opt(v)
	}
	return v, nil
}

// Validate evaluates every rule and collects all violations. It has no side effects.
func (v *Validator) Validate(raw map[string]any) Result {
	if raw == nil {
		raw = map[string]any{}
	}

	var errs []string
	fail := func(msg string) { errs = append(errs, msg) }

	name, nameOK := model.StringField(raw, model.FieldName)
	email, emailOK := model.StringField(raw, model.FieldEmail)
	handle, handleOK := model.StringField(raw, model.FieldInstagramHandle)
	price, priceOK := model.StringField(raw, model.FieldMinimumPrice)
	years, yearsOK := model.NumberField(raw, model.FieldYearsOfExperience)

	// Presence and shape.
	if !nameOK || !v.passes(name, "notblank") {
		fail(MsgNameRequired)
	}
	if !emailOK || !v.passes(email, "emailshape") {
		fail(MsgEmailInvalid)
	}
	if !handleOK || !v.passes(handle, "notblank") {
		fail(MsgHandleRequired)
	}
	if !yearsOK || !v.passes(years, fmt.Sprintf("gte=0,lte=%d", MaxYearsOfExperience)) {
		fail(MsgYearsInvalid)
	}
	if !priceOK || !v.passes(price, "notblank") {
		fail(MsgMinPriceRequired)
	}

	// Length ceilings.
	if nameOK && !v.passes(name, fmt.Sprintf("max=%d", MaxNameLength)) {
		fail(MsgNameTooLong)
	}
	if emailOK && !v.passes(email, fmt.Sprintf("max=%d", MaxEmailLength)) {
		fail(MsgEmailTooLong)
	}
	if phone, ok := model.StringField(raw, model.FieldPhoneNumber); ok && !v.passes(phone, fmt.Sprintf("max=%d", MaxPhoneLength)) {
		fail(MsgPhoneTooLong)
	}
	if handleOK && !v.passes(handle, fmt.Sprintf("max=%d", MaxHandleLength)) {
		fail(MsgHandleTooLong)
	}

	for _, field := range model.BooleanFields {
		if !model.HasField(raw, field) {
			continue
		}
		if _, ok := model.BoolField(raw, field); !ok {
			fail(fmt.Sprintf(msgBooleanFormat, field))
		}
	}

	for _, field := range v.requiredConsents {
		if given, _ := model.BoolField(raw, field); !given {
			fail(fmt.Sprintf(msgConsentRequired, consentLabel(field)))
		}
	}

	return Result{Valid: len(errs) == 0, Errors: errs}
}

func (v *Validator) passes(value any, tag string) bool {
	return v.validate.Var(value, tag) == nil
}

// consentLabel turns "data_processing_consent" into "Data processing".
func consentLabel(field string) string {
	label := strings.ReplaceAll(strings.TrimSuffix(field, "_consent"), "_", " ")
	if label == "" {
		return field
	}
	return strings.ToUpper(label[:1]) + label[1:]
}
