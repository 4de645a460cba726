package validator

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"
)

var (
	// ErrInvalidLength indicates phone number length is not 10 digits
	ErrInvalidLength = errors.New("phone number must be exactly 10 digits")

	// ErrInvalidPrefix indicates phone number doesn't start with a Nepali mobile prefix
	ErrInvalidPrefix = errors.New("phone number must start with 961, 962, 974, 975, 976, 980, 981, 982, 984, 985, 986 or 988")

	// ErrInvalidFormat indicates phone number contains invalid characters
	ErrInvalidFormat = errors.New("phone number can only contain digits")

	// ErrEmptyPhone indicates phone number is empty
	ErrEmptyPhone = errors.New("phone number cannot be empty")

	// ErrInvalidEmail indicates an unparseable email address
	ErrInvalidEmail = errors.New("email address is invalid")
)

// operatorPrefixes maps Nepali mobile prefixes to their operator
var operatorPrefixes = map[string]string{
	"974": "Nepal Telecom",
	"975": "Nepal Telecom",
	"976": "Nepal Telecom",
	"984": "Nepal Telecom",
	"985": "Nepal Telecom",
	"986": "Nepal Telecom",
	"980": "Ncell",
	"981": "Ncell",
	"982": "Ncell",
	"961": "Smart Cell",
	"962": "Smart Cell",
	"988": "Smart Cell",
}

// phoneRegex matches digits only
var phoneRegex = regexp.MustCompile(`^\d+$`)

// PhoneValidator handles phone number validation
type PhoneValidator struct{}

// NewPhoneValidator creates a new phone validator instance
func NewPhoneValidator() *PhoneValidator {
	return &PhoneValidator{}
}

// Validate validates a Nepali mobile number.
// Accepts 9841234567, 984 123 4567, 984-123-4567 or +977 9841234567 and
// returns the sanitized 10 digit form.
func (v *PhoneValidator) Validate(phone string) (string, error) {
	if strings.TrimSpace(phone) == "" {
		return "", ErrEmptyPhone
	}

	sanitized := v.Sanitize(phone)

	if !phoneRegex.MatchString(sanitized) {
		return "", ErrInvalidFormat
	}

	if len(sanitized) != 10 {
		return "", ErrInvalidLength
	}

	if !v.IsValidPrefix(sanitized) {
		return "", ErrInvalidPrefix
	}

	return sanitized, nil
}

// Sanitize removes separators and the 977 country code
func (v *PhoneValidator) Sanitize(phone string) string {
	replacer := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", "+", "", ".", "")
	phone = replacer.Replace(phone)

	if strings.HasPrefix(phone, "977") && len(phone) == 13 {
		phone = phone[3:]
	}

	return phone
}

// IsValidPrefix checks if phone number has a known mobile prefix
func (v *PhoneValidator) IsValidPrefix(phone string) bool {
	if len(phone) < 3 {
		return false
	}
	_, ok := operatorPrefixes[phone[:3]]
	return ok
}

// Format formats a phone number for display: 98X XXX XXXX
func (v *PhoneValidator) Format(phone string) (string, error) {
	sanitized, err := v.Validate(phone)
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s %s %s", sanitized[0:3], sanitized[3:6], sanitized[6:10]), nil
}

// GetOperator returns the mobile operator name based on prefix
func (v *PhoneValidator) GetOperator(phone string) (string, error) {
	sanitized, err := v.Validate(phone)
	if err != nil {
		return "", err
	}
	return operatorPrefixes[sanitized[:3]], nil
}

// IsValid is a convenience method that returns true if phone is valid
func (v *PhoneValidator) IsValid(phone string) bool {
	_, err := v.Validate(phone)
	return err == nil
}

// ValidateEmail checks that email is a bare address (no display name)
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return ErrInvalidEmail
	}
	return nil
}
