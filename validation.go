package tokengate

import (
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// PasswordSymbols is the set of characters that satisfy the special-character rule.
const PasswordSymbols = `!@#$%^&*(),.?":{}|<>`

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// ValidationResult is the outcome of an input check. Reason carries the
// message of the first failing rule.
type ValidationResult struct {
	Valid  bool
	Reason string
}

type inputRule struct {
	tag     string
	message string
}

// Rule order is part of the contract: the first failure is reported.
var (
	usernameRules = []inputRule{
		{"min=3", "Username must be at least 3 characters long"},
		{"max=20", "Username must be no more than 20 characters long"},
		{"username_charset", "Username can only contain letters, numbers, and underscores"},
	}
	passwordRules = []inputRule{
		{"min=8", "Password must be at least 8 characters long"},
		{"has_upper", "Password must contain at least one uppercase letter"},
		{"has_lower", "Password must contain at least one lowercase letter"},
		{"has_digit", "Password must contain at least one number"},
		{"has_symbol", "Password must contain at least one special character"},
	}
)

var (
	inputValidatorOnce sync.Once
	inputValidator     *validator.Validate
)

func inputValidate() *validator.Validate {
	inputValidatorOnce.Do(func() {
		v := validator.New()
		custom := map[string]func(string) bool{
			"username_charset": usernamePattern.MatchString,
			"has_upper":        containsRange('A', 'Z'),
			"has_lower":        containsRange('a', 'z'),
			"has_digit":        containsRange('0', '9'),
			"has_symbol": func(s string) bool {
				return strings.ContainsAny(s, PasswordSymbols)
			},
		}
		for tag, check := range custom {
			if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
				return check(fl.Field().String())
			}); err != nil {
				panic("tokengate: register validation " + tag + ": " + err.Error())
			}
		}
		inputValidator = v
	})
	return inputValidator
}

func containsRange(lo, hi byte) func(string) bool {
	return func(s string) bool {
		for i := 0; i < len(s); i++ {
			if s[i] >= lo && s[i] <= hi {
				return true
			}
		}
		return false
	}
}

func runRules(value string, rules []inputRule) ValidationResult {
	v := inputValidate()
	for _, r := range rules {
		if err := v.Var(value, r.tag); err != nil {
			return ValidationResult{Valid: false, Reason: r.message}
		}
	}
	return ValidationResult{Valid: true}
}

// ValidateUsername checks length 3..20 and the [A-Za-z0-9_] charset, in that order.
func ValidateUsername(username string) ValidationResult {
	return runRules(username, usernameRules)
}

// ValidatePassword checks length >= 8, then uppercase, lowercase, digit and
// symbol presence, in that order.
func ValidatePassword(password string) ValidationResult {
	return runRules(password, passwordRules)
}

func usernameError(username string) error {
	if res := ValidateUsername(username); !res.Valid {
		return &ValidationError{Field: "username", Reason: res.Reason}
	}
	return nil
}

func passwordError(password string) error {
	if res := ValidatePassword(password); !res.Valid {
		return &ValidationError{Field: "password", Reason: res.Reason}
	}
	return nil
}
