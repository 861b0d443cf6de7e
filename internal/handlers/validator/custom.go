package validator

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	ethAddressRegex = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	signatureRegex  = regexp.MustCompile(`^0x[0-9a-fA-F]{130}$`)
)

func ethAddressValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	return ethAddressRegex.MatchString(val)
}

// signatureValidator accepts a 65 byte hex signature. Empty values pass, use "required" to forbid them.
func signatureValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	if val == "" {
		return true
	}
	return signatureRegex.MatchString(val)
}

func imageMimeValidator(fl validator.FieldLevel) bool {
	val, ok := fl.Field().Interface().(string)
	if !ok {
		return false
	}
	subtype, found := strings.CutPrefix(strings.ToLower(val), "image/")
	return found && subtype != ""
}
