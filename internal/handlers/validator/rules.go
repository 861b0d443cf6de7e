package validator

import "github.com/go-playground/validator/v10"

func registerFn(tag string, fn func(fl validator.FieldLevel) bool) func(v *validator.Validate) {
	return func(v *validator.Validate) {
		_ = v.RegisterValidation(tag, fn)
	}
}

func NewAuthValidationRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn("eth_address", ethAddressValidator),
		},
		{
			Rule: registerFn("eth_signature", signatureValidator),
		},
	}
}

func NewMintValidationRules() []ValidationRule {
	return []ValidationRule{
		{
			Rule: registerFn("eth_signature", signatureValidator),
		},
		{
			Rule: registerFn("image_mime", imageMimeValidator),
		},
	}
}
