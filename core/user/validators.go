package user

import (
	"fmt"
	"unicode/utf8"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/lms/core"
)

var (
	// password policy
	PasswordMinLen = 6
	pwdMinLenTag   = "pwdminlen"
	pwdMinLenText  = fmt.Sprintf("password must be at least %d characters long", PasswordMinLen)
)

// RegisterValidators adds the user validation tags and their translations to validate.
func RegisterValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(pwdMinLenTag, pwdMinLenValidation)
	core.RegisterCustomTranslation(validate, translator, pwdMinLenTag, pwdMinLenText)
}

// Custom Validators

// pwdMinLenValidation counts characters, not bytes.
func pwdMinLenValidation(fl validator.FieldLevel) bool {
	return utf8.RuneCountInString(fl.Field().String()) >= PasswordMinLen
}
