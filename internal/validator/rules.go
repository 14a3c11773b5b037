package validator

import (
	"log"

	"bankbang/internal/models"

	"github.com/go-playground/validator/v10"
)

// registerCustomRules регистрирует все кастомные функции валидации в
// переданном экземпляре валидатора.
func registerCustomRules(v *validator.Validate) {
	mustRegister := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			// Без правил приложение не должно запускаться
			log.Fatalf("failed to register custom validation tag '%s': %v", tag, err)
		}
	}

	mustRegister("is-target-type", optional(func(s string) bool { return models.TargetType(s).Valid() }))
	mustRegister("is-otp-purpose", optional(func(s string) bool { return models.OTPPurpose(s).Valid() }))
	mustRegister("is-experience-category", optional(func(s string) bool { return models.ExperienceCategory(s).Valid() }))
	mustRegister("is-job-category", optional(func(s string) bool { return models.JobCategory(s).Valid() }))
	mustRegister("is-upload-purpose", optional(func(s string) bool { return models.UploadPurpose(s).Valid() }))
}

// optional skips empty values; presence is checked by 'required'.
func optional(check func(string) bool) validator.Func {
	return func(fl validator.FieldLevel) bool {
		value := fl.Field().String()
		if value == "" {
			return true
		}
		return check(value)
	}
}
