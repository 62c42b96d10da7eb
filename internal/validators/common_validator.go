package validators

import (
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterValidation("object_id", validateObjectID)
}

func validateObjectID(fl validator.FieldLevel) bool {
	_, err := primitive.ObjectIDFromHex(fl.Field().String())
	return err == nil
}

// ValidateStruct runs tag validation and flattens failures into the
// field -> message map the response helpers expect.
func ValidateStruct(s interface{}) map[string]string {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	errs := make(map[string]string)
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		errs["request"] = err.Error()
		return errs
	}
	for _, fieldErr := range validationErrors {
		errs[fieldErr.Field()] = validationMessage(fieldErr)
	}
	return errs
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return "is below the minimum of " + fe.Param()
	case "max":
		return "exceeds the maximum of " + fe.Param()
	case "len":
		return "must have exactly " + fe.Param() + " elements"
	case "eq":
		return "must equal " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "object_id":
		return "is not a valid id"
	default:
		return "is invalid"
	}
}
