package errors

import (
	stderrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}
}

// jsonFieldName reports validation failures under the request's json keys.
func jsonFieldName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "" || name == "-" {
		return field.Name
	}
	return name
}

// BindingFields turns a gin binding error into per-field messages keyed by
// json field name. Malformed bodies are reported under "body".
func BindingFields(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return map[string]string{"body": "malformed request body"}
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = fieldMessage(fe)
	}
	return fields
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

// RespondWithBindingError writes the validation envelope for a failed bind.
func RespondWithBindingError(c *gin.Context, err error) {
	RespondWithValidationError(c, BindingFields(err))
}
