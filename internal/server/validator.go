package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// Validator adapts go-playground/validator to echo. Field names in messages
// are the JSON names the client sent.
type Validator struct {
	validate *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return &Validator{validate: v}
}

func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusBadRequest, describe(fieldErrs[0])).SetInternal(err)
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("缺少必填字段 %s", field)
	case "email":
		return "请提供有效的邮箱地址"
	case "min":
		return fmt.Sprintf("%s 长度不能少于 %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s 长度不能超过 %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s 长度必须为 %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s 必须是 %s 之一", field, fe.Param())
	default:
		return fmt.Sprintf("%s 无效", field)
	}
}
