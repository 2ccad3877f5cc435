package api

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
)

// NewValidator returns the request validator with the cross-field rules
// registered.
func NewValidator() *validatorv10.Validate {
	v := validatorv10.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	v.RegisterStructValidation(transferStructValidation, TransferRequest{})
	v.RegisterStructValidation(itemStructValidation, ItemRequest{})
	return v
}

// A partial transfer has to name what moves.
func transferStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(TransferRequest)
	if req.Mode == "partial" && len(req.Items) == 0 {
		sl.ReportError(req.Items, "selected_items", "Items", "required_for_partial", "")
	}
}

func itemStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(ItemRequest)
	if req.UnitPrice != nil && req.UnitPrice.IsNegative() {
		sl.ReportError(req.UnitPrice, "unit_price", "UnitPrice", "gte0", "")
	}
}

// bindAndValidate binds the JSON body into out and validates it. On failure
// it writes the 400 and returns false.
func bindAndValidate(c *gin.Context, out interface{}, v *validatorv10.Validate) bool {
	if err := c.ShouldBindJSON(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid request body",
			"detail":  err.Error(),
		})
		return false
	}

	if err := v.Struct(out); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "validation failed",
			"fields":  validationErrorsToMap(err),
		})
		return false
	}
	return true
}

func validationErrorsToMap(err error) map[string]string {
	out := map[string]string{}
	var ve validatorv10.ValidationErrors
	if errors.As(err, &ve) {
		for _, fe := range ve {
			out[fe.Namespace()] = fe.Tag()
		}
	} else {
		out["error"] = err.Error()
	}
	return out
}
