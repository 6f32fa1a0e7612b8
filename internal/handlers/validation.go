package handlers

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/mkarran/accessgate/pkg/errors"
	"github.com/mkarran/accessgate/pkg/response"
	appValidator "github.com/mkarran/accessgate/pkg/validator"
)

// ruleMessages maps validate tags to client-facing message templates.
// %[1]s is the field, %[2]s the rule parameter.
var ruleMessages = map[string]string{
	"required": "%[1]s is required",
	"email":    "%[1]s must be a valid email address",
	"min":      "%[1]s must be at least %[2]s characters",
	"max":      "%[1]s must be at most %[2]s characters",
}

// bindAndValidate decodes the JSON body into dest and applies its validate
// tags. On any failure a 400 envelope is written and false returned, so
// handlers can bail with a bare return.
func bindAndValidate[T any](c *gin.Context, dest *T) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest("invalid JSON payload"))
		return false
	}

	if err := appValidator.ValidateStruct(dest); err != nil {
		response.Error(c, appErrors.NewBadRequest(formatValidationError(err)))
		return false
	}

	return true
}

func formatValidationError(err error) string {
	ve, ok := err.(appValidator.ValidationErrors)
	if !ok || len(ve) == 0 {
		return "invalid request payload"
	}

	messages := make([]string, len(ve))
	for i, failure := range ve {
		messages[i] = failureMessage(failure)
	}
	return strings.Join(messages, "; ")
}

func failureMessage(failure appValidator.ValidationError) string {
	field := fieldLabel(failure.Field)

	if template, ok := ruleMessages[failure.Tag]; ok {
		return fmt.Sprintf(template, field, failure.Param)
	}
	if failure.Param != "" {
		return fmt.Sprintf("%s failed validation: %s=%s", field, failure.Tag, failure.Param)
	}
	return fmt.Sprintf("%s failed validation: %s", field, failure.Tag)
}

// fieldLabel turns a snake_case JSON key into the wording used in messages.
func fieldLabel(name string) string {
	if name == "" {
		return "field"
	}
	return strings.ToLower(strings.ReplaceAll(name, "_", " "))
}

func parseIntQuery(c *gin.Context, key string, fallback int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
