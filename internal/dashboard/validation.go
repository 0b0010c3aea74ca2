// internal/dashboard/validation.go
package dashboard

import (
	"encoding/json"
	stderrors "errors"
	"strings"

	"royalty-portal/internal/common/errors"
	"royalty-portal/internal/common/validation"
)

var errMissingURL = stderrors.New("response carried no redirect url")

var (
	toggleSchema = validation.MustCompile("franchise-toggle", `{
		"type": "object",
		"required": ["active"],
		"properties": {"active": {"type": "boolean"}}
	}`)

	bulkSchema = validation.MustCompile("franchise-bulk", `{
		"type": "object",
		"required": ["action", "confirmed"],
		"properties": {
			"action": {"type": "string", "enum": ["activate", "deactivate"]},
			"franchise_numbers": {"type": "array", "items": {"type": "string", "minLength": 1}},
			"confirmed": {"type": "boolean"}
		}
	}`)

	generateSchema = validation.MustCompile("report-generate", `{
		"type": "object",
		"required": ["franchise_number", "month", "year"],
		"properties": {
			"franchise_number": {"type": "string", "minLength": 1},
			"month": {"type": "integer", "minimum": 1, "maximum": 12},
			"year": {"type": "integer", "minimum": 2000, "maximum": 2100}
		}
	}`)

	generateAllSchema = validation.MustCompile("report-generate-all", `{
		"type": "object",
		"required": ["month", "year"],
		"properties": {
			"month": {"type": "integer", "minimum": 1, "maximum": 12},
			"year": {"type": "integer", "minimum": 2000, "maximum": 2100}
		}
	}`)
)

// decode validates body against schema and unmarshals it into out.
func decode(schema *validation.Schema, body []byte, out interface{}) error {
	result := schema.ValidateBytes(body)
	if !result.Valid {
		return errors.NewValidationError(schema.Name() + ": " + strings.Join(result.GetErrorMessages(), "; "))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errors.NewValidationError(err.Error())
	}
	return nil
}
