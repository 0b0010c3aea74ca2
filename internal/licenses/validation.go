// internal/licenses/validation.go
package licenses

import (
	"encoding/json"
	"strings"

	"royalty-portal/internal/common/errors"
	"royalty-portal/internal/common/validation"
)

var queryUpdateSchema = validation.MustCompile("wizard-query", `{
	"type": "object",
	"additionalProperties": false,
	"properties": {
		"search": {"type": "string", "maxLength": 200},
		"status": {"type": "string", "enum": ["all", "selected", "unselected"]},
		"sort":   {"type": "string", "enum": ["franchise_number", "name", "city"]},
		"limit":  {"type": "integer", "enum": [10, 25, 50, 100]},
		"page":   {"type": "integer", "minimum": 1}
	}
}`)

func parseQueryUpdate(body []byte) (QueryUpdate, error) {
	var u QueryUpdate
	result := queryUpdateSchema.ValidateBytes(body)
	if !result.Valid {
		return u, errors.NewValidationError(strings.Join(result.GetErrorMessages(), "; "))
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return u, nil
	}
	if err := json.Unmarshal(body, &u); err != nil {
		return u, errors.NewValidationError(err.Error())
	}
	return u, nil
}
