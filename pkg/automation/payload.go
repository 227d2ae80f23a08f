package automation

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dukex/automation-runner/pkg/models"
	"github.com/go-playground/validator/v10"
	"github.com/xeipuuv/gojsonschema"
)

var payloadSchemas = map[models.RunType]map[string]any{
	models.RunTypeFindConnections: {
		"type": "object",
		"properties": map[string]any{
			"limit": map[string]any{"type": "integer", "minimum": 0},
		},
	},
	models.RunTypeDownloadConnections: {
		"type": "object",
	},
	models.RunTypeFindCompanyPeople: {
		"type":     "object",
		"required": []any{"companyUrl"},
		"properties": map[string]any{
			"companyName": map[string]any{"type": "string"},
			"companyUrl":  map[string]any{"type": "string", "minLength": 1},
			"limit":       map[string]any{"type": "integer", "minimum": 0},
		},
	},
	models.RunTypeSendConnectionRequest: {
		"type":     "object",
		"required": []any{"profileUrl"},
		"properties": map[string]any{
			"profileUrl": map[string]any{"type": "string", "minLength": 1},
			"message":    map[string]any{"type": "string", "maxLength": 300},
		},
	},
	models.RunTypeSendMessage: {
		"type":     "object",
		"required": []any{"profileUrl", "message"},
		"properties": map[string]any{
			"profileUrl": map[string]any{"type": "string", "minLength": 1},
			"message":    map[string]any{"type": "string", "minLength": 1},
		},
	},
}

// PayloadParser turns a run's raw payload into the typed payload of its run type.
type PayloadParser struct {
	validator *validator.Validate
}

func NewPayloadParser(validator *validator.Validate) *PayloadParser {
	return &PayloadParser{validator: validator}
}

// Parse checks raw against the run type's JSON schema, decodes it and validates the result.
// An empty payload is treated as an empty object. Failures are fatal faults.
func (p *PayloadParser) Parse(runType models.RunType, raw string) (models.Payload, error) {
	if !runType.IsKnown() {
		return nil, models.NewFatalError(models.ReferenceUnknownRunType, "unknown automation run type: "+string(runType), nil)
	}

	schema := payloadSchemas[runType]

	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = "{}"
	}

	err := validateJSONSchema(schema, raw)
	if err != nil {
		return nil, models.NewFatalError(models.ReferenceInvalidPayload, "invalid "+string(runType)+" payload", err)
	}

	payload, err := decodePayload(runType, raw)
	if err != nil {
		return nil, models.NewFatalError(models.ReferenceInvalidPayload, "invalid "+string(runType)+" payload", err)
	}

	err = p.validator.Struct(payload)
	if err != nil {
		return nil, models.NewFatalError(models.ReferenceInvalidPayload, "invalid "+string(runType)+" payload", err)
	}

	return payload, nil
}

func decodePayload(runType models.RunType, raw string) (models.Payload, error) {
	switch runType {
	case models.RunTypeFindConnections:
		return decode[models.FindConnectionsPayload](raw)
	case models.RunTypeDownloadConnections:
		return decode[models.DownloadConnectionsPayload](raw)
	case models.RunTypeFindCompanyPeople:
		return decode[models.FindCompanyPeoplePayload](raw)
	case models.RunTypeSendConnectionRequest:
		return decode[models.SendConnectionRequestPayload](raw)
	case models.RunTypeSendMessage:
		return decode[models.SendMessagePayload](raw)
	}

	return nil, fmt.Errorf("no payload type for %s", runType)
}

func decode[T models.Payload](raw string) (models.Payload, error) {
	var payload T

	err := json.Unmarshal([]byte(raw), &payload)
	if err != nil {
		return nil, err
	}

	return payload, nil
}

func validateJSONSchema(schema map[string]any, raw string) error {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewStringLoader(raw))
	if err != nil {
		return err
	}

	if !result.Valid() {
		var errors []string
		for _, desc := range result.Errors() {
			errors = append(errors, desc.String())
		}

		return fmt.Errorf("validation errors: %s", strings.Join(errors, "; "))
	}

	return nil
}
