package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

type schemaName string

const (
	schemaJob          schemaName = "validation_job"
	schemaProvider     schemaName = "provider"
	schemaProviderPage schemaName = "provider_page"
	schemaStats        schemaName = "dashboard_stats"
	schemaEmail        schemaName = "email_template"
	schemaUpload       schemaName = "upload"
)

func optionalString() map[string]any {
	return map[string]any{"type": []string{"string", "null"}}
}

func count() map[string]any {
	return map[string]any{"type": "integer", "minimum": 0}
}

// BuildJobSchema describes ValidationJobResponse. Progress is not range-checked here;
// out-of-range values are clamped for display instead of failing the poll.
func BuildJobSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"job_id":              map[string]any{"type": "string", "minLength": 1},
			"status":              map[string]any{"type": "string"},
			"total_providers":     count(),
			"processed_providers": count(),
			"progress_percentage": map[string]any{"type": "number"},
			"error_message":       optionalString(),
		},
		"required": []string{"job_id", "status"},
	}
}

// BuildProviderSchema describes the backend's flat provider record.
func BuildProviderSchema() map[string]any {
	props := map[string]any{
		"id":                 map[string]any{"type": "integer"},
		"job_id":             map[string]any{"type": "string"},
		"issues":             map[string]any{"type": []string{"array", "null"}, "items": map[string]any{"type": "string"}},
		"validation_notes":   optionalString(),
		"confidence_overall": map[string]any{"type": "number"},
		"needs_review":       map[string]any{"type": "boolean"},
		"is_suspicious":      map[string]any{"type": "boolean"},
		"is_validated":       map[string]any{"type": "boolean"},
	}
	for _, f := range []string{"name", "npi", "phone", "address", "specialty", "email", "city", "state", "zip_code", "website"} {
		props[f] = optionalString()
	}
	for _, f := range []string{"name", "phone", "address", "specialty", "email", "website"} {
		props["validated_"+f] = optionalString()
	}
	for _, f := range []string{"name", "phone", "address", "specialty", "email"} {
		props["confidence_"+f] = map[string]any{"type": "number"}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   []string{"id"},
	}
}

func BuildProviderPageSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"providers": map[string]any{"type": "array", "items": BuildProviderSchema()},
			"total":     count(),
			"page":      map[string]any{"type": "integer", "minimum": 1},
			"page_size": map[string]any{"type": "integer", "minimum": 1},
		},
		"required": []string{"providers"},
	}
}

func distribution() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": count(),
	}
}

func BuildStatsSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"total_providers":        count(),
			"auto_validated":         count(),
			"needs_review":           count(),
			"suspicious":             count(),
			"average_confidence":     map[string]any{"type": "number"},
			"validation_status":      distribution(),
			"specialty_distribution": distribution(),
			"state_distribution":     distribution(),
		},
		"required": []string{"total_providers", "validation_status", "specialty_distribution"},
	}
}

func BuildEmailSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"provider_id":   map[string]any{"type": "integer"},
			"provider_name": map[string]any{"type": "string"},
			"subject":       map[string]any{"type": "string"},
			"body":          map[string]any{"type": "string"},
			"issues":        map[string]any{"type": []string{"array", "null"}, "items": map[string]any{"type": "string"}},
		},
		"required": []string{"subject", "body"},
	}
}

func BuildUploadSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message":  map[string]any{"type": "string"},
			"file_id":  map[string]any{"type": "string", "minLength": 1},
			"filename": map[string]any{"type": "string"},
		},
		"required": []string{"file_id"},
	}
}

var schemaBuilders = map[schemaName]func() map[string]any{
	schemaJob:          BuildJobSchema,
	schemaProvider:     BuildProviderSchema,
	schemaProviderPage: BuildProviderPageSchema,
	schemaStats:        BuildStatsSchema,
	schemaEmail:        BuildEmailSchema,
	schemaUpload:       BuildUploadSchema,
}

var compiled = sync.OnceValues(compileAll)

func compileAll() (map[schemaName]*jsonschema.Schema, error) {
	out := make(map[schemaName]*jsonschema.Schema, len(schemaBuilders))
	for name, build := range schemaBuilders {
		s, err := compileSchema(string(name)+".json", build())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[name] = s
	}
	return out, nil
}

func compileSchema(url string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// validateAgainst validates raw JSON against the named response schema.
func validateAgainst(name schemaName, data []byte) error {
	schemas, err := compiled()
	if err != nil {
		return err
	}
	schema, ok := schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
