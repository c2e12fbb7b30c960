package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// ErrMalformedBody is returned when a request body is not valid JSON.
var ErrMalformedBody = errors.New("malformed request body")

const taskAddSchemaURL = "mem://schemas/task-add.json"

// taskAddRequired lists the fields a create payload must carry.
var taskAddRequired = []string{"title"}

var taskAddSchemaSource = fmt.Sprintf(`{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"required": %s,
	"properties": {
		"title": {"type": "string"},
		"description": {"type": ["string", "null"], "maxLength": %d},
		"completed": {"type": "boolean"}
	}
}`, mustJSON(taskAddRequired), DescriptionMaxLength)

var taskAddSchema = jsonschema.MustCompileString(taskAddSchemaURL, taskAddSchemaSource)

// ValidationError describes one contract violation.
type ValidationError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationErrors is the set of violations found in one payload.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	parts := make([]string, 0, len(v))
	for _, e := range v {
		parts = append(parts, fmt.Sprintf("%s: %s", strings.Join(e.Loc, "."), e.Msg))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// ParseTaskAdd decodes and validates a create payload.
func ParseTaskAdd(data []byte) (TaskAdd, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return TaskAdd{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}

	if err := taskAddSchema.Validate(doc); err != nil {
		return TaskAdd{}, schemaErrors(err, doc)
	}

	var task TaskAdd
	if err := json.Unmarshal(data, &task); err != nil {
		return TaskAdd{}, fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	return task, nil
}

func schemaErrors(err error, doc any) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err
	}

	var out ValidationErrors
	collectSchemaErrors(ve, doc, &out)
	if len(out) == 0 {
		out = append(out, ValidationError{Loc: []string{"body"}, Msg: ve.Message, Type: "value_error"})
	}
	return out
}

// collectSchemaErrors flattens the leaf causes of a schema failure.
func collectSchemaErrors(ve *jsonschema.ValidationError, doc any, out *ValidationErrors) {
	if len(ve.Causes) > 0 {
		for _, cause := range ve.Causes {
			collectSchemaErrors(cause, doc, out)
		}
		return
	}

	keyword := ve.KeywordLocation[strings.LastIndex(ve.KeywordLocation, "/")+1:]
	loc := instanceLoc(ve.InstanceLocation)

	switch keyword {
	case "required":
		for _, field := range missingFields(doc, taskAddRequired) {
			*out = append(*out, ValidationError{
				Loc:  append(append([]string{}, loc...), field),
				Msg:  "Field required",
				Type: "missing",
			})
		}
		return
	case "maxLength":
		*out = append(*out, ValidationError{
			Loc:  loc,
			Msg:  fmt.Sprintf("String should have at most %d characters", DescriptionMaxLength),
			Type: "string_too_long",
		})
		return
	case "type":
		*out = append(*out, ValidationError{Loc: loc, Msg: ve.Message, Type: "type_error"})
		return
	}
	*out = append(*out, ValidationError{Loc: loc, Msg: ve.Message, Type: "value_error"})
}

// instanceLoc turns a JSON pointer such as "/description" into ["body", "description"].
func instanceLoc(pointer string) []string {
	loc := []string{"body"}
	for _, part := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		if part == "" {
			continue
		}
		part = strings.ReplaceAll(part, "~1", "/")
		part = strings.ReplaceAll(part, "~0", "~")
		loc = append(loc, part)
	}
	return loc
}

// missingFields returns the names in required that doc, a decoded JSON
// object, does not carry.
func missingFields(doc any, required []string) []string {
	obj, _ := doc.(map[string]any)
	var missing []string
	for _, name := range required {
		if _, ok := obj[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
