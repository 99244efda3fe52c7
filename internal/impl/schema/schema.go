// Package schema validates task files against an embedded JSON Schema.
package schema

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/drujensen/tasktracker/internal/domain/errs"
	"github.com/drujensen/tasktracker/internal/domain/interfaces"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "tasktracker://schemas/tasks.json"

// TaskFileSchema describes the task file: an array of Title/Description/DueDate
// records, or null.
const TaskFileSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": ["array", "null"],
  "items": {
    "type": "object",
    "required": ["Title", "Description", "DueDate"],
    "properties": {
      "Title": {"type": "string"},
      "Description": {"type": "string"},
      "DueDate": {
        "type": "string",
        "pattern": "^(0[1-9]|[12][0-9]|3[01])-(0[1-9]|1[0-2])-[0-9]{4}$"
      }
    }
  }
}`

type TaskFileValidator struct {
	schema *jsonschema.Schema
}

func NewTaskFileValidator() (*TaskFileValidator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	if err := compiler.AddResource(schemaURL, strings.NewReader(TaskFileSchema)); err != nil {
		return nil, fmt.Errorf("add task schema: %w", err)
	}

	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile task schema: %w", err)
	}

	return &TaskFileValidator{schema: schema}, nil
}

// Validate checks raw task file content. Syntax errors are left to the decoder.
func (v *TaskFileValidator) Validate(data []byte) error {
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil
	}

	if err := v.schema.Validate(doc); err != nil {
		return schemaError(err)
	}
	return nil
}

// schemaError reduces a schema failure to its first leaf cause.
func schemaError(err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return errs.ValidationErrorf("invalid task file: %w", err)
	}

	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}

	location := ve.InstanceLocation
	if location == "" {
		location = "/"
	}
	return errs.ValidationErrorf("invalid task file at %s: %s", location, ve.Message)
}

var _ interfaces.TaskValidator = (*TaskFileValidator)(nil)
