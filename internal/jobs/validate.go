package jobs

import (
	"bytes"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Wire-level schema for queued jobs. Payloads are produced by the intake
// bot, which is a separate deployment, so the worker validates at dequeue
// time rather than trusting the producer.
const jobSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["registrationId", "files", "eventTitle", "eventDate"],
  "properties": {
    "id": { "type": "string" },
    "registrationId": { "type": "integer", "minimum": 1 },
    "eventTitle": { "type": "string", "minLength": 1 },
    "eventDate": { "type": "string", "minLength": 1 },
    "timestamp": { "type": "string" },
    "files": {
      "type": "object",
      "required": ["payment_proof", "tiktok_proof", "instagram_proof"],
      "additionalProperties": {
        "type": "object",
        "required": ["url"],
        "properties": {
          "url": { "type": "string", "minLength": 1 },
          "filename": { "type": "string" }
        }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func compiledJobSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(jobSchema))

		if err != nil {
			schemaErr = fmt.Errorf("parse job schema: %w", err)
			return
		}

		compiler := jsonschema.NewCompiler()

		if err := compiler.AddResource("registration_job.json", doc); err != nil {
			schemaErr = fmt.Errorf("add job schema: %w", err)
			return
		}

		compiledSchema, schemaErr = compiler.Compile("registration_job.json")
	})

	return compiledSchema, schemaErr
}

// ValidateRaw checks a raw queue payload against the job schema.
func ValidateRaw(raw []byte) error {
	schema, err := compiledJobSchema()

	if err != nil {
		return err
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))

	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}

	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}

	return nil
}
