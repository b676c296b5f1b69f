package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var configSchemaJSON []byte

var configSchema = compileConfigSchema()

func compileConfigSchema() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("config.schema.json", bytes.NewReader(configSchemaJSON)); err != nil {
		panic(fmt.Sprintf("config: embedded schema is invalid: %v", err))
	}
	schema, err := compiler.Compile("config.schema.json")
	if err != nil {
		panic(fmt.Sprintf("config: embedded schema failed to compile: %v", err))
	}
	return schema
}

// validateSchema checks the raw config file's structural shape (field
// names and types) against the embedded JSON Schema, ahead of the
// semantic checks in ValidateConfig, which assume that shape already
// holds and only reasons about keycode names, layer references, and
// SOCD symmetry.
func validateSchema(raw []byte) error {
	var generic map[string]interface{}
	if _, err := toml.Decode(string(raw), &generic); err != nil {
		return fmt.Errorf("decode TOML for schema validation: %w", err)
	}

	// jsonschema validates against json-decoded types (float64, string,
	// bool, map[string]any, []any). Round-trip through encoding/json to
	// normalize the TOML decoder's int64/time.Time values into that shape
	// rather than teaching the schema library about TOML's own types.
	normalized, err := json.Marshal(generic)
	if err != nil {
		return fmt.Errorf("normalize config for schema validation: %w", err)
	}
	var instance interface{}
	if err := json.Unmarshal(normalized, &instance); err != nil {
		return fmt.Errorf("normalize config for schema validation: %w", err)
	}

	if err := configSchema.Validate(instance); err != nil {
		return fmt.Errorf("config does not match schema: %w", err)
	}
	return nil
}
