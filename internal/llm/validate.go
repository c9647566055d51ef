package llm

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// compiledSchema is a schema compiled at most once per process.
type compiledSchema struct {
	once   sync.Once
	schema *jsonschema.Schema
	err    error
}

// schemas is keyed by Schema.Name; a name must always carry the same
// definition.
var schemas sync.Map // map[string]*compiledSchema

// Validate checks a structured reply against schema. A nil schema accepts
// anything. A reply that is not JSON or does not match is an
// *ErrInvalidResponse carrying raw, so the caller can still salvage it; a
// schema that does not compile is a plain error.
func Validate(schema *Schema, raw json.RawMessage) error {
	if schema == nil {
		return nil
	}

	compiled, err := compile(schema)
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("reply is not JSON: %w", err)}
	}
	if err := compiled.Validate(doc); err != nil {
		return &ErrInvalidResponse{Content: raw, Err: fmt.Errorf("reply does not match %s: %w", schema.Name, err)}
	}
	return nil
}

func compile(schema *Schema) (*jsonschema.Schema, error) {
	v, _ := schemas.LoadOrStore(schema.Name, &compiledSchema{})
	c := v.(*compiledSchema)
	c.once.Do(func() {
		c.schema, c.err = compileDefinition(schema)
	})
	if c.err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", schema.Name, c.err)
	}
	return c.schema, nil
}

// compileDefinition round-trips the Go map through JSON, since the compiler
// only accepts values shaped like encoding/json output ([]any, float64).
func compileDefinition(schema *Schema) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, err
	}
	var def any
	if err := json.Unmarshal(b, &def); err != nil {
		return nil, err
	}

	url := "schema://" + schema.Name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, def); err != nil {
		return nil, err
	}
	return c.Compile(url)
}
