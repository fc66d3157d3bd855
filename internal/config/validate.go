package config

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema.json
var schemaJSON string

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("config.schema.json", schemaJSON)
})

// Validate checks the config against the embedded JSON schema and then the
// rules the schema cannot express.
func (c *Config) Validate() error {
	schema, err := compiledSchema()
	if err != nil {
		return fmt.Errorf("config: compile schema: %w", err)
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("config: %v: %w", err, ErrInvalid)
	}

	if err := c.Chunks.Layout().Validate(); err != nil {
		return fmt.Errorf("config: chunks: %v: %w", err, ErrInvalid)
	}
	if c.Stream.EvictRadius < c.Stream.Radius {
		return fmt.Errorf("config: evict_radius %d below radius %d: %w", c.Stream.EvictRadius, c.Stream.Radius, ErrInvalid)
	}
	if _, err := c.FieldEdits(); err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalid)
	}
	for i, d := range c.Digs {
		if mgl64.Vec3(d.Direction).Len() == 0 {
			return fmt.Errorf("config: digs[%d]: zero direction: %w", i, ErrInvalid)
		}
		if _, err := d.Operation(); err != nil {
			return fmt.Errorf("config: digs[%d]: %v: %w", i, err, ErrInvalid)
		}
	}
	return nil
}
