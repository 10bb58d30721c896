package protocol

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Validator checks inbound client messages against the embedded JSON schemas.
type Validator struct {
	hello *jsonschema.Schema
	exec  *jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	hello, err := compileSchema("hello.schema.json")
	if err != nil {
		return nil, err
	}
	exec, err := compileSchema("exec.schema.json")
	if err != nil {
		return nil, err
	}
	return &Validator{hello: hello, exec: exec}, nil
}

func compileSchema(name string) (*jsonschema.Schema, error) {
	raw, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return nil, err
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(name, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	s, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}

func (v *Validator) ValidateHello(raw []byte) error { return validateRaw(v.hello, raw) }
func (v *Validator) ValidateExec(raw []byte) error  { return validateRaw(v.exec, raw) }

func validateRaw(s *jsonschema.Schema, raw []byte) error {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	return s.Validate(doc)
}
