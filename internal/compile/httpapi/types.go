package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/yungbote/sigcompile/internal/compile/artifact"
	"github.com/yungbote/sigcompile/internal/compile/module"
	"github.com/yungbote/sigcompile/internal/compile/service"
	"github.com/yungbote/sigcompile/internal/compile/signature"
)

// FieldRequest uses pointers so omitted keys can be told apart from empty
// values: only the key's presence is required, "" is a valid name.
type FieldRequest struct {
	Name        *string         `json:"name" binding:"required"`
	Type        defaultedString `json:"type"`
	Description *string         `json:"description"`
	Prefix      *string         `json:"prefix"`
}

type CompileRequest struct {
	Inputs       []FieldRequest  `json:"inputs" binding:"required,dive"`
	Outputs      []FieldRequest  `json:"outputs" binding:"required,dive"`
	Instructions *string         `json:"instructions"`
	Module       defaultedString `json:"module"`
}

// UnmarshalJSON decodes inputs and outputs element by element so type errors
// carry the element index, e.g. "inputs[1].name".
func (r *CompileRequest) UnmarshalJSON(b []byte) error {
	var raw struct {
		Inputs       []json.RawMessage `json:"inputs"`
		Outputs      []json.RawMessage `json:"outputs"`
		Instructions *string           `json:"instructions"`
		Module       defaultedString   `json:"module"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	inputs, err := decodeFields("inputs", raw.Inputs)
	if err != nil {
		return err
	}
	outputs, err := decodeFields("outputs", raw.Outputs)
	if err != nil {
		return err
	}
	*r = CompileRequest{
		Inputs:       inputs,
		Outputs:      outputs,
		Instructions: raw.Instructions,
		Module:       raw.Module,
	}
	return nil
}

// decodeFields keeps nil (absent or null) distinct from empty so "required" still fires.
func decodeFields(key string, raw []json.RawMessage) ([]FieldRequest, error) {
	if raw == nil {
		return nil, nil
	}
	out := make([]FieldRequest, len(raw))
	for i, item := range raw {
		if err := json.Unmarshal(item, &out[i]); err != nil {
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &typeErr) {
				path := fmt.Sprintf("%s[%d]", key, i)
				if typeErr.Field != "" {
					path += "." + typeErr.Field
				}
				typeErr.Field = path
			}
			return nil, err
		}
	}
	return out, nil
}

// defaultedString is a JSON string that may be omitted, in which case the
// caller applies a default, but may not be null.
type defaultedString struct {
	Value string
	Set   bool
}

func (s *defaultedString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return &json.UnmarshalTypeError{Value: "null", Type: reflect.TypeOf("")}
	}
	if err := json.Unmarshal(b, &s.Value); err != nil {
		return err
	}
	s.Set = true
	return nil
}

type CompileResponse struct {
	CompiledPrompt string         `json:"compiled_prompt"`
	SignatureDict  signature.Spec `json:"signature_dict"`
	ModuleType     string         `json:"module_type"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ArtifactsResponse struct {
	Artifacts []*artifact.Artifact `json:"artifacts"`
}

func (r CompileRequest) toService() service.Request {
	mod := module.Default.String()
	if r.Module.Set {
		mod = r.Module.Value
	}
	return service.Request{
		Spec: signature.Spec{
			Inputs:       toFieldSpecs(r.Inputs),
			Outputs:      toFieldSpecs(r.Outputs),
			Instructions: r.Instructions,
		},
		Module: mod,
	}
}

func toFieldSpecs(in []FieldRequest) []signature.FieldSpec {
	out := make([]signature.FieldSpec, len(in))
	for i, f := range in {
		typ := signature.DefaultFieldType
		if f.Type.Set {
			typ = f.Type.Value
		}
		out[i] = signature.FieldSpec{
			Name:        *f.Name,
			Type:        typ,
			Description: f.Description,
			Prefix:      f.Prefix,
		}
	}
	return out
}
