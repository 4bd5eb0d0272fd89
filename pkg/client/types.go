package client

import (
	"encoding/json"
	"time"
)

// Field mirrors one entry of the inputs/outputs lists. Nil pointers are sent
// as absent keys so the server applies its own defaults.
type Field struct {
	Name        string  `json:"name"`
	Type        *string `json:"type,omitempty"`
	Description *string `json:"description,omitempty"`
	Prefix      *string `json:"prefix,omitempty"`
}

type CompileRequest struct {
	Inputs       []Field `json:"inputs"`
	Outputs      []Field `json:"outputs"`
	Instructions *string `json:"instructions,omitempty"`
	Module       string  `json:"module,omitempty"`
}

type SignatureField struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description *string `json:"description"`
	Prefix      *string `json:"prefix"`
}

type SignatureDict struct {
	Inputs       []SignatureField `json:"inputs"`
	Outputs      []SignatureField `json:"outputs"`
	Instructions *string          `json:"instructions"`
}

type CompileResponse struct {
	CompiledPrompt string        `json:"compiled_prompt"`
	SignatureDict  SignatureDict `json:"signature_dict"`
	ModuleType     string        `json:"module_type"`

	// ArtifactID comes from the X-Artifact-Id header; empty when the server
	// did not record the compile.
	ArtifactID string `json:"-"`
}

type Artifact struct {
	ID             string          `json:"id"`
	CreatedAt      time.Time       `json:"created_at"`
	ModuleType     string          `json:"module_type"`
	Model          string          `json:"model"`
	CompiledPrompt string          `json:"compiled_prompt"`
	SignatureDict  json.RawMessage `json:"signature_dict"`
}

type healthResponse struct {
	Status string `json:"status"`
}
