// Package signature turns a declarative list of input and output fields into
// an ordered Signature: the field descriptors plus the instructions a
// prompting strategy is bound to.
package signature

const (
	DefaultFieldType    = "string"
	DefaultInstructions = "Dynamic DSPy Signature"
)

// FieldSpec is one field as received on the wire. Description and Prefix stay
// nil when the caller omitted them so the request can be echoed verbatim.
type FieldSpec struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description *string `json:"description"`
	Prefix      *string `json:"prefix"`
}

// Spec is the declarative description a Signature is built from. It doubles
// as the signature_dict echoed back to callers.
type Spec struct {
	Inputs       []FieldSpec `json:"inputs"`
	Outputs      []FieldSpec `json:"outputs"`
	Instructions *string     `json:"instructions"`
}
