// Package render flattens a bound signature into a text prompt template.
package render

import (
	"strings"

	"github.com/yungbote/sigcompile/internal/compile/module"
	"github.com/yungbote/sigcompile/internal/compile/signature"
)

const (
	InputsHeader  = "--- Inputs ---"
	OutputsHeader = "--- Outputs ---"
)

// Module renders the signature m is bound to.
func Module(m module.Module) string {
	return Prompt(m.Signature())
}

// Prompt renders sig as:
//
//	<instructions>
//
//	--- Inputs ---
//	<name>: <description>
//
//	--- Outputs ---
//	<name>: <description>
//
// Each header is preceded by a blank line. Fields keep declaration order.
func Prompt(sig *signature.Signature) string {
	parts := make([]string, 0, sig.Len()+3)
	if sig.Instructions != "" {
		parts = append(parts, sig.Instructions)
	}

	parts = append(parts, "\n"+InputsHeader)
	parts = appendFields(parts, sig.InputFields())

	parts = append(parts, "\n"+OutputsHeader)
	parts = appendFields(parts, sig.OutputFields())

	return strings.Join(parts, "\n")
}

func appendFields(parts []string, fields []signature.Field) []string {
	for _, f := range fields {
		desc := f.Description
		if desc == "" {
			desc = f.Name
		}
		parts = append(parts, f.Name+": "+desc)
	}
	return parts
}
