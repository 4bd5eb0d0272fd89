package signature

// Build resolves a Spec into a Signature. Missing or empty descriptions fall
// back to "Input field: <name>" / "Output field: <name>"; missing or empty
// instructions fall back to DefaultInstructions. Build cannot fail: shape
// validation happens before a Spec reaches it.
func Build(spec Spec) *Signature {
	sig := newSignature(instructionsOrDefault(spec.Instructions))
	for _, f := range spec.Inputs {
		sig.set(resolve(f, Input, "Input field: "))
	}
	for _, f := range spec.Outputs {
		sig.set(resolve(f, Output, "Output field: "))
	}
	return sig
}

func resolve(f FieldSpec, side Side, fallbackPrefix string) Field {
	desc := ""
	if f.Description != nil {
		desc = *f.Description
	}
	if desc == "" {
		desc = fallbackPrefix + f.Name
	}
	return Field{
		Name:        f.Name,
		Description: desc,
		Prefix:      f.Prefix,
		Side:        side,
	}
}

func instructionsOrDefault(s *string) string {
	if s == nil || *s == "" {
		return DefaultInstructions
	}
	return *s
}
