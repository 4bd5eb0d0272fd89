package signature

// Side says whether a field is consumed or produced by the task.
type Side int

const (
	Input Side = iota + 1
	Output
)

func (s Side) String() string {
	switch s {
	case Input:
		return "input"
	case Output:
		return "output"
	default:
		return "unknown"
	}
}

// Field is a resolved descriptor. Description is never empty for fields
// produced by Build.
type Field struct {
	Name        string
	Description string
	Prefix      *string
	Side        Side
}

// Signature holds fields in declaration order. Names are unique across both
// sides: declaring a name again replaces the earlier descriptor in place, so
// an output reusing an input's name moves that slot to the output side.
type Signature struct {
	Instructions string

	fields []Field
	index  map[string]int
}

func newSignature(instructions string) *Signature {
	return &Signature{Instructions: instructions, index: map[string]int{}}
}

func (s *Signature) set(f Field) {
	if i, ok := s.index[f.Name]; ok {
		s.fields[i] = f
		return
	}
	s.index[f.Name] = len(s.fields)
	s.fields = append(s.fields, f)
}

// Field looks a descriptor up by name.
func (s *Signature) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

func (s *Signature) InputFields() []Field  { return s.filter(Input) }
func (s *Signature) OutputFields() []Field { return s.filter(Output) }

func (s *Signature) Len() int { return len(s.fields) }

func (s *Signature) filter(side Side) []Field {
	out := make([]Field, 0, len(s.fields))
	for _, f := range s.fields {
		if f.Side == side {
			out = append(out, f)
		}
	}
	return out
}

// Prepend returns a copy of s with f placed before every existing field.
// An existing field with the same name is dropped from its old slot.
func (s *Signature) Prepend(f Field) *Signature {
	out := newSignature(s.Instructions)
	out.set(f)
	for _, existing := range s.fields {
		if existing.Name == f.Name {
			continue
		}
		out.set(existing)
	}
	return out
}
