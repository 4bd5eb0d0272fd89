// Package module binds a Signature to one of the supported prompting
// strategies.
package module

import (
	"errors"
	"fmt"

	"github.com/yungbote/sigcompile/internal/compile/signature"
)

type Kind int

const (
	Predict Kind = iota + 1
	ChainOfThought
	ReAct
)

const Default = ChainOfThought

var kindNames = map[Kind]string{
	Predict:        "Predict",
	ChainOfThought: "ChainOfThought",
	ReAct:          "ReAct",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Kinds lists the supported strategies in a stable order.
func Kinds() []Kind { return []Kind{Predict, ChainOfThought, ReAct} }

var ErrInvalidModuleType = errors.New("invalid module type")

// InvalidModuleTypeError names a strategy outside the supported set.
type InvalidModuleTypeError struct {
	Name string
}

func (e *InvalidModuleTypeError) Error() string {
	return "Unknown module type: " + e.Name
}

func (e *InvalidModuleTypeError) Is(target error) bool {
	return target == ErrInvalidModuleType
}

// ParseKind maps a wire name onto a Kind. Matching is exact.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds() {
		if kindNames[k] == name {
			return k, nil
		}
	}
	return 0, &InvalidModuleTypeError{Name: name}
}

// Module is a strategy bound to a signature.
type Module interface {
	Kind() Kind
	Signature() *signature.Signature
}

type PredictModule struct {
	sig *signature.Signature
}

func (m *PredictModule) Kind() Kind                      { return Predict }
func (m *PredictModule) Signature() *signature.Signature { return m.sig }

const (
	reasoningField  = "reasoning"
	reasoningPrefix = "Reasoning: Let's think step by step in order to"
)

// ChainOfThoughtModule asks for a rationale before the declared outputs.
type ChainOfThoughtModule struct {
	sig *signature.Signature
}

func (m *ChainOfThoughtModule) Kind() Kind                      { return ChainOfThought }
func (m *ChainOfThoughtModule) Signature() *signature.Signature { return m.sig }

// Extended is the signature actually sent to a model: the bound signature with
// a leading reasoning output. The compiled prompt renders the bound signature,
// so this is only built on demand.
func (m *ChainOfThoughtModule) Extended() *signature.Signature {
	prefix := reasoningPrefix
	return m.sig.Prepend(signature.Field{
		Name:        reasoningField,
		Description: "${" + reasoningField + "}",
		Prefix:      &prefix,
		Side:        signature.Output,
	})
}

const DefaultMaxIters = 5

// ReActModule interleaves reasoning with tool calls, bounded by MaxIters.
type ReActModule struct {
	sig      *signature.Signature
	MaxIters int
}

func (m *ReActModule) Kind() Kind                      { return ReAct }
func (m *ReActModule) Signature() *signature.Signature { return m.sig }

// Bind wraps sig in the strategy named by k.
func Bind(k Kind, sig *signature.Signature) (Module, error) {
	switch k {
	case Predict:
		return &PredictModule{sig: sig}, nil
	case ChainOfThought:
		return &ChainOfThoughtModule{sig: sig}, nil
	case ReAct:
		return &ReActModule{sig: sig, MaxIters: DefaultMaxIters}, nil
	default:
		return nil, &InvalidModuleTypeError{Name: k.String()}
	}
}

// Resolve parses name and binds the resulting strategy to sig.
func Resolve(name string, sig *signature.Signature) (Module, error) {
	k, err := ParseKind(name)
	if err != nil {
		return nil, err
	}
	return Bind(k, sig)
}
