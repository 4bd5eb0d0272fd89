package module

import (
	"errors"
	"fmt"
	"testing"

	"github.com/yungbote/sigcompile/internal/compile/signature"
)

func testSignature() *signature.Signature {
	return signature.Build(signature.Spec{
		Inputs:  []signature.FieldSpec{{Name: "question"}},
		Outputs: []signature.FieldSpec{{Name: "answer"}},
	})
}

func TestParseKind(t *testing.T) {
	for _, k := range Kinds() {
		got, err := ParseKind(k.String())
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", k, err)
		}
		if got != k {
			t.Fatalf("ParseKind(%q)=%v", k, got)
		}
	}
}

func TestParseKindRejectsUnknown(t *testing.T) {
	for _, name := range []string{"UnknownType", "", "predict", "chainofthought", " ReAct"} {
		t.Run(fmt.Sprintf("%q", name), func(t *testing.T) {
			_, err := ParseKind(name)
			if !errors.Is(err, ErrInvalidModuleType) {
				t.Fatalf("expected ErrInvalidModuleType, got %v", err)
			}
			var typed *InvalidModuleTypeError
			if !errors.As(err, &typed) || typed.Name != name {
				t.Fatalf("expected typed error carrying %q, got %v", name, err)
			}
		})
	}
}

func TestInvalidModuleTypeMessage(t *testing.T) {
	_, err := Resolve("UnknownType", testSignature())
	if err == nil || err.Error() != "Unknown module type: UnknownType" {
		t.Fatalf("err=%v", err)
	}
}

func TestResolveBindsSignature(t *testing.T) {
	sig := testSignature()
	for _, k := range Kinds() {
		t.Run(k.String(), func(t *testing.T) {
			m, err := Resolve(k.String(), sig)
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if m.Kind() != k {
				t.Fatalf("kind=%v", m.Kind())
			}
			if m.Signature() != sig {
				t.Fatalf("module should expose the bound signature unchanged")
			}
		})
	}
}

func TestChainOfThoughtExtendedSignature(t *testing.T) {
	m, err := Bind(ChainOfThought, testSignature())
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	cot := m.(*ChainOfThoughtModule)
	out := cot.Extended().OutputFields()
	if len(out) != 2 || out[0].Name != "reasoning" || out[1].Name != "answer" {
		t.Fatalf("extended outputs=%+v", out)
	}
	if out[0].Prefix == nil || *out[0].Prefix != reasoningPrefix {
		t.Fatalf("reasoning prefix=%v", out[0].Prefix)
	}
	if len(cot.Signature().OutputFields()) != 1 {
		t.Fatalf("bound signature must not gain the reasoning field")
	}
	if again := cot.Extended().OutputFields(); len(again) != 2 {
		t.Fatalf("repeated Extended calls should not stack reasoning fields: %+v", again)
	}
}

func TestReActDefaults(t *testing.T) {
	m, err := Bind(ReAct, testSignature())
	if err != nil {
		t.Fatalf("Bind: %v", err)
	}
	if m.(*ReActModule).MaxIters != DefaultMaxIters {
		t.Fatalf("max iters=%d", m.(*ReActModule).MaxIters)
	}
}

func TestBindRejectsZeroKind(t *testing.T) {
	if _, err := Bind(Kind(0), testSignature()); !errors.Is(err, ErrInvalidModuleType) {
		t.Fatalf("expected ErrInvalidModuleType, got %v", err)
	}
}
