package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/yungbote/sigcompile/internal/compile/artifact"
	"github.com/yungbote/sigcompile/internal/compile/module"
	"github.com/yungbote/sigcompile/internal/compile/signature"
	"github.com/yungbote/sigcompile/internal/observability"
	"github.com/yungbote/sigcompile/internal/platform/logger"
)

type memStore struct {
	mu      sync.Mutex
	saved   []*artifact.Artifact
	saveErr error
}

func (m *memStore) Save(_ context.Context, a *artifact.Artifact) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = uuid.New()
	m.saved = append(m.saved, a)
	return nil
}

func (m *memStore) Get(context.Context, uuid.UUID) (*artifact.Artifact, error) {
	return nil, artifact.ErrNotFound
}
func (m *memStore) List(context.Context, int) ([]*artifact.Artifact, error) { return nil, nil }
func (m *memStore) Ping(context.Context) error                             { return nil }
func (m *memStore) Close() error                                           { return nil }

func questionAnswer() signature.Spec {
	return signature.Spec{
		Inputs:  []signature.FieldSpec{{Name: "question", Type: "string"}},
		Outputs: []signature.FieldSpec{{Name: "answer", Type: "string"}},
	}
}

func TestCompilePredict(t *testing.T) {
	c := NewCompiler(logger.Nop(), nil, Options{})

	res, err := c.Compile(context.Background(), Request{Spec: questionAnswer(), Module: "Predict"})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	want := "Dynamic DSPy Signature\n\n--- Inputs ---\nquestion: Input field: question\n\n--- Outputs ---\nanswer: Output field: answer"
	if res.Prompt != want {
		t.Fatalf("prompt=%q", res.Prompt)
	}
	if res.ModuleType != "Predict" {
		t.Fatalf("module type=%q", res.ModuleType)
	}
	if diff := cmp.Diff(questionAnswer(), res.SignatureDict); diff != "" {
		t.Fatalf("signature dict (-want +got):\n%s", diff)
	}
	if res.ArtifactID != "" {
		t.Fatalf("no artifact expected without a store, got %q", res.ArtifactID)
	}
}

func TestCompileUnknownModule(t *testing.T) {
	c := NewCompiler(logger.Nop(), nil, Options{})

	_, err := c.Compile(context.Background(), Request{Spec: questionAnswer(), Module: "UnknownType"})
	if !errors.Is(err, module.ErrInvalidModuleType) {
		t.Fatalf("expected ErrInvalidModuleType, got %v", err)
	}
	if err.Error() != "Unknown module type: UnknownType" {
		t.Fatalf("message=%q", err.Error())
	}
}

func TestCompileEmptyModuleIsUnknown(t *testing.T) {
	c := NewCompiler(logger.Nop(), nil, Options{})

	_, err := c.Compile(context.Background(), Request{Spec: questionAnswer()})
	if !errors.Is(err, module.ErrInvalidModuleType) {
		t.Fatalf("expected ErrInvalidModuleType, got %v", err)
	}
}

func TestCompileRecordsArtifact(t *testing.T) {
	store := &memStore{}
	c := NewCompiler(logger.Nop(), store, Options{Model: "openai/gpt-4"})

	res, err := c.Compile(context.Background(), Request{Spec: questionAnswer(), Module: "ChainOfThought"})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if len(store.saved) != 1 {
		t.Fatalf("saved=%d", len(store.saved))
	}
	a := store.saved[0]
	if res.ArtifactID != a.ID.String() {
		t.Fatalf("artifact id=%q want %q", res.ArtifactID, a.ID)
	}
	if a.ModuleType != "ChainOfThought" || a.Model != "openai/gpt-4" || a.CompiledPrompt != res.Prompt {
		t.Fatalf("artifact=%+v", a)
	}
	var dict signature.Spec
	if err := json.Unmarshal(a.SignatureDict, &dict); err != nil {
		t.Fatalf("decode dict: %v", err)
	}
	if diff := cmp.Diff(questionAnswer(), dict); diff != "" {
		t.Fatalf("stored dict (-want +got):\n%s", diff)
	}
}

func TestCompileSurvivesStoreFailure(t *testing.T) {
	store := &memStore{saveErr: errors.New("disk full")}
	c := NewCompiler(logger.Nop(), store, Options{})

	res, err := c.Compile(context.Background(), Request{Spec: questionAnswer(), Module: "ReAct"})
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.ArtifactID != "" || res.Prompt == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestCompileUnknownModuleSkipsStore(t *testing.T) {
	store := &memStore{}
	c := NewCompiler(logger.Nop(), store, Options{})

	if _, err := c.Compile(context.Background(), Request{Spec: questionAnswer(), Module: "Nope"}); err == nil {
		t.Fatalf("expected error")
	}
	if len(store.saved) != 0 {
		t.Fatalf("failed compile must not be recorded")
	}
}

func TestCompileObservesMetrics(t *testing.T) {
	m := observability.NewMetrics()
	c := NewCompiler(logger.Nop(), nil, Options{Metrics: m})

	for _, mod := range []string{"Predict", "Predict", "ReAct", "Nope"} {
		_, _ = c.Compile(context.Background(), Request{Spec: questionAnswer(), Module: mod})
	}
	if got := m.CompileCount("Predict"); got != 2 {
		t.Fatalf("Predict compiles=%v", got)
	}
	if got := m.CompileCount("ReAct"); got != 1 {
		t.Fatalf("ReAct compiles=%v", got)
	}
	if got := m.CompileCount("Nope"); got != 0 {
		t.Fatalf("unknown module names must not become label values, got %v", got)
	}
}
