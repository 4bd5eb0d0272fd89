// Package service runs the compile pipeline: build the signature, bind the
// requested strategy, render the prompt, then optionally record an artifact.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/yungbote/sigcompile/internal/compile/artifact"
	"github.com/yungbote/sigcompile/internal/compile/module"
	"github.com/yungbote/sigcompile/internal/compile/render"
	"github.com/yungbote/sigcompile/internal/compile/signature"
	"github.com/yungbote/sigcompile/internal/observability"
	"github.com/yungbote/sigcompile/internal/platform/ctxutil"
	"github.com/yungbote/sigcompile/internal/platform/logger"
)

const tracerName = "github.com/yungbote/sigcompile/internal/compile/service"

type Request struct {
	Spec signature.Spec

	// Module names the strategy verbatim; callers apply module.Default
	// when the field was omitted.
	Module string
}

type Result struct {
	Prompt        string
	SignatureDict signature.Spec
	ModuleType    string

	// ArtifactID is set when the result was recorded.
	ArtifactID string
}

type Options struct {
	// Model is recorded on artifacts, e.g. "openai/gpt-4".
	Model       string
	SaveTimeout time.Duration

	// Metrics may be nil.
	Metrics *observability.Metrics
}

type Compiler struct {
	log    *logger.Logger
	store  artifact.Store
	tracer trace.Tracer
	opts   Options
}

func NewCompiler(log *logger.Logger, store artifact.Store, opts Options) *Compiler {
	if store == nil {
		store = artifact.Nop()
	}
	if opts.SaveTimeout <= 0 {
		opts.SaveTimeout = 2 * time.Second
	}
	return &Compiler{
		log:    log.With("service", "Compiler"),
		store:  store,
		tracer: otel.Tracer(tracerName),
		opts:   opts,
	}
}

// Compile never partially succeeds: the first stage error aborts the request.
// Artifact persistence is best-effort and cannot fail a compile.
func (c *Compiler) Compile(ctx context.Context, req Request) (*Result, error) {
	moduleName := req.Module
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "compile", trace.WithAttributes(
		attribute.String("compile.module", moduleName),
		attribute.Int("compile.inputs", len(req.Spec.Inputs)),
		attribute.Int("compile.outputs", len(req.Spec.Outputs)),
	))
	defer span.End()

	_, buildSpan := c.tracer.Start(ctx, "signature.build")
	sig := signature.Build(req.Spec)
	buildSpan.End()

	_, resolveSpan := c.tracer.Start(ctx, "module.resolve")
	mod, err := module.Resolve(moduleName, sig)
	if err != nil {
		resolveSpan.RecordError(err)
		resolveSpan.SetStatus(codes.Error, err.Error())
		resolveSpan.End()
		span.SetStatus(codes.Error, err.Error())
		c.opts.Metrics.ObserveCompile(moduleName, false, 0, time.Since(start))
		return nil, err
	}
	resolveSpan.End()

	_, renderSpan := c.tracer.Start(ctx, "prompt.render")
	prompt := render.Module(mod)
	renderSpan.SetAttributes(attribute.Int("prompt.bytes", len(prompt)))
	renderSpan.End()
	c.opts.Metrics.ObserveCompile(moduleName, true, len(prompt), time.Since(start))

	res := &Result{
		Prompt:        prompt,
		SignatureDict: req.Spec,
		ModuleType:    moduleName,
	}
	res.ArtifactID = c.record(ctx, res)
	return res, nil
}

func (c *Compiler) record(ctx context.Context, res *Result) string {
	dict, err := json.Marshal(res.SignatureDict)
	if err != nil {
		c.log.Warn("encode signature dict failed", "error", err, "request_id", ctxutil.RequestID(ctx))
		return ""
	}

	saveCtx, cancel := context.WithTimeout(ctx, c.opts.SaveTimeout)
	defer cancel()
	saveCtx, span := c.tracer.Start(saveCtx, "artifact.save")
	defer span.End()

	a := &artifact.Artifact{
		ModuleType:     res.ModuleType,
		Model:          c.opts.Model,
		CompiledPrompt: res.Prompt,
		SignatureDict:  datatypes.JSON(dict),
	}
	if err := c.store.Save(saveCtx, a); err != nil {
		if errors.Is(err, artifact.ErrDisabled) {
			return ""
		}
		c.opts.Metrics.ObserveArtifactSave("error")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.Warn("artifact save failed", "error", err, "request_id", ctxutil.RequestID(ctx))
		return ""
	}
	c.opts.Metrics.ObserveArtifactSave("ok")
	span.SetAttributes(attribute.String("artifact.id", a.ID.String()))
	return a.ID.String()
}
