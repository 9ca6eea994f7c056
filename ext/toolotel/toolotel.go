// Package toolotel adds OpenTelemetry tracing to tool executions and model requests.
package toolotel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/skosovsky/toolbridge"
)

const instrumentationName = "github.com/skosovsky/toolbridge/ext/toolotel"

// Span and attribute names.
const (
	SpanToolExecute  = "toolbridge.tool.execute"
	SpanModelRequest = "toolbridge.model.generate"

	AttrToolName      = "tool.name"
	AttrToolDangerous = "tool.dangerous"
	AttrToolTags      = "tool.tags"
	AttrArgsBytes     = "tool.args.bytes"
	AttrResultBytes   = "tool.result.bytes"
	AttrClientError   = "tool.client_error"
	AttrMessages      = "model.messages"
	AttrTools         = "model.tools"
	AttrToolCalls     = "model.tool_calls"
)

func tracerOrDefault(tracer trace.Tracer) trace.Tracer {
	if tracer == nil {
		return otel.Tracer(instrumentationName)
	}
	return tracer
}

// Middleware returns a toolbridge.Middleware that wraps every Execute in a span.
// A nil tracer uses the global provider.
func Middleware(tracer trace.Tracer) toolbridge.Middleware {
	tracer = tracerOrDefault(tracer)
	return func(next toolbridge.Tool) toolbridge.Tool {
		attrs := []attribute.KeyValue{attribute.String(AttrToolName, next.Name())}
		if tm, ok := next.(toolbridge.ToolMetadata); ok {
			attrs = append(attrs, attribute.Bool(AttrToolDangerous, tm.IsDangerous()))
			if tags := tm.Tags(); len(tags) > 0 {
				attrs = append(attrs, attribute.StringSlice(AttrToolTags, tags))
			}
		}
		return toolbridge.WrapTool(next, func(ctx context.Context, args []byte, exec toolbridge.ExecuteFunc) (string, error) {
			ctx, span := tracer.Start(ctx, SpanToolExecute, trace.WithAttributes(attrs...),
				trace.WithAttributes(attribute.Int(AttrArgsBytes, len(args))))
			defer span.End()
			out, err := exec(ctx, args)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
				span.SetAttributes(attribute.Bool(AttrClientError, toolbridge.IsClientError(err)))
				return out, err
			}
			span.SetAttributes(attribute.Int(AttrResultBytes, len(out)))
			return out, nil
		})
	}
}

// Model wraps a toolbridge.Model so every request is traced.
type Model struct {
	next   toolbridge.Model
	tracer trace.Tracer
}

// WrapModel returns next with tracing. A nil tracer uses the global provider.
func WrapModel(next toolbridge.Model, tracer trace.Tracer) *Model {
	return &Model{next: next, tracer: tracerOrDefault(tracer)}
}

// Generate implements toolbridge.Model.
func (m *Model) Generate(ctx context.Context, messages []toolbridge.Message, tools []toolbridge.Descriptor) (toolbridge.Message, error) {
	ctx, span := m.tracer.Start(ctx, SpanModelRequest, trace.WithAttributes(
		attribute.Int(AttrMessages, len(messages)),
		attribute.Int(AttrTools, len(tools)),
	))
	defer span.End()
	msg, err := m.next.Generate(ctx, messages, tools)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return msg, err
	}
	span.SetAttributes(attribute.Int(AttrToolCalls, len(msg.ToolCalls)))
	return msg, nil
}

var _ toolbridge.Model = (*Model)(nil)
