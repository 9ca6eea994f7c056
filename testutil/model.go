package testutil

import (
	"context"
	"errors"
	"slices"
	"sync"

	"github.com/skosovsky/toolbridge"
)

// ErrScriptExhausted is returned by ScriptedModel when it has no reply left.
var ErrScriptExhausted = errors.New("testutil: scripted model has no more replies")

// Request is one recorded call to ScriptedModel.Generate.
type Request struct {
	Messages []toolbridge.Message
	Tools    []toolbridge.Descriptor
}

// Step is one scripted reply. A non-nil Err is returned instead of Reply.
type Step struct {
	Reply toolbridge.Message
	Err   error
}

// ScriptedModel replays a fixed list of replies and records every request.
type ScriptedModel struct {
	mu       sync.Mutex
	steps    []Step
	requests []Request
}

// NewScriptedModel returns a model answering with steps in order.
func NewScriptedModel(steps ...Step) *ScriptedModel {
	return &ScriptedModel{steps: steps}
}

// Reply is a Step answering with msg.
func Reply(msg toolbridge.Message) Step { return Step{Reply: msg} }

// Fail is a Step failing with err.
func Fail(err error) Step { return Step{Err: err} }

// Generate implements toolbridge.Model.
func (m *ScriptedModel) Generate(ctx context.Context, messages []toolbridge.Message, tools []toolbridge.Descriptor) (toolbridge.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, Request{Messages: slices.Clone(messages), Tools: slices.Clone(tools)})
	if err := ctx.Err(); err != nil {
		return toolbridge.Message{}, err
	}
	if len(m.steps) == 0 {
		return toolbridge.Message{}, ErrScriptExhausted
	}
	s := m.steps[0]
	m.steps = m.steps[1:]
	return s.Reply, s.Err
}

// Requests returns the requests seen so far.
func (m *ScriptedModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.requests)
}

var _ toolbridge.Model = (*ScriptedModel)(nil)
