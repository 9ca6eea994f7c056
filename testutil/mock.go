// Package testutil provides test helpers for toolbridge (MockTool, ScriptedModel).
package testutil

import (
	"context"

	"github.com/skosovsky/toolbridge"
)

// MockTool is a configurable Tool implementation for tests.
type MockTool struct {
	NameVal   string
	DescVal   string
	DescrVal  *toolbridge.Descriptor
	ExecuteFn func(ctx context.Context, args []byte) (string, error)
}

// Name returns the tool name.
func (m *MockTool) Name() string {
	if m.NameVal != "" {
		return m.NameVal
	}
	return "mock"
}

// Description returns the tool description.
func (m *MockTool) Description() string {
	return m.DescVal
}

// Descriptor returns DescrVal, or a descriptor without parameters.
func (m *MockTool) Descriptor() toolbridge.Descriptor {
	if m.DescrVal != nil {
		return *m.DescrVal
	}
	return toolbridge.Descriptor{Name: m.Name(), Description: m.DescVal}
}

// Execute runs ExecuteFn if set, otherwise returns an empty result.
func (m *MockTool) Execute(ctx context.Context, args []byte) (string, error) {
	if m.ExecuteFn != nil {
		return m.ExecuteFn(ctx, args)
	}
	return "", nil
}

// Ensure MockTool implements Tool.
var _ toolbridge.Tool = (*MockTool)(nil)
