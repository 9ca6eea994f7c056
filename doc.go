// Package toolbridge connects plain Go functions to a language model that can
// call tools.
//
// # Overview
//
// A model sees tools as JSON Schema descriptors and answers with tool calls whose
// arguments are JSON objects. This package closes the gap in both directions:
//
//   - NewTool introspects a function's argument struct and docstring, maps every
//     field to a TypeHint and lowers it to the JSON Schema fragment the model sees.
//   - Execute decodes the model's arguments, coerces each value per its hint
//     (records become structs, lists are coerced element-wise, unions try their
//     variants in order) and calls the function.
//   - Loop drives the conversation: it sends the log with the descriptors of every
//     registered tool, executes requested calls in order, feeds results back and
//     repeats until the model answers in plain text.
//
// Pipeline: argument struct + docstring → NewTool → Descriptor → Registry →
// Loop → Model → ToolCall → Registry.Execute → ToolResult → Message.
//
// A failed call (unknown tool, bad arguments, a function error or panic) never
// ends the conversation; its message becomes the tool result so the model can
// correct itself. ClientError marks failures caused by the model's input.
//
// Subpackages: models adapts langchaingo chat models, ext/toolotel adds
// OpenTelemetry spans, and testutil holds test doubles. The assist command in
// cmd/assist is a terminal assistant built on top of this package.
//
// # Example
//
//	type GreetArgs struct {
//		Name string `json:"name"`
//	}
//	greet, err := toolbridge.NewTool("greet", `Greet a person.
//
//	Args:
//	    name: Who to greet.
//	`, func(_ context.Context, a GreetArgs) (string, error) {
//		return "Hello, " + a.Name + "!", nil
//	})
//	if err != nil { ... }
//	reg := toolbridge.NewRegistry()
//	_ = reg.Register(greet)
//	loop := toolbridge.NewLoop(model, reg, toolbridge.WithSystemPrompt("You are helpful."))
//	reply, err := loop.Send(ctx, "Say hi to John")
package toolbridge
