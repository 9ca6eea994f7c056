// Package render prints the conversation to the terminal.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/skosovsky/toolbridge"
)

// Palette follows a warm dark theme; colors degrade to plain text when w is not a terminal.
var (
	colorAccent = lipgloss.Color("#D2A679")
	colorMuted  = lipgloss.Color("#888888")
	colorError  = lipgloss.Color("#EF4444")
	colorTool   = lipgloss.Color("#10B981")
)

const maxArgPreview = 60

// Renderer writes styled assistant output. Not safe for concurrent use.
type Renderer struct {
	out   io.Writer
	md    *glamour.TermRenderer
	name  lipgloss.Style
	tool  lipgloss.Style
	muted lipgloss.Style
	err   lipgloss.Style
}

// New creates a Renderer. style is a glamour style name or path ("auto", "dark", "light", "notty", ...);
// width <= 0 disables word wrap.
func New(out io.Writer, style string, width int) (*Renderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(max(width, 0))}
	if style == "" || style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStylePath(style))
	}
	md, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("markdown renderer: %w", err)
	}
	lr := lipgloss.NewRenderer(out)
	return &Renderer{
		out:   out,
		md:    md,
		name:  lr.NewStyle().Bold(true).Foreground(colorAccent),
		tool:  lr.NewStyle().Foreground(colorTool),
		muted: lr.NewStyle().Foreground(colorMuted),
		err:   lr.NewStyle().Bold(true).Foreground(colorError),
	}, nil
}

// Assistant prints a final answer under the speaker name. Markdown that fails to render is printed as is.
func (r *Renderer) Assistant(name, text string) {
	fmt.Fprintln(r.out, r.name.Render(name+":"))
	body, err := r.md.Render(text)
	if err != nil {
		body = text + "\n"
	}
	fmt.Fprint(r.out, body)
}

// ToolCall prints a "[TOOL] name [arg=value ...]" line.
func (r *Renderer) ToolCall(call toolbridge.ToolCall) {
	fmt.Fprintln(r.out, r.tool.Render(FormatToolCall(call)))
}

// ToolError prints a failed tool result.
func (r *Renderer) ToolError(res toolbridge.ToolResult) {
	if res.Err == nil {
		return
	}
	fmt.Fprintln(r.out, r.muted.Render(fmt.Sprintf("[TOOL] %s failed: %v", res.ToolName, res.Err)))
}

// Info prints a muted status line.
func (r *Renderer) Info(format string, args ...any) {
	fmt.Fprintln(r.out, r.muted.Render(fmt.Sprintf(format, args...)))
}

// Error prints err in the error style.
func (r *Renderer) Error(err error) {
	fmt.Fprintln(r.out, r.err.Render("Error: "+err.Error()))
}

// FormatToolCall renders call arguments sorted by name; arguments that are not a JSON object are shown raw.
func FormatToolCall(call toolbridge.ToolCall) string {
	var b strings.Builder
	b.WriteString("[TOOL] ")
	b.WriteString(call.ToolName)
	raw := strings.TrimSpace(call.Args)
	if raw == "" || raw == "{}" || raw == "null" {
		return b.String()
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		b.WriteString(" [")
		b.WriteString(truncate(raw))
		b.WriteString("]")
		return b.String()
	}
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+truncate(argText(args[k])))
	}
	b.WriteString(" [")
	b.WriteString(strings.Join(parts, " "))
	b.WriteString("]")
	return b.String()
}

func argText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func truncate(s string) string {
	s = strings.ReplaceAll(s, "\n", `\n`)
	r := []rune(s)
	if len(r) <= maxArgPreview {
		return s
	}
	return string(r[:maxArgPreview]) + "..."
}
