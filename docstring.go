package toolbridge

import (
	"regexp"
	"strings"
)

// Docstring is the parsed form of a tool's Google-style documentation:
//
//	Reads a file from disk.
//
//	Args:
//	    filepath: Path of the file to read.
//	    max_bytes (int): Optional cap on the number of bytes returned.
//
//	Returns:
//	    The file contents.
type Docstring struct {
	Description string
	Args        map[string]string
	Returns     string
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	argLine       = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*(?:\([^)]*\))?\s*:\s*(.*)$`)
)

type docSection int

const (
	sectionBody docSection = iota
	sectionArgs
	sectionReturns
	sectionOther
)

// ParseDocstring splits doc into its description, Args and Returns sections.
// Section text is whitespace-collapsed; unknown sections (Raises:, Example:) are skipped.
func ParseDocstring(doc string) Docstring {
	ds := Docstring{Args: make(map[string]string)}
	var (
		body, returns []string
		section       = sectionBody
		argIndent     = -1
		current       string
	)
	for _, line := range strings.Split(doc, "\n") {
		trimmed := strings.TrimSpace(line)
		if s, ok := sectionHeader(trimmed); ok {
			section = s
			argIndent = -1
			current = ""
			continue
		}
		switch section {
		case sectionBody:
			body = append(body, trimmed)
		case sectionReturns:
			returns = append(returns, trimmed)
		case sectionArgs:
			if trimmed == "" {
				continue
			}
			indent := len(line) - len(strings.TrimLeft(line, " \t"))
			if m := argLine.FindStringSubmatch(trimmed); m != nil && (argIndent < 0 || indent <= argIndent) {
				argIndent = indent
				current = m[1]
				ds.Args[current] = m[2]
				continue
			}
			if current != "" {
				ds.Args[current] += " " + trimmed
			}
		}
	}
	ds.Description = collapse(strings.Join(body, " "))
	ds.Returns = collapse(strings.Join(returns, " "))
	for name, text := range ds.Args {
		ds.Args[name] = collapse(text)
	}
	return ds
}

func sectionHeader(line string) (docSection, bool) {
	if !strings.HasSuffix(line, ":") || strings.Contains(line, " ") {
		return 0, false
	}
	switch strings.ToLower(strings.TrimSuffix(line, ":")) {
	case "args", "arguments", "parameters", "params":
		return sectionArgs, true
	case "returns", "return", "yields":
		return sectionReturns, true
	case "raises", "example", "examples", "note", "notes", "see":
		return sectionOther, true
	}
	return 0, false
}

func collapse(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
