package chat

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers delimiting the regenerable documents section inside the
// system prompt. A valid system prompt contains exactly one of each, opening
// marker first.
const (
	docsOpen  = "<documents>"
	docsClose = "</documents>"
)

// ErrTemplateCorrupted reports a system prompt whose documents marker pair is
// missing, duplicated, or out of order, so the documents section can no
// longer be located.
var ErrTemplateCorrupted = errors.New("documents markers missing or malformed in system prompt")

// Template is the canonical form of the system prompt: the text before and
// after the documents section, parsed once at construction. The flat string
// handed to the model is a derived view regenerated by Render, so document
// mutations cannot corrupt the marker structure.
type Template struct {
	prefix string // text before the opening marker
	suffix string // text after the closing marker
}

// parseTemplate splits raw on the marker pair. It fails with
// ErrTemplateCorrupted unless each marker occurs exactly once, in order.
func parseTemplate(raw string) (*Template, error) {
	if strings.Count(raw, docsOpen) != 1 || strings.Count(raw, docsClose) != 1 {
		return nil, ErrTemplateCorrupted
	}
	openIdx := strings.Index(raw, docsOpen)
	closeIdx := strings.Index(raw, docsClose)
	if closeIdx < openIdx {
		return nil, ErrTemplateCorrupted
	}
	return &Template{
		prefix: raw[:openIdx],
		suffix: raw[closeIdx+len(docsClose):],
	}, nil
}

// NewTemplate parses raw into a Template. A prompt without a usable marker
// pair is repaired once, at construction: any stray markers are dropped and
// an empty documents section is appended to the given text. Later corruption
// of a rendered string is a separate condition handled by the integrity
// check, not here.
func NewTemplate(raw string) *Template {
	if t, err := parseTemplate(raw); err == nil {
		return t
	}
	repaired := strings.ReplaceAll(raw, docsOpen, "")
	repaired = strings.ReplaceAll(repaired, docsClose, "")
	prefix := ""
	if trimmed := strings.TrimRight(repaired, " \t\n"); trimmed != "" {
		prefix = trimmed + "\n\n"
	}
	return &Template{prefix: prefix}
}

// Render materializes the flat system prompt for the given document snapshot.
// Rendering is pure: identical snapshots produce byte-identical output.
func (t *Template) Render(docs []Document) string {
	var sb strings.Builder
	sb.WriteString(t.prefix)
	sb.WriteString(docsOpen)
	sb.WriteString("\n")
	for i, d := range docs {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "  <document index=\"%d\">\n", i+1)
		fmt.Fprintf(&sb, "    <source>%s</source>\n", d.Key)
		fmt.Fprintf(&sb, "    <document_content>\n      %s\n    </document_content>\n", d.Content)
		sb.WriteString("  </document>")
	}
	sb.WriteString("\n")
	sb.WriteString(docsClose)
	sb.WriteString(t.suffix)
	return sb.String()
}

// validSystem reports whether s still carries exactly one well-formed marker
// pair. Used as the integrity check on cached system strings before every
// model-facing read.
func validSystem(s string) bool {
	_, err := parseTemplate(s)
	return err == nil
}

// documentSection extracts the inner text of the documents section from a
// flat system string. It fails with ErrTemplateCorrupted when the marker
// pair is missing or malformed.
func documentSection(s string) (string, error) {
	if !validSystem(s) {
		return "", ErrTemplateCorrupted
	}
	openIdx := strings.Index(s, docsOpen) + len(docsOpen)
	closeIdx := strings.Index(s, docsClose)
	return s[openIdx:closeIdx], nil
}
