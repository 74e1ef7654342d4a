// Package formula implements the structural view and surgical rewriting of
// Homebrew formula source text. The document model locates declarations by
// role (version, url, bottle, anchors) while preserving every byte it does
// not explicitly touch; the rewriter applies a validated set of
// non-overlapping span edits over the original source.
package formula

import (
	"strings"
)

// DeclKind distinguishes single-call declarations from do...end blocks.
type DeclKind int

const (
	// KindCall is a single method call declaration, e.g. `version "1.0.0"`.
	// Calls whose argument list continues on following lines (trailing
	// comma) span all continuation lines.
	KindCall DeclKind = iota

	// KindBlock is a named do...end construct, e.g. `bottle do ... end`.
	KindBlock
)

// Decl is a located declaration in the original source.
//
// For calls, Start is the offset of the declaration's first non-whitespace
// byte and End the offset just past its last non-whitespace byte. For
// blocks, Start is the offset of the first byte of the opening line
// (including indentation) and End the offset just past the closing `end`
// keyword. Indent holds the leading whitespace of the declaration's first
// line so replacements can reproduce the surrounding layout.
type Decl struct {
	Name   string
	Kind   DeclKind
	Start  int
	End    int
	Indent string
}

// Document is an immutable parse of formula source text. It records the
// declarations found in the formula class body; all other bytes are kept
// verbatim and reproduced untouched by the rewriter.
type Document struct {
	src   []byte
	decls []Decl
}

// Source returns the original source text the document was parsed from.
func (d *Document) Source() []byte {
	return d.src
}

// Call returns the first call declaration with the given name, in document
// order. Absence is a valid result.
func (d *Document) Call(name string) (Decl, bool) {
	return d.find(name, KindCall)
}

// Block returns the first block declaration with the given name.
func (d *Document) Block(name string) (Decl, bool) {
	return d.find(name, KindBlock)
}

// Anchor returns the declaration after which a new bottle block should be
// inserted when none exists: the `license` call if present, otherwise the
// `url` call.
func (d *Document) Anchor() (Decl, bool) {
	if decl, ok := d.Call("license"); ok {
		return decl, true
	}
	return d.Call("url")
}

func (d *Document) find(name string, kind DeclKind) (Decl, bool) {
	for _, decl := range d.decls {
		if decl.Name == name && decl.Kind == kind {
			return decl, true
		}
	}
	return Decl{}, false
}

// line is a single source line with its byte offsets.
type line struct {
	start int // offset of the first byte of the line
	end   int // offset just past the last byte of the line (excl. newline)
	text  string
}

func splitLines(src []byte) []line {
	var lines []line
	start := 0
	s := string(src)
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, line{start: start, end: i, text: s[start:i]})
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, line{start: start, end: len(s), text: s[start:]})
	}
	return lines
}

// Parse scans formula source into a Document. The scan is line oriented:
// it tracks do/end block depth so only declarations in the formula class
// body are recorded, and it captures byte spans so the rewriter can
// substitute declarations without disturbing anything around them.
func Parse(src []byte) *Document {
	doc := &Document{src: src}
	lines := splitLines(src)

	depth := 0
	bodyDepth := 0

	for i := 0; i < len(lines); i++ {
		ln := lines[i]
		trimmed := strings.TrimSpace(ln.text)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if trimmed == "end" || strings.HasPrefix(trimmed, "end ") {
			if depth > 0 {
				depth--
			}
			continue
		}

		indent := ln.text[:len(ln.text)-len(strings.TrimLeft(ln.text, " \t"))]

		if opensBlock(trimmed) {
			if name, ok := doBlockName(trimmed); ok && depth == bodyDepth {
				// Consume the whole block so nothing inside it is
				// mistaken for a class-body declaration.
				endOffset, next := scanBlockEnd(lines, i)
				doc.decls = append(doc.decls, Decl{
					Name:   name,
					Kind:   KindBlock,
					Start:  ln.start,
					End:    endOffset,
					Indent: indent,
				})
				i = next
				continue
			}
			if depth == 0 && (strings.HasPrefix(trimmed, "class ") || strings.HasPrefix(trimmed, "module ")) {
				bodyDepth = 1
			}
			depth++
			continue
		}

		if depth != bodyDepth {
			continue
		}

		name, ok := callName(trimmed)
		if !ok {
			continue
		}
		end := ln.end - trailingSpace(ln.text)
		// Argument lists may continue over lines ending with a comma.
		for strings.HasSuffix(strings.TrimRight(lines[i].text, " \t"), ",") && i+1 < len(lines) {
			i++
			end = lines[i].end - trailingSpace(lines[i].text)
		}
		doc.decls = append(doc.decls, Decl{
			Name:   name,
			Kind:   KindCall,
			Start:  ln.start + len(indent),
			End:    end,
			Indent: indent,
		})
	}

	return doc
}

// scanBlockEnd finds the line closing the block opened at lines[open] and
// returns the offset just past its `end` keyword plus the index to resume
// scanning from.
func scanBlockEnd(lines []line, open int) (int, int) {
	inner := 1
	for j := open + 1; j < len(lines); j++ {
		trimmed := strings.TrimSpace(lines[j].text)
		if opensBlock(trimmed) {
			inner++
			continue
		}
		if trimmed == "end" || strings.HasPrefix(trimmed, "end ") {
			inner--
			if inner == 0 {
				return lines[j].end - trailingSpace(lines[j].text), j
			}
		}
	}
	// Unterminated block: treat everything to EOF as the block.
	last := lines[len(lines)-1]
	return last.end, len(lines) - 1
}

func trailingSpace(s string) int {
	return len(s) - len(strings.TrimRight(s, " \t"))
}

// opensBlock reports whether a (trimmed) line opens a Ruby block that is
// closed by a matching `end`.
func opensBlock(trimmed string) bool {
	if strings.HasSuffix(trimmed, " do") || trimmed == "do" {
		return true
	}
	for _, kw := range []string{"class ", "module ", "def ", "if ", "unless ", "case "} {
		if strings.HasPrefix(trimmed, kw) {
			return true
		}
	}
	return trimmed == "begin"
}

// doBlockName extracts the receiver name from a `<name> do` line.
func doBlockName(trimmed string) (string, bool) {
	rest, ok := strings.CutSuffix(trimmed, " do")
	if !ok {
		return "", false
	}
	if !isIdentifier(rest) {
		return "", false
	}
	return rest, true
}

// callName extracts the method name from a declaration line such as
// `version "1.0.0"` or `sha256 cellar: :any, arm64_sonoma: "..."`.
func callName(trimmed string) (string, bool) {
	name := trimmed
	if idx := strings.IndexAny(trimmed, " \t("); idx >= 0 {
		name = trimmed[:idx]
	}
	if !isIdentifier(name) {
		return "", false
	}
	return name, true
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r == '_':
		case r >= '0' && r <= '9' && i > 0:
		case (r == '!' || r == '?') && i == len(s)-1:
		default:
			return false
		}
	}
	return true
}
