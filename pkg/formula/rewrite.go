package formula

import (
	"fmt"
	"sort"
	"strings"

	"github.com/arthur-debert/tapbump/pkg/errors"
)

// BottleEntry is one per-platform checksum line of the bottle block.
type BottleEntry struct {
	Platform string
	SHA256   string
}

// RewriteSpec carries the new values the rewriter substitutes into the
// document: the release tag, the source url/revision pair, and the bottle
// checksums. Bottles are rendered in slice order.
type RewriteSpec struct {
	Tag        string
	CloneURL   string
	Revision   string
	RootURL    string
	Bottles    []BottleEntry
	Rebuild    int
	RebuildSet bool
}

// RootURL returns the release download root for a bottle block.
func RootURL(owner, repo, tag string) string {
	return fmt.Sprintf("https://github.com/%s/%s/releases/download/%s", owner, repo, tag)
}

// edit replaces src[start:end] with text. An insertion has start == end.
type edit struct {
	start int
	end   int
	text  string
}

// Rewrite produces the updated formula text. The full edit set is computed
// up front and validated before any byte is touched; an invalid edit aborts
// the whole rewrite with no partial result.
//
// Rules, in order: the version declaration span becomes `version "<tag>"`;
// the url declaration span becomes `url "<clone_url>", tag: ..., revision:
// ...`; an existing bottle block is replaced (or deleted when no bottles
// were matched), and when absent a new block is inserted after the
// license/url anchor, preceded by a blank line.
func Rewrite(doc *Document, spec RewriteSpec) ([]byte, error) {
	var edits []edit

	if decl, ok := doc.Call("version"); ok {
		edits = append(edits, edit{
			start: decl.Start,
			end:   decl.End,
			text:  fmt.Sprintf("version %q", spec.Tag),
		})
	}

	if decl, ok := doc.Call("url"); ok {
		edits = append(edits, edit{
			start: decl.Start,
			end:   decl.End,
			text:  fmt.Sprintf("url %q, tag: %q, revision: %q", spec.CloneURL, spec.Tag, spec.Revision),
		})
	}

	if block, ok := doc.Block("bottle"); ok {
		text := ""
		if len(spec.Bottles) > 0 {
			text = RenderBottleBlock(spec, block.Indent)
		}
		edits = append(edits, edit{start: block.Start, end: block.End, text: text})
	} else if len(spec.Bottles) > 0 {
		anchor, ok := doc.Anchor()
		if !ok {
			return nil, errors.New(errors.ErrFormulaStructure,
				"formula has no license or url declaration to anchor a new bottle block")
		}
		insert := "\n\n" + RenderBottleBlock(spec, anchor.Indent)
		edits = append(edits, edit{start: anchor.End, end: anchor.End, text: insert})
	}

	return applyEdits(doc.Source(), edits)
}

// RenderBottleBlock renders a complete bottle block with each line prefixed
// by indent. The rebuild line appears only when a rebuild was resolved;
// platform lines keep the order of spec.Bottles.
func RenderBottleBlock(spec RewriteSpec, indent string) string {
	var b strings.Builder
	b.WriteString(indent)
	b.WriteString("bottle do\n")
	fmt.Fprintf(&b, "%s  root_url %q\n", indent, spec.RootURL)
	if spec.RebuildSet {
		fmt.Fprintf(&b, "%s  rebuild %d\n", indent, spec.Rebuild)
	}
	for _, entry := range spec.Bottles {
		fmt.Fprintf(&b, "%s  sha256 cellar: :any, %s: %q\n", indent, entry.Platform, entry.SHA256)
	}
	b.WriteString(indent)
	b.WriteString("end")
	return b.String()
}

// applyEdits stitches the edits into src. Edits must be in bounds and
// non-overlapping; they are applied against the original coordinate space.
func applyEdits(src []byte, edits []edit) ([]byte, error) {
	sorted := make([]edit, len(edits))
	copy(sorted, edits)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].start < sorted[j].start
	})

	for i, e := range sorted {
		if e.start < 0 || e.end < e.start || e.end > len(src) {
			return nil, errors.Newf(errors.ErrRewriteInternal,
				"edit span [%d:%d) out of bounds for %d byte document", e.start, e.end, len(src))
		}
		if i > 0 && e.start < sorted[i-1].end {
			return nil, errors.Newf(errors.ErrRewriteInternal,
				"edit span [%d:%d) overlaps previous edit ending at %d", e.start, e.end, sorted[i-1].end)
		}
	}

	var out strings.Builder
	cursor := 0
	for _, e := range sorted {
		out.Write(src[cursor:e.start])
		out.WriteString(e.text)
		cursor = e.end
	}
	out.Write(src[cursor:])
	return []byte(out.String()), nil
}
