// Test Type: Unit Test
// Description: Tests for the formula rewriter - span replacement, bottle block
// insertion/removal, and edit set validation

package formula

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	taperr "github.com/arthur-debert/tapbump/pkg/errors"
)

// 64 hex chars, the length of a real sha256 digest.
var testDigest = "abc123" + strings.Repeat("0", 58)

func testSpec() RewriteSpec {
	return RewriteSpec{
		Tag:      "v1.0.1",
		CloneURL: "https://github.com/mona/hello.git",
		Revision: "f00df00d",
		RootURL:  RootURL("mona", "hello", "v1.0.1"),
		Bottles:  []BottleEntry{{Platform: "arm64_sonoma", SHA256: testDigest}},
	}
}

func TestRootURL(t *testing.T) {
	assert.Equal(t,
		"https://github.com/mona/hello/releases/download/v1.0.1",
		RootURL("mona", "hello", "v1.0.1"))
}

func TestRenderBottleBlock(t *testing.T) {
	// The end-to-end rendering shape: root_url line, one sha256 line per
	// platform in order, no rebuild line unless resolved.
	got := RenderBottleBlock(testSpec(), "")
	want := "bottle do\n" +
		"  root_url \"https://github.com/mona/hello/releases/download/v1.0.1\"\n" +
		"  sha256 cellar: :any, arm64_sonoma: \"" + testDigest + "\"\n" +
		"end"
	assert.Equal(t, want, got)
}

func TestRenderBottleBlockWithRebuild(t *testing.T) {
	spec := testSpec()
	spec.Rebuild = 2
	spec.RebuildSet = true
	spec.Bottles = append(spec.Bottles, BottleEntry{Platform: "x86_64_linux", SHA256: testDigest})

	got := RenderBottleBlock(spec, "  ")
	want := "  bottle do\n" +
		"    root_url \"https://github.com/mona/hello/releases/download/v1.0.1\"\n" +
		"    rebuild 2\n" +
		"    sha256 cellar: :any, arm64_sonoma: \"" + testDigest + "\"\n" +
		"    sha256 cellar: :any, x86_64_linux: \"" + testDigest + "\"\n" +
		"  end"
	assert.Equal(t, want, got)
}

func TestRewriteReplacesExistingDeclarations(t *testing.T) {
	doc := Parse([]byte(sampleFormula))

	got, err := Rewrite(doc, testSpec())
	require.NoError(t, err)

	want := "class Hello < Formula\n" +
		"  desc \"Minimal greeter\"\n" +
		"  homepage \"https://github.com/mona/hello\"\n" +
		"  url \"https://github.com/mona/hello.git\", tag: \"v1.0.1\", revision: \"f00df00d\"\n" +
		"  version \"v1.0.1\"\n" +
		"  license \"MIT\"\n" +
		"\n" +
		"  bottle do\n" +
		"    root_url \"https://github.com/mona/hello/releases/download/v1.0.1\"\n" +
		"    sha256 cellar: :any, arm64_sonoma: \"" + testDigest + "\"\n" +
		"  end\n" +
		"\n" +
		"  depends_on \"cmake\" => :build\n" +
		"\n" +
		"  def install\n" +
		"    system \"make\", \"install\"\n" +
		"  end\n" +
		"\n" +
		"  test do\n" +
		"    system bin/\"hello\"\n" +
		"  end\n" +
		"end\n"
	assert.Equal(t, want, string(got))
}

func TestRewriteDeletesBottleBlockWhenNoBottles(t *testing.T) {
	doc := Parse([]byte(sampleFormula))
	spec := testSpec()
	spec.Bottles = nil

	got, err := Rewrite(doc, spec)
	require.NoError(t, err)

	assert.NotContains(t, string(got), "bottle do")
	assert.NotContains(t, string(got), "root_url")
	// Everything outside the removed block and the two rewritten calls
	// survives untouched.
	assert.Contains(t, string(got), "  depends_on \"cmake\" => :build\n")
	assert.Contains(t, string(got), "  test do\n")
}

func TestRewriteInsertsBottleBlockAfterLicense(t *testing.T) {
	src := "class Hello < Formula\n" +
		"  desc \"Minimal greeter\"\n" +
		"  url \"https://github.com/mona/hello.git\", tag: \"v1.0.0\", revision: \"0ddba110\"\n" +
		"  version \"1.0.0\"\n" +
		"  license \"MIT\"\n" +
		"\n" +
		"  def install\n" +
		"    system \"make\", \"install\"\n" +
		"  end\n" +
		"end\n"
	doc := Parse([]byte(src))

	got, err := Rewrite(doc, testSpec())
	require.NoError(t, err)

	want := "class Hello < Formula\n" +
		"  desc \"Minimal greeter\"\n" +
		"  url \"https://github.com/mona/hello.git\", tag: \"v1.0.1\", revision: \"f00df00d\"\n" +
		"  version \"v1.0.1\"\n" +
		"  license \"MIT\"\n" +
		"\n" +
		"  bottle do\n" +
		"    root_url \"https://github.com/mona/hello/releases/download/v1.0.1\"\n" +
		"    sha256 cellar: :any, arm64_sonoma: \"" + testDigest + "\"\n" +
		"  end\n" +
		"\n" +
		"  def install\n" +
		"    system \"make\", \"install\"\n" +
		"  end\n" +
		"end\n"
	assert.Equal(t, want, string(got))
}

func TestRewriteInsertsAfterURLWhenNoLicense(t *testing.T) {
	src := "class Hello < Formula\n" +
		"  url \"https://github.com/mona/hello.git\", tag: \"v1.0.0\", revision: \"0ddba110\"\n" +
		"  version \"1.0.0\"\n" +
		"end\n"
	doc := Parse([]byte(src))

	got, err := Rewrite(doc, testSpec())
	require.NoError(t, err)

	want := "class Hello < Formula\n" +
		"  url \"https://github.com/mona/hello.git\", tag: \"v1.0.1\", revision: \"f00df00d\"\n" +
		"\n" +
		"  bottle do\n" +
		"    root_url \"https://github.com/mona/hello/releases/download/v1.0.1\"\n" +
		"    sha256 cellar: :any, arm64_sonoma: \"" + testDigest + "\"\n" +
		"  end\n" +
		"  version \"v1.0.1\"\n" +
		"end\n"
	assert.Equal(t, want, string(got))
}

func TestRewriteNoAnchorIsStructuralError(t *testing.T) {
	doc := Parse([]byte("class Hello < Formula\n  version \"1.0.0\"\nend\n"))

	got, err := Rewrite(doc, testSpec())
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, taperr.IsErrorCode(err, taperr.ErrFormulaStructure))
}

func TestRewriteNoBottlesNoBlockIsNoBottleEdit(t *testing.T) {
	src := "class Hello < Formula\n" +
		"  url \"https://github.com/mona/hello.git\", tag: \"v1.0.0\", revision: \"0ddba110\"\n" +
		"  version \"1.0.0\"\n" +
		"end\n"
	doc := Parse([]byte(src))
	spec := testSpec()
	spec.Bottles = nil

	got, err := Rewrite(doc, spec)
	require.NoError(t, err)
	assert.NotContains(t, string(got), "bottle do")
	assert.Contains(t, string(got), "version \"v1.0.1\"")
}

func TestRewriteIsIdempotent(t *testing.T) {
	doc := Parse([]byte(sampleFormula))
	spec := testSpec()

	first, err := Rewrite(doc, spec)
	require.NoError(t, err)

	second, err := Rewrite(Parse(first), spec)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestApplyEditsValidation(t *testing.T) {
	src := []byte(strings.Repeat("x", 10))

	tests := []struct {
		name  string
		edits []edit
	}{
		{"end past document", []edit{{start: 5, end: 11, text: "y"}}},
		{"negative start", []edit{{start: -1, end: 2, text: "y"}}},
		{"end before start", []edit{{start: 5, end: 4, text: "y"}}},
		{"overlapping spans", []edit{{start: 0, end: 5, text: "a"}, {start: 4, end: 8, text: "b"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := applyEdits(src, tt.edits)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.True(t, taperr.IsErrorCode(err, taperr.ErrRewriteInternal))
		})
	}
}

func TestApplyEditsStitching(t *testing.T) {
	src := []byte("aaa bbb ccc")

	got, err := applyEdits(src, []edit{
		{start: 8, end: 11, text: "CCC"},
		{start: 0, end: 3, text: "AAA"},
		{start: 4, end: 4, text: "INS "},
	})
	require.NoError(t, err)
	assert.Equal(t, "AAA INS bbb CCC", string(got))
}
