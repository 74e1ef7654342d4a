// Package normalize runs rewritten formula text through `brew style --fix`
// so the committed file follows the tap's lint conventions. The formatter's
// output is authoritative: whatever it writes back replaces the rewriter's
// text before the up-to-date comparison.
package normalize

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/tapbump/pkg/errors"
	"github.com/arthur-debert/tapbump/pkg/logging"
)

// Brew normalizes formula text by shelling out to `brew style --fix` on a
// temporary copy of the file.
type Brew struct {
	// Executable is the brew binary to invoke, looked up on PATH.
	Executable string

	// FileName is the basename the temporary formula file is given. brew
	// style derives the expected class name from it, so it should match
	// the formula's real file name.
	FileName string
}

// NewBrew returns a Brew normalizer for a formula file name such as
// "hello.rb".
func NewBrew(fileName string) *Brew {
	if fileName == "" || fileName == "." {
		fileName = "formula.rb"
	}
	return &Brew{Executable: "brew", FileName: fileName}
}

// Normalize writes text to a scratch file, fixes its style in place, and
// returns the result. A missing brew binary is reported distinctly from a
// style run that fails.
func (b *Brew) Normalize(text []byte) ([]byte, error) {
	logger := logging.GetLogger("normalize")

	path, err := exec.LookPath(b.Executable)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrNormalizerUnavailable,
			"%s not found in PATH, cannot normalize formula", b.Executable)
	}

	dir, err := os.MkdirTemp("", "tapbump-")
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrNormalizerFailed, "failed to create scratch directory")
	}
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, b.FileName)
	if err := os.WriteFile(file, text, 0644); err != nil {
		return nil, errors.Wrap(err, errors.ErrNormalizerFailed, "failed to write scratch formula")
	}

	cmd := exec.Command(path, "style", "--fix", "--formula", file)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrNormalizerFailed,
			"brew style failed: %s", strings.TrimSpace(string(out)))
	}

	fixed, err := os.ReadFile(file)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrNormalizerFailed, "failed to read normalized formula")
	}

	logger.Debug().Int("bytes", len(fixed)).Msg("Formula normalized")
	return fixed, nil
}
