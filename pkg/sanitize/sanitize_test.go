package sanitize

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestName_Traversal(t *testing.T) {
	out := Name("../../etc/passwd")
	assert.NotContains(t, out, "..")
	assert.NotContains(t, out, "/")
}

func TestName_Separators(t *testing.T) {
	assert.Equal(t, "a_b", Name("a/b"))
	assert.Equal(t, "a_b", Name(`a\b`))
}

func TestName_ReservedCharacters(t *testing.T) {
	out := Name(`re<po>rt:"v|2?*`)
	for _, c := range `<>:"|?*` {
		assert.NotContains(t, out, string(c))
	}
}

func TestName_TrailingDotsAndSpaces(t *testing.T) {
	assert.Equal(t, "report", Name("report. "))
	assert.Equal(t, "report", Name("report..."))
}

func TestName_NeverEmpty(t *testing.T) {
	assert.Equal(t, "_", Name(""))
	assert.Equal(t, "_", Name("..."))
}

func TestName_ReservedDeviceNames(t *testing.T) {
	assert.Equal(t, "con_", Name("con"))
	assert.Equal(t, "NUL.txt_", Name("NUL.txt"))
	assert.Equal(t, "console", Name("console"))
}

func TestName_LengthCap(t *testing.T) {
	long := strings.Repeat("a", 500)
	assert.LessOrEqual(t, len([]rune(Name(long))), 200)
}

func TestSplitExt(t *testing.T) {
	stem, ext := SplitExt("report.pdf")
	assert.Equal(t, "report", stem)
	assert.Equal(t, ".pdf", ext)

	stem, ext = SplitExt("archive.tar.gz")
	assert.Equal(t, "archive.tar", stem)
	assert.Equal(t, ".gz", ext)

	stem, ext = SplitExt(".gitignore")
	assert.Equal(t, ".gitignore", stem)
	assert.Equal(t, "", ext)
}

func TestUniqueName_NoCollision(t *testing.T) {
	dir := t.TempDir()

	name, err := UniqueName(dir, "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", name)
}

func TestUniqueName_AppendsCounter(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.pdf"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report_1.pdf"), []byte("x"), 0o644))

	name, err := UniqueName(dir, "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "report_2.pdf", name)
}
