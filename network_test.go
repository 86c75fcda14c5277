package mvnclite

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFiles creates dir holding the given files
func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(dir, 0o755))

	for name, data := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644))
	}
}

func validNetwork() map[string]string {
	return map[string]string{
		GraphFile:     "graph bytes",
		LabelsFile:    "classes\nMale\nFemale\n",
		StatFile:      "0.4 0.45 0.5\n0.004 0.004 0.004\n",
		InputSizeFile: "227\n",
	}
}

func TestLoadNetwork(t *testing.T) {

	dir := filepath.Join(t.TempDir(), "Gender")
	writeFiles(t, dir, validNetwork())

	nw, err := LoadNetwork(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, nw.Path)
	assert.Equal(t, []byte("graph bytes"), nw.Graph)
	assert.Equal(t, []string{"Male", "Female"}, nw.Labels)
	assert.Equal(t, 227, nw.InputSize)
	assert.InDelta(t, 102, nw.Profile.Mean[0], 1e-4)
	assert.InDelta(t, 1/(255*0.004), nw.Profile.InvScale[2], 1e-4)
}

func TestLoadNetworkFailures(t *testing.T) {

	tests := []struct {
		name   string
		modify func(map[string]string)
		detail string
	}{
		{"missing graph", func(f map[string]string) { delete(f, GraphFile) }, "graph"},
		{"empty graph", func(f map[string]string) { f[GraphFile] = "" }, "empty"},
		{"missing categories", func(f map[string]string) { delete(f, LabelsFile) }, "opening"},
		{"header only categories", func(f map[string]string) { f[LabelsFile] = "classes\n" }, "no categories"},
		{"missing stats", func(f map[string]string) { delete(f, StatFile) }, "stat"},
		{"short stats", func(f map[string]string) { f[StatFile] = "0.4 0.45 0.5\n0.004\n" }, "got 4 values"},
		{"bad stats", func(f map[string]string) { f[StatFile] = "0.4 0.45 x 0.004 0.004 0.004" }, "invalid value"},
		{"zero stddev", func(f map[string]string) { f[StatFile] = "0.4 0.45 0.5 0.004 0 0.004" }, "must be positive"},
		{"missing input size", func(f map[string]string) { delete(f, InputSizeFile) }, "input size"},
		{"bad input size", func(f map[string]string) { f[InputSizeFile] = "abc" }, "invalid input size"},
		{"zero input size", func(f map[string]string) { f[InputSizeFile] = "0" }, "must be positive"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			files := validNetwork()
			tc.modify(files)

			dir := filepath.Join(t.TempDir(), "net")
			writeFiles(t, dir, files)

			nw, err := LoadNetwork(dir)

			require.Error(t, err)
			assert.Nil(t, nw)
			assert.Equal(t, DataLoadFailed, KindOf(err))
			assert.Contains(t, err.Error(), tc.detail)
			assert.Contains(t, err.Error(), dir)
		})
	}
}

func TestLoadNetworkEmptyPath(t *testing.T) {
	_, err := LoadNetwork("")
	assert.Equal(t, InvalidInput, KindOf(err))
}

func TestLoadLabels(t *testing.T) {

	file := filepath.Join(t.TempDir(), LabelsFile)
	require.NoError(t, os.WriteFile(file, []byte("Classes\r\n 0-2 \r\n\n4-6\n  \n8-12"), 0o644))

	labels, err := LoadLabels(file)
	require.NoError(t, err)

	assert.Equal(t, []string{" 0-2 ", "", "4-6", "  ", "8-12"}, labels)
}

func TestLoadLabelsKeepOutputAlignment(t *testing.T) {

	file := filepath.Join(t.TempDir(), LabelsFile)
	require.NoError(t, os.WriteFile(file, []byte("classes\nA\n\nC\n"), 0o644))

	labels, err := LoadLabels(file)
	require.NoError(t, err)
	require.Equal(t, []string{"A", "", "C"}, labels)

	res := Rank([]float32{0.1, 0.2, 0.7}, labels, 3)

	assert.Equal(t, "C", res[0].Label)
	assert.Equal(t, 2, res[0].LabelIndex)
	assert.Equal(t, "A", res[2].Label)
}

func TestLoadLabelsCap(t *testing.T) {

	var b strings.Builder
	b.WriteString("classes\n")

	for i := 0; i < MaxCategories+50; i++ {
		fmt.Fprintf(&b, "label%d\n", i)
	}

	file := filepath.Join(t.TempDir(), LabelsFile)
	require.NoError(t, os.WriteFile(file, []byte(b.String()), 0o644))

	labels, err := LoadLabels(file)
	require.NoError(t, err)

	assert.Len(t, labels, MaxCategories)
	assert.Equal(t, "label999", labels[MaxCategories-1])
}

func TestGraphChecksum(t *testing.T) {

	// sha256 of the empty string
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", GraphChecksum(nil))

	dir := t.TempDir()

	_, ok := ReadChecksumFile(dir)
	assert.False(t, ok)

	writeFiles(t, dir, map[string]string{ChecksumFile: "ABCDEF0123  graph\n"})

	sum, ok := ReadChecksumFile(dir)
	assert.True(t, ok)
	assert.Equal(t, "abcdef0123", sum)
}
