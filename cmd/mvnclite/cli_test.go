package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swdee/go-mvnclite/sim"
)

// setup writes the age and gender networks plus two face images and points
// MVNC_NETWORKS at the networks
func setup(t *testing.T) (dir string, images []string) {
	t.Helper()

	dir = t.TempDir()

	age := sim.AgeNetwork()
	age.InputSize = 16
	age.Checksum = true
	gender := sim.GenderNetwork()
	gender.InputSize = 16

	require.NoError(t, sim.WriteNetwork(filepath.Join(dir, "Age"), age))
	require.NoError(t, sim.WriteNetwork(filepath.Join(dir, "Gender"), gender))

	for i := 0; i < 2; i++ {
		img := image.NewRGBA(image.Rect(0, 0, 32, 24))
		for y := 0; y < 24; y++ {
			for x := 0; x < 32; x++ {
				img.SetRGBA(x, y, color.RGBA{R: uint8(x * 7 * (i + 1)), G: uint8(y * 9), B: 60, A: 255})
			}
		}

		var buf bytes.Buffer
		require.NoError(t, png.Encode(&buf, img))

		file := filepath.Join(dir, "face"+string(rune('a'+i))+".png")
		require.NoError(t, os.WriteFile(file, buf.Bytes(), 0o644))
		images = append(images, file)
	}

	t.Setenv("MVNC_NETWORKS", filepath.Join(dir, "Age")+string(os.PathListSeparator)+filepath.Join(dir, "Gender"))
	t.Setenv("MVNC_CONFIG", "")
	t.Setenv("MVNC_DEBUG", "")

	return dir, images
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer

	cmd := NewCLI()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(context.Background())

	return out.String(), err
}

func TestClassify(t *testing.T) {
	_, images := setup(t)

	args := append([]string{"--simulate", "--fit", "stretch", "classify"}, images...)
	out, err := run(t, args...)
	require.NoError(t, err, out)

	ageAt := strings.Index(out, "Network age")
	genderAt := strings.Index(out, "Network gender")

	require.GreaterOrEqual(t, ageAt, 0, out)
	require.Greater(t, genderAt, ageAt, "age runs before gender")
	assert.Equal(t, 4, strings.Count(out, "RANK"))
	assert.Contains(t, out, "4 inferences")
}

func TestClassifyAnnotate(t *testing.T) {
	dir, images := setup(t)
	outDir := filepath.Join(dir, "annotated")

	out, err := run(t, "--simulate", "--fit", "stretch", "classify", "-n", "gender",
		"--annotate", outDir, images[0])
	require.NoError(t, err, out)

	info, err := os.Stat(filepath.Join(outDir, "gender_"+filepath.Base(images[0])))
	require.NoError(t, err)
	assert.NotZero(t, info.Size())
}

func TestClassifyWrongSize(t *testing.T) {
	_, images := setup(t)

	out, err := run(t, "--simulate", "classify", "-n", "age", images[0])
	require.Error(t, err)
	assert.Contains(t, out, "invalid input size")
}

func TestClassifyUnknownNetwork(t *testing.T) {
	_, images := setup(t)

	_, err := run(t, "--simulate", "classify", "-n", "emotion", images[0])
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestQuery(t *testing.T) {
	setup(t)

	out, err := run(t, "--simulate", "query", "-n", "gender")
	require.NoError(t, err)

	assert.Contains(t, out, "Device: sim0")
	assert.Contains(t, out, "Female")
}

func TestInspect(t *testing.T) {
	dir, _ := setup(t)

	out, err := run(t, "inspect", filepath.Join(dir, "Age"), filepath.Join(dir, "Gender"))
	require.NoError(t, err, out)

	assert.Contains(t, out, "60-100")
	assert.Contains(t, out, "ok (graph.sha256)")
	assert.Contains(t, out, "unverified")

	out, err = run(t, "inspect", filepath.Join(dir, "Missing"))
	require.Error(t, err)
	assert.Contains(t, out, "Missing")
}

func TestInspectMismatch(t *testing.T) {
	dir, _ := setup(t)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Age", "graph"), []byte("corrupted"), 0o644))

	out, err := run(t, "inspect", filepath.Join(dir, "Age"))
	require.NoError(t, err)
	assert.Contains(t, out, "MISMATCH")
}

func TestDumpConfig(t *testing.T) {
	dir, _ := setup(t)

	out, err := run(t, "dumpconfig")
	require.NoError(t, err)

	assert.Contains(t, out, "[Device]")
	assert.Contains(t, out, filepath.Join(dir, "Gender"))
}

func TestInvalidCPUList(t *testing.T) {
	setup(t)

	_, err := run(t, "--simulate", "--cpus", "7-2", "query")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid cpu range")
}
