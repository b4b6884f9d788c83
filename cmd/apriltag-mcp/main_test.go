package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/apriltag-mcp/internal/config"
	"github.com/ironsheep/apriltag-mcp/internal/enginetest"
	"github.com/ironsheep/apriltag-mcp/internal/logging"
	"github.com/ironsheep/apriltag-mcp/internal/sys"
)

func TestMain(m *testing.M) {
	logging.ConfigureTests()
	os.Exit(m.Run())
}

// withEngine routes openEngine to a fake for the duration of the test.
func withEngine(t *testing.T, eng sys.Engine, err error) {
	t.Helper()
	prev := openEngine
	openEngine = func() (sys.Engine, error) { return eng, err }
	t.Cleanup(func() { openEngine = prev })
}

func fakeEngine(t *testing.T) *enginetest.Engine {
	t.Helper()
	eng := enginetest.New()
	eng.Frame = []enginetest.Tag{
		enginetest.Square(5, [2]float64{32, 24}, 6),
		enginetest.Square(11, [2]float64{10, 10}, 4),
	}
	withEngine(t, eng, nil)
	return eng
}

func writeImage(t *testing.T) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 48))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.SetGray(1, 1, color.Gray{Y: 0})

	path := filepath.Join(t.TempDir(), "frame.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := newRootCommand()
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestVersion(t *testing.T) {
	fakeEngine(t)
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "apriltag-mcp "+Version)
	assert.Contains(t, out, "Engine:     enginetest")
}

func TestVersion_NoEngine(t *testing.T) {
	withEngine(t, nil, sys.ErrUnavailable)
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "unavailable")
}

func TestDetect_Text(t *testing.T) {
	eng := fakeEngine(t)
	path := writeImage(t)

	out, err := execute(t, "", "detect", path)
	require.NoError(t, err)

	assert.Contains(t, out, "2 tag36h11 tag(s)")
	assert.Contains(t, out, "id=5 hamming=0 margin=50.0 center=(32.0, 24.0)")
	assert.Less(t, strings.Index(out, "id=5"), strings.Index(out, "id=11"), "detection order must be kept")
	assert.Equal(t, 0, eng.Live(), "engine memory leaked")
	assert.Len(t, eng.LastImage, 64*48)
}

func TestDetect_JSONWithPose(t *testing.T) {
	eng := fakeEngine(t)
	eng.First = enginetest.Identity(0.8, 0.002)
	eng.Second = enginetest.Identity(0.9, 0.004)
	path := writeImage(t)

	out, err := execute(t, "", "detect", path, "--json", "--pose",
		"--tag-size", "0.1", "--fx", "800", "--fy", "800", "--iterations", "12")
	require.NoError(t, err)

	var tags []cliTag
	require.NoError(t, json.Unmarshal([]byte(out), &tags))
	require.Len(t, tags, 2)
	assert.Equal(t, 5, tags[0].ID)
	require.Len(t, tags[0].Poses, 2)
	assert.Equal(t, []float64{0, 0, 0.8}, tags[0].Poses[0].Translation)
	assert.Equal(t, 0.004, tags[0].Poses[1].Error)
	assert.Equal(t, []float64{1, 0, 0}, tags[0].Poses[0].Rotation[0])

	require.NotEmpty(t, eng.Infos)
	assert.Equal(t, 32.0, eng.Infos[0].Cx, "principal point defaults to the image center")
	assert.Equal(t, []int{12, 12}, eng.Iterations)
	assert.Equal(t, 0, eng.Live(), "engine memory leaked")
}

func TestDetect_PrincipalPointPerAxis(t *testing.T) {
	eng := fakeEngine(t)
	eng.First = enginetest.Identity(1.0, 0.01)

	_, err := execute(t, "", "detect", writeImage(t), "--pose",
		"--tag-size", "0.1", "--fx", "800", "--fy", "800", "--cx", "10")
	require.NoError(t, err)

	require.NotEmpty(t, eng.Infos)
	assert.Equal(t, 10.0, eng.Infos[0].Cx)
	assert.Equal(t, 24.0, eng.Infos[0].Cy, "cy defaults to the image center on its own")
}

func TestDetect_PoseNeedsCamera(t *testing.T) {
	fakeEngine(t)
	_, err := execute(t, "", "detect", writeImage(t), "--pose")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--tag-size")
	assert.ErrorIs(t, err, config.ErrNoCamera)
}

func TestDetect_Config(t *testing.T) {
	eng := fakeEngine(t)
	cfgPath := filepath.Join(t.TempDir(), "apriltag.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
[detector]
family = "tag25h9"
threads = 4

[camera]
tag_size = 0.05
fx = 600.0
fy = 600.0
cx = 31.5
cy = 23.5
`), 0o644))

	eng.First = enginetest.Identity(1.0, 0.01)
	out, err := execute(t, "", "--config", cfgPath, "detect", writeImage(t), "--pose")
	require.NoError(t, err)

	assert.Contains(t, out, "2 tag25h9 tag(s)")
	assert.Contains(t, out, "pose 1: t=(0.0000, 0.0000, 1.0000)")
	assert.Equal(t, 4, eng.LastOptions.Threads)
	require.NotEmpty(t, eng.Infos)
	assert.Equal(t, 0.05, eng.Infos[0].TagSize)
	assert.Equal(t, 31.5, eng.Infos[0].Cx)
}

func TestDetect_Errors(t *testing.T) {
	fakeEngine(t)

	_, err := execute(t, "", "detect")
	assert.Error(t, err, "missing image argument")

	_, err = execute(t, "", "detect", "/nonexistent/frame.png")
	assert.Error(t, err)

	_, err = execute(t, "", "detect", writeImage(t), "--family", "tag99h1")
	require.Error(t, err)
	assert.ErrorIs(t, err, sys.ErrUnknownFamily)

	_, err = execute(t, "", "--config", "/nonexistent/apriltag.toml", "detect", writeImage(t))
	assert.Error(t, err)
}

func TestDetect_NoEngine(t *testing.T) {
	withEngine(t, nil, sys.ErrUnavailable)
	_, err := execute(t, "", "detect", writeImage(t))
	assert.ErrorIs(t, err, sys.ErrUnavailable)
}

func TestServe(t *testing.T) {
	eng := fakeEngine(t)
	stdin := `{"jsonrpc":"2.0","id":1,"method":"initialize"}` + "\n" +
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"apriltag_engine_info","arguments":{}}}` + "\n"

	for _, args := range [][]string{{"serve"}, {}} {
		out, err := execute(t, stdin, args...)
		require.NoError(t, err)

		lines := strings.Split(strings.TrimSpace(out), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], `"apriltag-mcp"`)
		assert.Contains(t, lines[1], "enginetest")
		assert.Contains(t, lines[1], "cached_images")
	}
	assert.Equal(t, 0, eng.Live())
}

func TestServe_NoEngine(t *testing.T) {
	withEngine(t, nil, sys.ErrUnavailable)
	stdin := `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"apriltag_engine_info"}}` + "\n"

	out, err := execute(t, stdin, "serve")
	require.NoError(t, err)
	assert.Contains(t, out, `\"available\": false`)
}
