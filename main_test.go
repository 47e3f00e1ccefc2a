package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockApp struct {
	mock.Mock
	opts AppOptions
}

func (m *mockApp) ApplyOptions(opts AppOptions) { m.opts = opts }
func (m *mockApp) RunParseOnly()                { m.Called() }
func (m *mockApp) RunSolve()                    { m.Called() }
func (m *mockApp) RunRender()                   { m.Called() }
func (m *mockApp) RunService()                  { m.Called() }

var allModes = []string{"RunParseOnly", "RunSolve", "RunRender", "RunService"}

func TestRun_Flags(t *testing.T) {
	tests := []struct {
		name           string
		args           []string
		expectedCalled string
		verifyOpts     func(*testing.T, AppOptions)
	}{
		{
			name:           "ParseOnly",
			args:           []string{"--parse-only", "--tiles", "/tmp/tiles.txt"},
			expectedCalled: "RunParseOnly",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				assert.Equal(t, "/tmp/tiles.txt", opts.TileFile)
				assert.True(t, opts.ParseOnly)
			},
		},
		{
			name:           "Solve",
			args:           []string{"--solve", "--anchor", "2", "--anchor-orientation", "5", "--pattern", "dragon.txt"},
			expectedCalled: "RunSolve",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				assert.True(t, opts.SolveOnly)
				assert.Equal(t, 2, opts.Anchor)
				assert.Equal(t, 5, opts.AnchorOrientation)
				assert.Equal(t, "dragon.txt", opts.PatternFile)
			},
		},
		{
			name:           "Render",
			args:           []string{"--render", "--output", "test.png", "--scale", "8"},
			expectedCalled: "RunRender",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				assert.Equal(t, "test.png", opts.OutputFile)
				assert.Equal(t, 8, opts.Scale)
				assert.Equal(t, "raster", opts.RenderFormat)
			},
		},
		{
			name:           "VectorRendering",
			args:           []string{"--render", "--format", "vector", "--vector-format", "png"},
			expectedCalled: "RunRender",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				assert.Equal(t, "vector", opts.RenderFormat)
				assert.Equal(t, "png", opts.VectorFormat)
			},
		},
		{
			name:           "MqttMode",
			args:           []string{"--mqtt", "--http-port", "9090", "--result-cache", "cache.json"},
			expectedCalled: "RunService",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				assert.True(t, opts.MqttMode)
				assert.Equal(t, 9090, opts.HttpPort)
				assert.Equal(t, "cache.json", opts.ResultCache)
			},
		},
		{
			name:           "HttpMode",
			args:           []string{"--http", "--config", "other.yaml", "--data-dir", "/data"},
			expectedCalled: "RunService",
			verifyOpts: func(t *testing.T, opts AppOptions) {
				assert.True(t, opts.HttpMode)
				assert.Equal(t, "other.yaml", opts.ConfigFile)
				assert.Equal(t, "/data", opts.DataDir)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := &mockApp{}
			app.On(tt.expectedCalled).Return()

			var out bytes.Buffer
			require.NoError(t, run(tt.args, &out, app))

			app.AssertExpectations(t)
			for _, mode := range allModes {
				if mode != tt.expectedCalled {
					app.AssertNotCalled(t, mode)
				}
			}
			if tt.verifyOpts != nil {
				tt.verifyOpts(t, app.opts)
			}
		})
	}
}

func TestRun_Defaults(t *testing.T) {
	app := &mockApp{}
	var out bytes.Buffer
	require.NoError(t, run([]string{"--solve"}, &out, withAnyMode(app)))

	assert.Equal(t, "config.yaml", app.opts.ConfigFile)
	assert.Equal(t, "tiles.txt", app.opts.TileFile)
	assert.Equal(t, -1, app.opts.Anchor)
	assert.Equal(t, 8080, app.opts.HttpPort)
	assert.Equal(t, ".result-cache.json", app.opts.ResultCache)
}

func withAnyMode(app *mockApp) *mockApp {
	for _, mode := range allModes {
		app.On(mode).Return().Maybe()
	}
	return app
}

func TestRun_Help(t *testing.T) {
	app := &mockApp{}
	var out bytes.Buffer
	err := run([]string{"--help"}, &out, app)
	if err == nil {
		t.Error("expected error from --help, got nil")
	}
	if !strings.Contains(out.String(), "Usage of tilemesh") {
		t.Errorf("expected usage info in output, got: %s", out.String())
	}
	if !strings.Contains(out.String(), "MQTT service mode") {
		t.Errorf("expected --mqtt description in usage, got: %s", out.String())
	}
	app.AssertNotCalled(t, "RunService")
}

func TestRun_UnknownFlag(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run([]string{"--no-such-flag"}, &out, &mockApp{}))
}

func TestRun_Default(t *testing.T) {
	app := &mockApp{}
	var out bytes.Buffer
	err := run([]string{}, &out, app)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	expectedPrefix := "tilemesh version: " + Version
	if !strings.Contains(out.String(), expectedPrefix) {
		t.Errorf("expected output to contain version, got: %s", out.String())
	}
	if !strings.Contains(out.String(), "tilemesh service starting...") {
		t.Errorf("expected output to contain service starting message, got: %s", out.String())
	}
	for _, mode := range allModes {
		app.AssertNotCalled(t, mode)
	}
}

func TestMain_Execute(t *testing.T) {
	// Smoke test to ensure version is set
	if Version == "" {
		t.Error("expected Version to be set")
	}
}
