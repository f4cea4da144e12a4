package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/conformer/pkg/domain"
	"github.com/aretw0/conformer/pkg/normalize"
	"github.com/aretw0/conformer/pkg/transport"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("run", pflag.ContinueOnError)
	RegisterRunFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRunOptions_Defaults(t *testing.T) {
	opts, err := LoadRunOptions(newFlags(t), "", nil)
	require.NoError(t, err)

	assert.Equal(t, "buildsystem1", opts.ProjectSubdir)
	assert.Equal(t, string(normalize.MatchExact), opts.Match)
	assert.Equal(t, 30*time.Second, opts.StepTimeout)
	assert.Zero(t, opts.PauseTimeout)
	assert.Equal(t, 30*time.Second, opts.ConnectTimeout)
	assert.Empty(t, opts.Methods)
	assert.False(t, opts.KeepGoing)
	assert.Equal(t, StoreNone, opts.Store)
	assert.True(t, opts.RedactPaths)
}

func TestLoadRunOptions_Precedence(t *testing.T) {
	cfgFile := writeFile(t, t.TempDir(), "conformer.yaml", `
cmake: /opt/cmake/bin/cmake
generator: Unix Makefiles
step_timeout: 5s
pause_timeout: 2s
methods: [tcp]
keep_going: true
extra_args: ["--trace"]
`)
	t.Setenv("CONFORMER_PAUSE_TIMEOUT", "3s")
	t.Setenv("CONFORMER_GENERATOR", "Ninja")

	opts, err := LoadRunOptions(newFlags(t, "--step-timeout=7s"), cfgFile, nil)
	require.NoError(t, err)

	assert.Equal(t, "/opt/cmake/bin/cmake", opts.Command, "from the file")
	assert.Equal(t, []string{"tcp"}, opts.Methods, "from the file")
	assert.True(t, opts.KeepGoing, "from the file")
	assert.Equal(t, []string{"--trace"}, opts.ExtraArgs, "from the file")
	assert.Equal(t, 3*time.Second, opts.PauseTimeout, "env beats the file")
	assert.Equal(t, "Ninja", opts.Generator, "env beats the file")
	assert.Equal(t, 7*time.Second, opts.StepTimeout, "a set flag beats the file")
}

func TestLoadRunOptions_EnvList(t *testing.T) {
	t.Setenv("CONFORMER_METHODS", "pipe,tcp")
	t.Setenv("CONFORMER_KEEP_GOING", "true")

	opts, err := LoadRunOptions(newFlags(t), "", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"pipe", "tcp"}, opts.Methods)
	assert.True(t, opts.KeepGoing)
}

func TestLoadRunOptions_Positional(t *testing.T) {
	args := []string{"/usr/bin/cmake", "break.json", "/src", "/build", "Ninja"}
	opts, err := LoadRunOptions(newFlags(t, "--generator=Xcode", "--quiet"), "", args)
	require.NoError(t, err)

	assert.Equal(t, "/usr/bin/cmake", opts.Command)
	assert.Equal(t, "break.json", opts.Script)
	assert.Equal(t, "/src", opts.Source)
	assert.Equal(t, "/build", opts.Build)
	assert.Equal(t, "Ninja", opts.Generator, "positional arguments win")
	assert.True(t, opts.Quiet)
}

func TestLoadRunOptions_Errors(t *testing.T) {
	t.Run("Wrong Positional Count", func(t *testing.T) {
		_, err := LoadRunOptions(newFlags(t), "", []string{"cmake", "script"})
		assert.ErrorIs(t, err, domain.ErrUsage)
	})
	t.Run("Missing Config File", func(t *testing.T) {
		_, err := LoadRunOptions(newFlags(t), filepath.Join(t.TempDir(), "nope.yaml"), nil)
		assert.ErrorIs(t, err, domain.ErrUsage)
	})
	t.Run("Bad Duration", func(t *testing.T) {
		t.Setenv("CONFORMER_STEP_TIMEOUT", "soon")
		_, err := LoadRunOptions(newFlags(t), "", nil)
		assert.ErrorIs(t, err, domain.ErrUsage)
	})
}

func TestRunOptions_Validate(t *testing.T) {
	scriptPath := writeFile(t, t.TempDir(), "break.json", "[]")
	valid := func() RunOptions {
		return RunOptions{
			Command: "cmake",
			Script:  scriptPath,
			Source:  "/src",
			Build:   "/build",
			Match:   "exact",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*RunOptions)
		wantErr string
	}{
		{"Valid", func(o *RunOptions) {}, ""},
		{"Missing Fields", func(o *RunOptions) { o.Command, o.Source = "", "" }, "missing cmake, source"},
		{"Missing Script File", func(o *RunOptions) { o.Script = scriptPath + ".missing" }, "no such file"},
		{"Unknown Method", func(o *RunOptions) { o.Methods = []string{"carrier-pigeon"} }, "unsupported transport"},
		{"Unknown Match Mode", func(o *RunOptions) { o.Match = "fuzzy" }, "unknown match mode"},
		{"Negative Timeout", func(o *RunOptions) { o.PauseTimeout = -time.Second }, "pause_timeout"},
		{"Unknown Store", func(o *RunOptions) { o.Store = "s3" }, "unknown store"},
		{"Redis Without URL", func(o *RunOptions) { o.Store = StoreRedis }, "redis_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := valid()
			tt.mutate(&opts)
			err := opts.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrUsage)
			assert.Equal(t, domain.ExitUsage, domain.ExitCode(err))
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunOptions_Config(t *testing.T) {
	opts := RunOptions{
		Command:     "cmake",
		Source:      "/src",
		Build:       "/build",
		Generator:   "Ninja",
		Methods:     []string{"tcp", "stdio"},
		Match:       "subset",
		StepTimeout: time.Second,
		Parallel:    true,
	}
	cfg := opts.Config()

	assert.Equal(t, []transport.Method{transport.MethodTCP, transport.MethodStdio}, cfg.Methods)
	assert.Equal(t, normalize.MatchSubset, cfg.Match)
	assert.Equal(t, filepath.Join("/src", "buildsystem1"), cfg.ProjectDir())
	assert.Equal(t, "/build", cfg.BuildBase)
	assert.True(t, cfg.Parallel)
}
