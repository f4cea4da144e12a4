package conformer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aretw0/conformer"
	"github.com/aretw0/conformer/internal/testutils"
	"github.com/aretw0/conformer/pkg/domain"
	"github.com/aretw0/conformer/pkg/script"
	"github.com/aretw0/conformer/pkg/session"
	"github.com/aretw0/conformer/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHelperProcess(t *testing.T) {
	testutils.RunHelperProcess()
}

const breakpoints = `[
	{"message": "initial pause"},
	{"recv": {"State":"Paused","Backtrace":[{"ID":0,"File":"/buildsystem1/CMakeLists.txt","Line":1,"Name":"message","Type":"Function"}]}},
	{"send": {"Command": "AddBreakpoint", "File": "CMakeLists.txt", "Line": 3}},
	{"send": {"Command": "Continue"}},
	{"recv": {"State":"Paused","Backtrace":[{"ID":0,"File":"/buildsystem1/CMakeLists.txt","Line":3,"Name":"message","Type":"Function"}]}},
	{"send": {"Command": "StepOver"}},
	{"waitForPause": {}}
]`

func helperConfig(t *testing.T) conformer.Config {
	t.Helper()
	return conformer.Config{
		Command:      os.Args[0],
		SourceDir:    t.TempDir(),
		BuildBase:    t.TempDir(),
		Generator:    "Ninja",
		StepTimeout:  10 * time.Second,
		PauseTimeout: 10 * time.Second,
		Launcher: session.CommandLauncher{
			PrefixArgs: testutils.HelperArgs("TestHelperProcess"),
			Env:        []string{testutils.HelperEnv + "=1"},
		},
	}
}

func TestRun_AllMethods(t *testing.T) {
	s, err := script.Parse("breakpoints", []byte(breakpoints), script.FormatJSON)
	require.NoError(t, err)

	cfg := helperConfig(t)
	report, err := conformer.Run(context.Background(), cfg, s)
	require.NoError(t, err)

	assert.Equal(t, "breakpoints", report.Script)
	assert.Equal(t, "Ninja", report.Generator)
	require.Len(t, report.Methods, len(transport.Methods()))
	for _, res := range report.Methods {
		assert.Equal(t, domain.StatusPassed, res.Status, res.Method)
		assert.Equal(t, 7, res.Steps)
	}
	assert.DirExists(t, filepath.Join(cfg.BuildBase, "breakpoints"))
}

func TestRun_Parallel(t *testing.T) {
	s, err := script.Parse("parallel", []byte(breakpoints), script.FormatJSON)
	require.NoError(t, err)

	cfg := helperConfig(t)
	cfg.Parallel = true
	report, err := conformer.Run(context.Background(), cfg, s)
	require.NoError(t, err)
	assert.True(t, report.Passed())

	for _, m := range transport.Methods() {
		assert.DirExists(t, filepath.Join(cfg.BuildBase, "parallel", m.String()))
	}
}

func TestRun_LaunchFailure(t *testing.T) {
	s, err := script.Parse("missing", []byte(breakpoints), script.FormatJSON)
	require.NoError(t, err)

	cfg := helperConfig(t)
	cfg.Command = filepath.Join(t.TempDir(), "no-such-cmake")
	cfg.Launcher = nil
	cfg.Methods = []transport.Method{transport.MethodTCP}

	_, err = conformer.Run(context.Background(), cfg, s)
	assert.ErrorIs(t, err, domain.ErrLaunch)
	assert.Equal(t, domain.ExitLaunch, domain.ExitCode(err))
}

func TestBuildDir(t *testing.T) {
	assert.Equal(t, filepath.Join("base", "breakpoints"), conformer.BuildDir("base", "breakpoints"))
}

func TestConfig_ProjectDir(t *testing.T) {
	cfg := conformer.Config{SourceDir: "src"}
	assert.Equal(t, filepath.Join("src", conformer.DefaultProjectSubdir), cfg.ProjectDir())

	cfg.ProjectSubdir = "other"
	assert.Equal(t, filepath.Join("src", "other"), cfg.ProjectDir())
}
