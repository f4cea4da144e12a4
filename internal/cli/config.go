package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aretw0/conformer"
	"github.com/aretw0/conformer/pkg/domain"
	"github.com/aretw0/conformer/pkg/normalize"
	"github.com/aretw0/conformer/pkg/transport"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by the driver, e.g.
// CONFORMER_STEP_TIMEOUT.
const EnvPrefix = "CONFORMER"

// ConfigName is the optional config file looked up in the working directory.
const ConfigName = "conformer"

// Report store backends.
const (
	StoreNone   = ""
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	Command       string   `mapstructure:"cmake"`
	Script        string   `mapstructure:"script"`
	Source        string   `mapstructure:"source"`
	Build         string   `mapstructure:"build"`
	Generator     string   `mapstructure:"generator"`
	ProjectSubdir string   `mapstructure:"project_subdir"`
	Methods       []string `mapstructure:"methods"`
	Match         string   `mapstructure:"match"`
	ExtraArgs     []string `mapstructure:"extra_args"`

	StepTimeout    time.Duration `mapstructure:"step_timeout"`
	PauseTimeout   time.Duration `mapstructure:"pause_timeout"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`

	KeepGoing bool `mapstructure:"keep_going"`
	Parallel  bool `mapstructure:"parallel"`

	Store     string `mapstructure:"store"`
	ReportDir string `mapstructure:"report_dir"`
	RedisURL  string `mapstructure:"redis_url"`
	Monitor   string `mapstructure:"monitor"`

	// RedactPaths replaces the source and build directories in stored reports.
	RedactPaths bool `mapstructure:"redact_paths"`

	Watch        bool `mapstructure:"watch"`
	Debug        bool `mapstructure:"debug"`
	Quiet        bool `mapstructure:"quiet"`
	ServerOutput bool `mapstructure:"server_output"`
}

// RegisterRunFlags declares the run flags on fs. Flag names use dashes; the
// matching config keys and environment variables use underscores.
func RegisterRunFlags(fs *pflag.FlagSet) {
	fs.String("cmake", "", "Build tool executable with the debug server")
	fs.String("script", "", "Test script (.json, .yaml)")
	fs.String("source", "", "Source directory holding the test project")
	fs.String("build", "", "Base build directory; the script name is appended")
	fs.String("generator", "", "Generator passed with -G")
	fs.String("project-subdir", conformer.DefaultProjectSubdir, "Project directory below --source")
	fs.StringSlice("methods", nil, "Transport methods to run (stdio, pipe, tcp); default all")
	fs.String("match", string(normalize.MatchExact), "Response comparison: exact or subset")
	fs.StringSlice("extra-args", nil, "Extra arguments for the build tool")
	fs.Duration("step-timeout", 30*time.Second, "Bound on each expected response (0 disables)")
	fs.Duration("pause-timeout", 0, "Bound on each waitForPause step (0 disables)")
	fs.Duration("connect-timeout", 30*time.Second, "Bound on connecting to the server")
	fs.Bool("keep-going", false, "Run the remaining methods after a failure")
	fs.Bool("parallel", false, "Run all methods at once, each in its own build directory")
	fs.String("store", StoreNone, "Report store: memory, file or redis")
	fs.String("report-dir", "", "Directory of the file report store")
	fs.String("redis-url", "", "Redis URL of the redis report store")
	fs.String("monitor", "", "Serve metrics, reports and events on this address")
	fs.Bool("redact-paths", true, "Replace the source and build directories in stored reports")
	fs.BoolP("watch", "w", false, "Run again whenever the script changes")
	fs.BoolP("quiet", "q", false, "Do not echo protocol messages")
	fs.Bool("server-output", false, "Forward the server's output to stderr")
}

// LoadRunOptions layers, from lowest to highest precedence, flag defaults,
// the config file, environment variables, explicitly set flags and the
// positional arguments <build-tool> <script> <source-dir> <build-base> <generator>.
func LoadRunOptions(fs *pflag.FlagSet, configFile string, args []string) (RunOptions, error) {
	var opts RunOptions

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var bindErr error
	fs.VisitAll(func(f *pflag.Flag) {
		if err := v.BindPFlag(configKey(f.Name), f); err != nil && bindErr == nil {
			bindErr = err
		}
	})
	if bindErr != nil {
		return opts, bindErr
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(ConfigName)
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return opts, fmt.Errorf("%w: failed to read config: %v", domain.ErrUsage, err)
		}
	}

	if err := v.Unmarshal(&opts); err != nil {
		return opts, fmt.Errorf("%w: failed to decode config: %v", domain.ErrUsage, err)
	}

	switch len(args) {
	case 0:
	case 5:
		opts.Command, opts.Script, opts.Source, opts.Build, opts.Generator = args[0], args[1], args[2], args[3], args[4]
	default:
		return opts, fmt.Errorf("%w: expected 5 positional arguments, got %d", domain.ErrUsage, len(args))
	}
	return opts, nil
}

func configKey(flag string) string {
	return strings.ReplaceAll(flag, "-", "_")
}

// Validate checks that the options describe a runnable configuration.
// Every failure wraps domain.ErrUsage.
func (o RunOptions) Validate() error {
	var missing []string
	for _, req := range []struct{ name, value string }{
		{"cmake", o.Command},
		{"script", o.Script},
		{"source", o.Source},
		{"build", o.Build},
	} {
		if req.value == "" {
			missing = append(missing, req.name)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", domain.ErrUsage, strings.Join(missing, ", "))
	}

	if _, err := os.Stat(o.Script); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUsage, err)
	}
	if _, err := transport.ParseMethods(o.Methods); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUsage, err)
	}
	if _, err := normalize.ParseMatchMode(o.Match); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrUsage, err)
	}
	for name, d := range map[string]time.Duration{
		"step_timeout":    o.StepTimeout,
		"pause_timeout":   o.PauseTimeout,
		"connect_timeout": o.ConnectTimeout,
	} {
		if d < 0 {
			return fmt.Errorf("%w: %s must not be negative", domain.ErrUsage, name)
		}
	}

	switch o.Store {
	case StoreNone, StoreMemory, StoreFile:
	case StoreRedis:
		if o.RedisURL == "" {
			return fmt.Errorf("%w: the redis store needs redis_url", domain.ErrUsage)
		}
	default:
		return fmt.Errorf("%w: unknown store %q", domain.ErrUsage, o.Store)
	}
	return nil
}

// Config converts the options into the library configuration. The options
// must have been validated.
func (o RunOptions) Config() conformer.Config {
	methods, _ := transport.ParseMethods(o.Methods)
	mode, _ := normalize.ParseMatchMode(o.Match)
	return conformer.Config{
		Command:        o.Command,
		SourceDir:      o.Source,
		BuildBase:      o.Build,
		Generator:      o.Generator,
		ProjectSubdir:  o.ProjectSubdir,
		Methods:        methods,
		Match:          mode,
		StepTimeout:    o.StepTimeout,
		PauseTimeout:   o.PauseTimeout,
		ConnectTimeout: o.ConnectTimeout,
		KeepGoing:      o.KeepGoing,
		Parallel:       o.Parallel,
		ExtraArgs:      o.ExtraArgs,
	}
}
