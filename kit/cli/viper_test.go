package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

func ExampleNewCommand() {
	var jobs int
	var check bool
	var logLevel zapcore.Level
	cmd, err := NewCommand(viper.New(), &Program{
		Name: "pepclean",
		Args: cobra.ArbitraryArgs,
		Run: func(args []string) error {
			fmt.Println(jobs, check, logLevel)
			fmt.Println(args)
			return nil
		},
		Opts: []Opt{
			{DestP: &jobs, Flag: "jobs", Short: 'j'},
			{DestP: &check, Flag: "check"},
			{DestP: &logLevel, Flag: "log-level", Default: zapcore.WarnLevel},
		},
	})
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return
	}

	cmd.SetArgs([]string{"-j", "4", "--check", "--log-level", "debug", "a.txt", "b.txt"})
	if err := cmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
	}
	// Output:
	// 4 true debug
	// [a.txt b.txt]
}

type options struct {
	logLevel  zapcore.Level
	logFormat string
	jobs      int
	check     bool
	filesFrom string
}

func newProgram(o *options, run func(args []string) error) *Program {
	return &Program{
		Name: "pepclean",
		Args: cobra.ArbitraryArgs,
		Run:  run,
		Opts: []Opt{
			{DestP: &o.logLevel, Flag: "log-level", Default: zapcore.WarnLevel},
			{DestP: &o.logFormat, Flag: "log-format", Default: "auto"},
			{DestP: &o.jobs, Flag: "jobs", Short: 'j'},
			{DestP: &o.check, Flag: "check"},
			{DestP: &o.filesFrom, Flag: "files-from"},
		},
	}
}

// execute builds the pepclean option set and runs it with args, returning
// the parsed options and the positional arguments.
func execute(t *testing.T, args ...string) (options, []string, error) {
	t.Helper()

	var o options
	var paths []string
	cmd, err := NewCommand(viper.New(), newProgram(&o, func(args []string) error {
		paths = args
		return nil
	}))
	if err != nil {
		return o, nil, err
	}
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	err = cmd.Execute()
	return o, paths, err
}

func writeConfig(t *testing.T, dir, name string, config map[string]interface{}) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	switch filepath.Ext(name) {
	case ".json":
		err = json.NewEncoder(f).Encode(config)
	case ".toml":
		err = toml.NewEncoder(f).Encode(config)
	case ".yaml", ".yml":
		err = yaml.NewEncoder(f).Encode(config)
	default:
		t.Fatalf("unsupported config file %q", name)
	}
	require.NoError(t, err)
	return path
}

func TestNewCommand_Defaults(t *testing.T) {
	o, paths, err := execute(t)
	require.NoError(t, err)
	assert.Equal(t, options{logLevel: zapcore.WarnLevel, logFormat: "auto"}, o)
	assert.Empty(t, paths)
}

func TestNewCommand_Env(t *testing.T) {
	t.Setenv("PEPCLEAN_CHECK", "true")
	t.Setenv("PEPCLEAN_JOBS", "3")
	t.Setenv("PEPCLEAN_LOG_LEVEL", "error")
	t.Setenv("PEPCLEAN_FILES_FROM", "-")

	o, _, err := execute(t)
	require.NoError(t, err)
	assert.True(t, o.check)
	assert.Equal(t, 3, o.jobs)
	assert.Equal(t, zapcore.ErrorLevel, o.logLevel)
	assert.Equal(t, "-", o.filesFrom)
}

func TestNewCommand_ConfigFormats(t *testing.T) {
	config := map[string]interface{}{
		"check":      true,
		"jobs":       5,
		"log-level":  "debug",
		"log-format": "json",
	}

	for _, name := range []string{"config.json", "config.toml", "config.yaml", "config.yml"} {
		t.Run(name, func(t *testing.T) {
			t.Run("file", func(t *testing.T) {
				t.Setenv("PEPCLEAN_CONFIG_PATH", writeConfig(t, t.TempDir(), name, config))

				o, _, err := execute(t)
				require.NoError(t, err)
				assert.Equal(t, options{logLevel: zapcore.DebugLevel, logFormat: "json", jobs: 5, check: true}, o)
			})

			t.Run("directory", func(t *testing.T) {
				dir := filepath.Join(t.TempDir(), ".pepclean")
				require.NoError(t, os.Mkdir(dir, 0755))
				writeConfig(t, dir, name, config)
				t.Setenv("PEPCLEAN_CONFIG_PATH", dir)

				o, _, err := execute(t)
				require.NoError(t, err)
				assert.Equal(t, options{logLevel: zapcore.DebugLevel, logFormat: "json", jobs: 5, check: true}, o)
			})
		})
	}
}

func TestNewCommand_ConfigFilePrecedence(t *testing.T) {
	tests := []struct {
		name  string
		files []string
		want  zapcore.Level
	}{
		{name: "json wins", files: []string{"config.json", "config.toml", "config.yaml", "config.yml"}, want: zapcore.DebugLevel},
		{name: "toml over yaml", files: []string{"config.toml", "config.yaml", "config.yml"}, want: zapcore.InfoLevel},
		{name: "yaml over yml", files: []string{"config.yaml", "config.yml"}, want: zapcore.WarnLevel},
		{name: "yml alone", files: []string{"config.yml"}, want: zapcore.ErrorLevel},
	}

	levels := map[string]string{
		"config.json": "debug",
		"config.toml": "info",
		"config.yaml": "warn",
		"config.yml":  "error",
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, name := range tt.files {
				writeConfig(t, dir, name, map[string]interface{}{"log-level": levels[name]})
			}
			t.Setenv("PEPCLEAN_CONFIG_PATH", dir)

			o, _, err := execute(t)
			require.NoError(t, err)
			assert.Equal(t, tt.want, o.logLevel)
		})
	}
}

func TestNewCommand_FlagOverEnvOverConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", map[string]interface{}{"jobs": 1, "check": true})
	t.Setenv("PEPCLEAN_CONFIG_PATH", dir)

	o, _, err := execute(t)
	require.NoError(t, err)
	assert.Equal(t, 1, o.jobs)
	assert.True(t, o.check)

	t.Setenv("PEPCLEAN_JOBS", "2")
	o, _, err = execute(t)
	require.NoError(t, err)
	assert.Equal(t, 2, o.jobs)

	o, _, err = execute(t, "--jobs", "3", "--check=false")
	require.NoError(t, err)
	assert.Equal(t, 3, o.jobs)
	assert.False(t, o.check)
}

func TestNewCommand_ConfigInWorkingDirectory(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.yaml", map[string]interface{}{"log-format": "logfmt"})
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	o, _, err := execute(t)
	require.NoError(t, err)
	assert.Equal(t, "logfmt", o.logFormat)
}

func TestNewCommand_ShortFlag(t *testing.T) {
	o, _, err := execute(t, "-j", "8")
	require.NoError(t, err)
	assert.Equal(t, 8, o.jobs)
}

func TestNewCommand_PositionalArgs(t *testing.T) {
	_, paths, err := execute(t, "--check", "a.txt", "dir/b.go")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "dir/b.go"}, paths)

	var called bool
	cmd, err := NewCommand(viper.New(), &Program{
		Name: "pepclean",
		Run: func([]string) error {
			called = true
			return nil
		},
	})
	require.NoError(t, err)
	cmd.SetArgs([]string{"a.txt"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	require.Error(t, cmd.Execute(), "positional arguments are rejected by default")
	assert.False(t, called)
}

func TestNewCommand_ConfigPathMissing(t *testing.T) {
	t.Setenv("PEPCLEAN_CONFIG_PATH", filepath.Join(t.TempDir(), "missing.toml"))

	_, _, err := execute(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unable to read config")
}

func TestNewCommand_InvalidLevelInConfig(t *testing.T) {
	t.Setenv("PEPCLEAN_CONFIG_PATH", writeConfig(t, t.TempDir(), "config.json", map[string]interface{}{"log-level": "loud"}))

	_, _, err := execute(t)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid value for "log-level"`)
}

func TestBindOptions_UnknownType(t *testing.T) {
	var d float64
	cmd := &cobra.Command{Use: "pepclean"}
	assert.Panics(t, func() {
		_ = BindOptions(viper.New(), cmd, []Opt{{DestP: &d, Flag: "ratio"}})
	})
}
