// Package cli builds cobra commands whose options can be set with flags,
// environment variables or a config file.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

// Opt is a single command-line option
type Opt struct {
	DestP interface{} // pointer to the destination

	Flag    string
	Short   rune
	Default interface{}
	Desc    string
}

// Program parses CLI options
type Program struct {
	// Run is invoked by cobra on execute with the positional arguments.
	Run func(args []string) error
	// Name is the name of the program in help usage and the env var prefix.
	Name string
	// Use overrides the usage line. It defaults to Name.
	Use   string
	Short string
	Long  string
	// Args validates the positional arguments. Defaults to cobra.NoArgs.
	Args cobra.PositionalArgs
	// Opts are the command line/env var options to the program
	Opts []Opt
}

// configExts lists the config file types in order of precedence.
var configExts = []string{"json", "toml", "yaml", "yml"}

// NewCommand creates a new cobra command to be executed that respects env vars
// and config files.
//
// Uses the upper-case version of the program's name as a prefix
// to all environment variables. The config file is read from the path in
// <NAME>_CONFIG_PATH, which may name a file or a directory holding a
// config.{json,toml,yaml,yml}. Without it, the working directory is searched.
//
// Flags take precedence over env vars, which take precedence over the config file.
func NewCommand(v *viper.Viper, p *Program) (*cobra.Command, error) {
	use := p.Use
	if use == "" {
		use = p.Name
	}
	args := p.Args
	if args == nil {
		args = cobra.NoArgs
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: p.Short,
		Long:  p.Long,
		Args:  args,
		RunE: func(_ *cobra.Command, args []string) error {
			return p.Run(args)
		},
	}

	prefix := strings.ToUpper(p.Name)
	v.SetEnvPrefix(prefix)
	v.AutomaticEnv()
	// This normalizes "-" to an underscore in env names.
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	if err := initializeConfig(v, os.Getenv(prefix+"_CONFIG_PATH")); err != nil {
		return nil, err
	}

	if err := BindOptions(v, cmd, p.Opts); err != nil {
		return nil, err
	}
	return cmd, nil
}

func initializeConfig(v *viper.Viper, configPath string) error {
	explicit := configPath != ""
	if !explicit {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		configPath = wd
	}

	fi, err := os.Stat(configPath)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("unable to read config %q: %w", configPath, err)
	}

	file := configPath
	if fi.IsDir() {
		file = findConfigFile(configPath)
		if file == "" {
			return nil
		}
	}

	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("unable to read config %q: %w", file, err)
	}
	return nil
}

func findConfigFile(dir string) string {
	for _, ext := range configExts {
		path := filepath.Join(dir, "config."+ext)
		if fi, err := os.Stat(path); err == nil && fi.Mode().IsRegular() {
			return path
		}
	}
	return ""
}

// BindOptions adds opts to the specified command and automatically
// registers those options with viper. Destinations are initialized from
// env vars and the config file; flags given on the command line overwrite
// them when the command is executed.
func BindOptions(v *viper.Viper, cmd *cobra.Command, opts []Opt) error {
	flags := cmd.Flags()
	for _, o := range opts {
		short := ""
		if o.Short != 0 {
			short = string(o.Short)
		}

		switch destP := o.DestP.(type) {
		case *string:
			var d string
			if o.Default != nil {
				d = o.Default.(string)
			}
			flags.StringVarP(destP, o.Flag, short, d, o.Desc)
			mustBindPFlag(v, o.Flag, cmd)
			if v.IsSet(o.Flag) {
				*destP = v.GetString(o.Flag)
			}
		case *int:
			var d int
			if o.Default != nil {
				d = o.Default.(int)
			}
			flags.IntVarP(destP, o.Flag, short, d, o.Desc)
			mustBindPFlag(v, o.Flag, cmd)
			if v.IsSet(o.Flag) {
				*destP = v.GetInt(o.Flag)
			}
		case *bool:
			var d bool
			if o.Default != nil {
				d = o.Default.(bool)
			}
			flags.BoolVarP(destP, o.Flag, short, d, o.Desc)
			mustBindPFlag(v, o.Flag, cmd)
			if v.IsSet(o.Flag) {
				*destP = v.GetBool(o.Flag)
			}
		case *zapcore.Level:
			var d zapcore.Level
			if o.Default != nil {
				d = o.Default.(zapcore.Level)
			}
			LevelVarP(flags, destP, o.Flag, short, d, o.Desc)
			mustBindPFlag(v, o.Flag, cmd)
			if v.IsSet(o.Flag) {
				if err := destP.Set(v.GetString(o.Flag)); err != nil {
					return fmt.Errorf("invalid value for %q: %w", o.Flag, err)
				}
			}
		default:
			// if you get a panic here, sorry about that!
			// anyway, go ahead and make a PR and add another type.
			panic(fmt.Errorf("unknown destination type %T", o.DestP))
		}
	}
	return nil
}

func mustBindPFlag(v *viper.Viper, key string, cmd *cobra.Command) {
	if err := v.BindPFlag(key, cmd.Flags().Lookup(key)); err != nil {
		panic(err)
	}
}
