package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type rootFlags struct {
	port       string
	configPath string
	envFile    string
}

// Execute runs the CLI.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	v := viper.New()
	v.SetEnvPrefix("GAMESHOW")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "gameshow",
		Short:         "Live multi-team game show engine",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			bindEnv(v, cmd.Flags())
			return nil
		},
	}

	fs := cmd.PersistentFlags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})
	fs.StringVar(&flags.port, "port", "", "port to listen on (env: GAMESHOW_PORT)")
	fs.StringVar(&flags.configPath, "config", "", "path to YAML config (env: GAMESHOW_CONFIG)")
	fs.StringVar(&flags.envFile, "env-file", ".env", "dotenv file loaded before config (env: GAMESHOW_ENV_FILE)")

	cmd.AddCommand(newStartCmd(flags))
	cmd.AddCommand(newMigrateCmd(flags))
	cmd.AddCommand(newContentCmd(flags))
	cmd.AddCommand(newSessionCmd(flags))
	cmd.CompletionOptions.HiddenDefaultCmd = true
	return cmd
}

// bindEnv fills every flag left unset on the command line from GAMESHOW_*.
func bindEnv(v *viper.Viper, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}
