package cmd

import (
	"fmt"
	"os"

	"github.com/gookit/color"
	"github.com/segmentio/textio"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gleber/rebar3-nix-bootstrap/pkg/bootstrap"
)

const (
	// EnvvarDebug enables debug logging when set to "true"
	EnvvarDebug = "REBAR3_NIX_BOOTSTRAP_DEBUG"
)

var (
	// version is set during the build using ldflags
	version string = "unknown"

	dedupePlugins bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rebar3-nix-bootstrap [registry-only]",
	Short: "Prepares a rebar3 project for an offline build inside a nix derivation",
	Long: color.Render(`<light_yellow>rebar3-nix-bootstrap prepares a rebar3 project</> so that it builds without network access. It
  links the hex registry snapshot into the rebar3 cache, rewrites rebar.config, sets the version in the
  application descriptor, writes rebar.lock and links plugins and dependencies into _build/default.

  When one of the arguments is "registry-only", only the hex registry snapshot is linked.

<white>Configuration</>
rebar3-nix-bootstrap is configured exclusively through environment variables, which nix sets for the derivation:
                <light_blue>version</>  Version written into the application descriptor. Required.
                   <light_blue>name</>  Name of the OTP application being built. Required.
  <light_blue>HEX_REGISTRY_SNAPSHOT</>  Path of the hex registry snapshot. Required.
           <light_blue>compilePorts</>  When set to "1", the pc port compiler plugin is added to rebar.config.
           <light_blue>buildPlugins</>  Space separated store paths of rebar3 plugins.
            <light_blue>ERLANG_DEPS</>  Colon separated store paths recorded in rebar.lock.
               <light_blue>ERL_LIBS</>  Colon separated store paths linked into _build/default/lib.
            <light_blue>ERLANG_ROOT</>  Root of the Erlang installation. Informational.
        <light_blue>REBAR_CACHE_DIR</>  rebar3 cache directory. Defaults to $HOME/.cache/rebar3.
<light_blue>REBAR3_NIX_BOOTSTRAP_DEBUG</>  Enables debug logging when set to "true".
`),
	Args: cobra.ArbitraryArgs,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetOutput(os.Stdout)
		if os.Getenv(EnvvarDebug) == "true" {
			log.SetLevel(log.DebugLevel)
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig(args)
		if err != nil {
			return err
		}

		return bootstrap.Run(cfg)
	},
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		printError(err)
		os.Exit(1)
	}
}

func printError(err error) {
	w := textio.NewPrefixWriter(os.Stderr, color.Red.Sprint("rebar3-nix-bootstrap: "))
	fmt.Fprintln(w, err)
	w.Flush()
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&dedupePlugins, "dedupe-plugins", false, "do not add the port compiler plugin if rebar.config already lists it")
}

func getConfig(args []string) (bootstrap.Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return bootstrap.Config{}, err
	}

	cfg, err := bootstrap.ConfigFromEnvironment(args, os.LookupEnv, wd)
	if err != nil {
		return cfg, err
	}
	cfg.DedupePlugins = dedupePlugins
	return cfg, nil
}
