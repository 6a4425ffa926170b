package bootstrap

import (
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

const (
	// EnvvarVersion names the variable holding the version written to the application descriptor
	EnvvarVersion = "version"
	// EnvvarName names the variable holding the project/application name
	EnvvarName = "name"
	// EnvvarRegistrySnapshot names the variable pointing to the pre-fetched hex registry
	EnvvarRegistrySnapshot = "HEX_REGISTRY_SNAPSHOT"
	// EnvvarErlLibs names the colon separated list of library paths
	EnvvarErlLibs = "ERL_LIBS"
	// EnvvarPlugins names the space separated list of rebar3 plugin paths
	EnvvarPlugins = "buildPlugins"
	// EnvvarBuildInputs names the colon separated list of dependency store paths that end up in rebar.lock
	EnvvarBuildInputs = "ERLANG_DEPS"
	// EnvvarCompilePorts enables the port compiler plugin when set to "1"
	EnvvarCompilePorts = "compilePorts"
	// EnvvarRoot names the Erlang installation root
	EnvvarRoot = "ERLANG_ROOT"
	// EnvvarCacheDir overrides the rebar3 global cache location, like it does for rebar3 itself
	EnvvarCacheDir = "REBAR_CACHE_DIR"
)

// RegistryOnlyArg restricts the bootstrap to linking the hex registry
const RegistryOnlyArg = "registry-only"

// LookupFunc looks up an environment variable, see os.LookupEnv
type LookupFunc func(key string) (string, bool)

// Config is everything the bootstrap stages need to know. It is built once
// and handed to each stage; no stage reads the environment itself.
type Config struct {
	RegistryOnly bool `yaml:"registryOnly" json:"registryOnly"`

	Version          string `yaml:"version" json:"version"`
	Name             string `yaml:"name" json:"name"`
	CompilePorts     bool   `yaml:"compilePorts" json:"compilePorts"`
	ErlLibs          string `yaml:"erlLibs,omitempty" json:"erlLibs,omitempty"`
	Plugins          string `yaml:"plugins,omitempty" json:"plugins,omitempty"`
	BuildInputs      string `yaml:"buildInputs,omitempty" json:"buildInputs,omitempty"`
	Root             string `yaml:"root,omitempty" json:"root,omitempty"`
	RegistrySnapshot string `yaml:"registrySnapshot" json:"registrySnapshot"`

	// CacheDir is the rebar3 global cache, usually ~/.cache/rebar3
	CacheDir string `yaml:"cacheDir" json:"cacheDir"`
	// ProjectDir is the rebar3 project the bootstrap operates on
	ProjectDir string `yaml:"projectDir" json:"projectDir"`

	// DedupePlugins makes the port compiler injection idempotent
	DedupePlugins bool `yaml:"dedupePlugins" json:"dedupePlugins"`
}

// ConfigFromEnvironment builds the configuration from the command line arguments and the environment.
// Missing mandatory variables and malformed flag values produce an *Error of kind ErrorKindConfig.
func ConfigFromEnvironment(args []string, lookup LookupFunc, projectDir string) (Config, error) {
	var res Config
	for _, arg := range args {
		if arg == RegistryOnlyArg {
			res.RegistryOnly = true
		}
	}

	var err error
	for _, v := range []struct {
		Name string
		Dst  *string
	}{
		{EnvvarVersion, &res.Version},
		{EnvvarName, &res.Name},
		{EnvvarRegistrySnapshot, &res.RegistrySnapshot},
	} {
		*v.Dst, err = mustGetenv(lookup, v.Name)
		if err != nil {
			return Config{}, err
		}
	}

	res.CompilePorts, err = parseFlag(lookup, EnvvarCompilePorts)
	if err != nil {
		return Config{}, err
	}

	res.ErlLibs, _ = lookup(EnvvarErlLibs)
	res.Plugins, _ = lookup(EnvvarPlugins)
	res.BuildInputs, _ = lookup(EnvvarBuildInputs)
	res.Root, _ = lookup(EnvvarRoot)

	res.CacheDir, _ = lookup(EnvvarCacheDir)
	if res.CacheDir == "" {
		home, err := homedir.Dir()
		if err != nil {
			return Config{}, newError(ErrorKindConfig, EnvvarCacheDir, "not set and cannot determine home directory", err)
		}
		res.CacheDir = filepath.Join(home, ".cache", "rebar3")
	}

	res.ProjectDir = projectDir
	return res, nil
}

func mustGetenv(lookup LookupFunc, name string) (string, error) {
	val, ok := lookup(name)
	if !ok || val == "" {
		return "", newError(ErrorKindConfig, name, "required environment variable is not set", nil)
	}
	return val, nil
}

func parseFlag(lookup LookupFunc, name string) (bool, error) {
	val, _ := lookup(name)
	switch val {
	case "1":
		return true, nil
	case "":
		return false, nil
	default:
		return false, newError(ErrorKindConfig, name, `must be "1" or empty, got "`+val+`"`, nil)
	}
}

// RegistryCachePath is where rebar3 looks for the hex registry
func (c Config) RegistryCachePath() string {
	return filepath.Join(c.CacheDir, "hex", "default", "registry")
}

// LockfilePath is the rebar.lock of the project
func (c Config) LockfilePath() string {
	return filepath.Join(c.ProjectDir, "rebar.lock")
}

// RebarConfigPath is the rebar.config of the project
func (c Config) RebarConfigPath() string {
	return filepath.Join(c.ProjectDir, "rebar.config")
}

// AppSrcPath is the application descriptor of a single-app project
func (c Config) AppSrcPath() string {
	return filepath.Join(c.ProjectDir, "src", c.Name+".app.src")
}

// PluginsDir is where rebar3 expects its plugins
func (c Config) PluginsDir() string {
	return filepath.Join(c.ProjectDir, "_build", "default", "plugins")
}

// LibDir is where rebar3 expects resolved dependencies
func (c Config) LibDir() string {
	return filepath.Join(c.ProjectDir, "_build", "default", "lib")
}
