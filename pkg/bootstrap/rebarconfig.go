package bootstrap

import (
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/gleber/rebar3-nix-bootstrap/pkg/internal/erlterm"
)

const (
	// PortCompilerPlugin is the rebar3 plugin that builds C ports and NIFs
	PortCompilerPlugin = erlterm.Atom("pc")

	keyPlugins  = erlterm.Atom("plugins")
	keyProfiles = erlterm.Atom("profiles")
)

// RebarConfigRewrite is the new content of rebar.config
type RebarConfigRewrite struct {
	Path    string `yaml:"path" json:"path"`
	Content string `yaml:"content" json:"content"`
}

func planRebarConfig(cfg Config) (*RebarConfigRewrite, error) {
	fn := cfg.RebarConfigPath()
	terms, err := erlterm.ParseFile(fn)
	if err != nil {
		return nil, newError(ErrorKindConfig, fn, "cannot read rebar config", err)
	}

	terms, err = TransformRebarConfig(terms, cfg.CompilePorts, cfg.DedupePlugins)
	if err != nil {
		return nil, newError(ErrorKindConfig, fn, "cannot rewrite rebar config", err)
	}
	return &RebarConfigRewrite{
		Path:    fn,
		Content: string(erlterm.Format(terms)),
	}, nil
}

// TransformRebarConfig adds the port compiler plugin if compilePorts is set and drops all profiles.
//
// The plugin is prepended to an existing plugins list even if it is already present, unless
// dedupe is set. Without an existing plugins entry a new one is added as first term.
func TransformRebarConfig(terms []erlterm.Term, compilePorts, dedupe bool) ([]erlterm.Term, error) {
	if compilePorts {
		idx := erlterm.KeyFind(terms, keyPlugins)
		if idx < 0 {
			entry := erlterm.Tuple{keyPlugins, erlterm.List{PortCompilerPlugin}}
			terms = append([]erlterm.Term{entry}, terms...)
		} else {
			entry := terms[idx].(erlterm.Tuple)
			if len(entry) != 2 {
				return nil, xerrors.Errorf("plugins entry must be a pair, found %s", erlterm.FormatTerm(entry))
			}
			plugins, ok := entry[1].(erlterm.List)
			if !ok {
				return nil, xerrors.Errorf("plugins entry must hold a list, found %s", erlterm.FormatTerm(entry[1]))
			}
			if !dedupe || !containsPlugin(plugins, PortCompilerPlugin) {
				plugins = append(erlterm.List{PortCompilerPlugin}, plugins...)
			}
			terms = erlterm.KeyStore(terms, keyPlugins, erlterm.Tuple{keyPlugins, plugins})
		}
	}

	return erlterm.KeyDeleteAll(terms, keyProfiles), nil
}

// containsPlugin matches both bare plugin names and {Name, ...} specs
func containsPlugin(plugins erlterm.List, name erlterm.Atom) bool {
	for _, p := range plugins {
		if a, ok := p.(erlterm.Atom); ok && a == name {
			return true
		}
		if k, ok := erlterm.Key(p); ok && k == name {
			return true
		}
	}
	return false
}

// Apply writes the rewritten rebar.config
func (r *RebarConfigRewrite) Apply() error {
	err := os.WriteFile(r.Path, []byte(r.Content), 0644)
	if err != nil {
		return newError(ErrorKindFileSystem, r.Path, "cannot write rebar config", err)
	}
	log.WithField("path", r.Path).Info("rewrote rebar config")
	return nil
}
