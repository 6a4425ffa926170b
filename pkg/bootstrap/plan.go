// Package bootstrap prepares a rebar3 project for an offline nix build: it links the
// pre-fetched hex registry, rewrites rebar.config and the application descriptor,
// writes rebar.lock and links plugins and libraries into _build.
//
// All decisions are made by NewPlan, which only reads from the filesystem. Plan.Apply
// then performs the writes and links in stage order. Every step replaces what was
// there before, so re-running the bootstrap converges to the same state; the one
// exception is the port compiler injection, see TransformRebarConfig.
package bootstrap

import (
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/gleber/rebar3-nix-bootstrap/pkg/linker"
)

// Plan is the complete set of changes a bootstrap run makes
type Plan struct {
	Registry RegistryLink `yaml:"registry" json:"registry"`

	// The remaining fields are empty in registry-only mode
	RebarConfig *RebarConfigRewrite `yaml:"rebarConfig,omitempty" json:"rebarConfig,omitempty"`
	AppSrc      *AppSrcRewrite      `yaml:"appSrc,omitempty" json:"appSrc,omitempty"`
	Lockfile    *Lockfile           `yaml:"lockfile,omitempty" json:"lockfile,omitempty"`
	PluginsDir  string              `yaml:"pluginsDir,omitempty" json:"pluginsDir,omitempty"`
	Plugins     []linker.Link       `yaml:"plugins,omitempty" json:"plugins,omitempty"`
	LibDir      string              `yaml:"libDir,omitempty" json:"libDir,omitempty"`
	Libraries   []linker.Link       `yaml:"libraries,omitempty" json:"libraries,omitempty"`
}

// NewPlan computes what a bootstrap run would do. Stages are evaluated in order and
// the first failure is returned.
func NewPlan(cfg Config) (*Plan, error) {
	var (
		res Plan
		err error
	)
	res.Registry, err = planRegistryLink(cfg)
	if err != nil {
		return nil, err
	}
	if cfg.RegistryOnly {
		return &res, nil
	}

	res.RebarConfig, err = planRebarConfig(cfg)
	if err != nil {
		return nil, err
	}
	res.AppSrc, err = planAppSrc(cfg)
	if err != nil {
		return nil, err
	}
	res.Lockfile, err = planLockfile(cfg)
	if err != nil {
		return nil, err
	}

	res.PluginsDir = cfg.PluginsDir()
	res.Plugins, err = resolveLinks(strings.Fields(cfg.Plugins))
	if err != nil {
		return nil, err
	}
	res.LibDir = cfg.LibDir()
	res.Libraries, err = resolveLinks(splitList(cfg.ErlLibs, ":"))
	if err != nil {
		return nil, err
	}

	return &res, nil
}

func resolveLinks(paths []string) ([]linker.Link, error) {
	res, err := linker.Resolve(paths)
	if xerrors.Is(err, linker.ErrNotHexSource) {
		return nil, newError(ErrorKindInput, "store path", "cannot derive application name", err)
	}
	if err != nil {
		return nil, newError(ErrorKindFileSystem, "store path", "cannot resolve links", err)
	}
	return res, nil
}

// Apply performs the planned changes in stage order and stops at the first failure
func (p *Plan) Apply() error {
	err := p.Registry.Apply()
	if err != nil {
		return err
	}

	if p.RebarConfig != nil {
		err = p.RebarConfig.Apply()
		if err != nil {
			return err
		}
	}
	if p.AppSrc != nil {
		err = p.AppSrc.Apply()
		if err != nil {
			return err
		}
	}
	if p.Lockfile != nil {
		err = p.Lockfile.Apply()
		if err != nil {
			return err
		}
	}

	for _, links := range []struct {
		Kind  string
		Root  string
		Links []linker.Link
	}{
		{"plugin", p.PluginsDir, p.Plugins},
		{"library", p.LibDir, p.Libraries},
	} {
		log.WithField("kind", links.Kind).WithField("count", len(links.Links)).Debug("linking")
		err = linker.Apply(links.Root, links.Links)
		if err != nil {
			return newError(ErrorKindFileSystem, links.Root, "cannot link "+links.Kind, err)
		}
	}
	return nil
}

// Run plans and applies the bootstrap
func Run(cfg Config) error {
	plan, err := NewPlan(cfg)
	if err != nil {
		return err
	}
	return plan.Apply()
}
