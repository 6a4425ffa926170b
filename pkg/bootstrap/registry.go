package bootstrap

import (
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/gleber/rebar3-nix-bootstrap/pkg/linker"
)

// RegistryLink is the symlink that makes rebar3 use the pre-fetched hex registry
type RegistryLink struct {
	Snapshot string `yaml:"snapshot" json:"snapshot"`
	Path     string `yaml:"path" json:"path"`
}

func planRegistryLink(cfg Config) (RegistryLink, error) {
	stat, err := os.Stat(cfg.RegistrySnapshot)
	if err != nil {
		return RegistryLink{}, newError(ErrorKindConfig, EnvvarRegistrySnapshot, "registry snapshot does not exist", err)
	}
	if !stat.Mode().IsRegular() {
		return RegistryLink{}, newError(ErrorKindConfig, EnvvarRegistrySnapshot, cfg.RegistrySnapshot+" is not a regular file", nil)
	}
	return RegistryLink{Snapshot: cfg.RegistrySnapshot, Path: cfg.RegistryCachePath()}, nil
}

// Apply replaces whatever is at the registry cache location with a link to the snapshot
func (r RegistryLink) Apply() error {
	err := linker.EnsureSymlink(r.Snapshot, r.Path)
	if err != nil {
		return newError(ErrorKindFileSystem, r.Path, "cannot link hex registry", err)
	}
	log.WithField("snapshot", r.Snapshot).WithField("path", r.Path).Info("linked hex registry")
	return nil
}

// LinkRegistry validates the snapshot and links it into the rebar3 cache
func LinkRegistry(cfg Config) error {
	r, err := planRegistryLink(cfg)
	if err != nil {
		return err
	}
	return r.Apply()
}
