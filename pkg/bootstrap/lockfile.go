package bootstrap

import (
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/gleber/rebar3-nix-bootstrap/pkg/internal/erlterm"
	"github.com/gleber/rebar3-nix-bootstrap/pkg/linker"
)

// storePrefixLen is the length of "/nix/store/<32 char hash>-"
const storePrefixLen = 44

// LockEntry pins a single hex package in rebar.lock
type LockEntry struct {
	AppName string `yaml:"app" json:"app"`
	PkgName string `yaml:"pkg" json:"pkg"`
	Version string `yaml:"version" json:"version"`
}

// Term renders the entry as {<<"app">>, {pkg, <<"pkg">>, <<"version">>}, 0}.
// The trailing 0 is the dependency level rebar3 expects.
func (e LockEntry) Term() erlterm.Term {
	return erlterm.Tuple{
		erlterm.Binary(e.AppName),
		erlterm.Tuple{erlterm.Atom("pkg"), erlterm.Binary(e.PkgName), erlterm.Binary(e.Version)},
		erlterm.Number("0"),
	}
}

// ParseLockEntry derives a lock entry from a dependency store path and its nix-support/appName file
func ParseLockEntry(path string) (LockEntry, error) {
	if len(path) <= storePrefixLen {
		return LockEntry{}, newError(ErrorKindInput, path, "dependency path is too short to be a store path", nil)
	}
	pkgName, version := linker.SplitNameVersion(path[storePrefixLen:])
	if pkgName == "" || version == "" {
		return LockEntry{}, newError(ErrorKindInput, path, "dependency path does not end in <package>-<version>", nil)
	}

	fn := filepath.Join(path, "nix-support", "appName")
	fc, err := os.ReadFile(fn)
	if err != nil {
		return LockEntry{}, newError(ErrorKindInput, path, "cannot read application name", err)
	}
	appName := strings.TrimSpace(string(fc))
	if appName == "" {
		return LockEntry{}, newError(ErrorKindInput, fn, "application name is empty", nil)
	}

	return LockEntry{
		AppName: appName,
		PkgName: pkgName,
		Version: version,
	}, nil
}

// Lockfile is the rebar.lock that pins all build inputs
type Lockfile struct {
	Path    string      `yaml:"path" json:"path"`
	Entries []LockEntry `yaml:"entries" json:"entries"`
}

func planLockfile(cfg Config) (*Lockfile, error) {
	res := &Lockfile{Path: cfg.LockfilePath()}
	for _, p := range splitList(cfg.BuildInputs, ":") {
		entry, err := ParseLockEntry(p)
		if err != nil {
			return nil, err
		}
		res.Entries = append(res.Entries, entry)
	}
	return res, nil
}

// Content renders the lockfile. Without entries this is the empty list.
func (l *Lockfile) Content() []byte {
	entries := make(erlterm.List, 0, len(l.Entries))
	for _, e := range l.Entries {
		entries = append(entries, e.Term())
	}
	return erlterm.Format([]erlterm.Term{entries})
}

// Apply writes the lockfile, replacing any existing one
func (l *Lockfile) Apply() error {
	err := os.WriteFile(l.Path, l.Content(), 0644)
	if err != nil {
		return newError(ErrorKindFileSystem, l.Path, "cannot write lockfile", err)
	}
	log.WithField("path", l.Path).WithField("entries", len(l.Entries)).Info("wrote lockfile")
	return nil
}

// splitList splits a path list and drops empty elements
func splitList(s, sep string) []string {
	var res []string
	for _, e := range strings.Split(s, sep) {
		if e == "" {
			continue
		}
		res = append(res, e)
	}
	return res
}
