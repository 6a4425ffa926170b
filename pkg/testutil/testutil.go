package testutil

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

// storePrefixLen mirrors the fixed width of "/nix/store/<hash>-" that dependency paths are parsed with
const storePrefixLen = 44

// Setup describes a fake nix store, hex registry snapshot and rebar3 project
type Setup struct {
	Registry string            `yaml:"registry"`
	Project  map[string]string `yaml:"project"`
	Store    []StorePath       `yaml:"store"`
}

// StorePath is a single store path. Its name is the part after the hash, e.g. cowboy-2.9.0.
type StorePath struct {
	Name  string            `yaml:"name"`
	Files map[string]string `yaml:"files"`
}

// Materialized is a setup laid out on disk
type Materialized struct {
	Root             string
	ProjectDir       string
	StoreDir         string
	CacheDir         string
	RegistrySnapshot string

	// Paths maps store path names to their location
	Paths map[string]string
}

// LoadFromYAML loads a setup from a YAML file
func LoadFromYAML(in io.Reader) (*Setup, error) {
	fc, err := io.ReadAll(in)
	if err != nil {
		return nil, err
	}

	var res Setup
	err = yaml.Unmarshal(fc, &res)
	if err != nil {
		return nil, err
	}

	return &res, nil
}

// Materialize writes the setup into a new temporary directory. The caller removes Root when done.
//
// Store paths are given a fake hash sized so that everything up to and including the dash
// after the hash is exactly as long as a real /nix/store prefix.
func (s Setup) Materialize() (res *Materialized, err error) {
	root, err := os.MkdirTemp("", "r3nb")
	if err != nil {
		return nil, err
	}
	res = &Materialized{
		Root:       root,
		ProjectDir: filepath.Join(root, "project"),
		StoreDir:   filepath.Join(root, "s"),
		CacheDir:   filepath.Join(root, "cache"),
		Paths:      make(map[string]string, len(s.Store)),
	}

	hashLen := storePrefixLen - len(res.StoreDir) - 2
	if hashLen < 1 {
		return nil, xerrors.Errorf("temporary directory %s is too long to fake store paths", res.StoreDir)
	}
	hash := strings.Repeat("0", hashLen)

	err = writeFiles(res.ProjectDir, s.Project)
	if err != nil {
		return nil, err
	}
	for _, sp := range s.Store {
		loc := filepath.Join(res.StoreDir, hash+"-"+sp.Name)
		err = writeFiles(loc, sp.Files)
		if err != nil {
			return nil, err
		}
		res.Paths[sp.Name] = loc
	}

	if s.Registry != "" {
		res.RegistrySnapshot = filepath.Join(res.StoreDir, hash+"-hex-registry-snapshot")
		err = os.MkdirAll(res.StoreDir, 0755)
		if err != nil {
			return nil, err
		}
		err = os.WriteFile(res.RegistrySnapshot, []byte(s.Registry), 0644)
		if err != nil {
			return nil, err
		}
	}

	return res, nil
}

func writeFiles(dir string, files map[string]string) error {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return err
	}
	for name, content := range files {
		fn := filepath.Join(dir, name)
		err = os.MkdirAll(filepath.Dir(fn), 0755)
		if err != nil {
			return err
		}
		err = os.WriteFile(fn, []byte(content), 0644)
		if err != nil {
			return err
		}
	}
	return nil
}

// Lookup returns an environment lookup for the materialized setup. The registry snapshot,
// cache directory and the given variables are set; everything else is unset.
func (m *Materialized) Lookup(env map[string]string) func(string) (string, bool) {
	vars := map[string]string{
		"HEX_REGISTRY_SNAPSHOT": m.RegistrySnapshot,
		"REBAR_CACHE_DIR":       m.CacheDir,
	}
	for k, v := range env {
		vars[k] = v
	}
	return func(key string) (string, bool) {
		v, ok := vars[key]
		return v, ok
	}
}

// Join returns the given store paths joined by sep
func (m *Materialized) Join(sep string, names ...string) string {
	paths := make([]string, 0, len(names))
	for _, n := range names {
		paths = append(paths, m.Paths[n])
	}
	return strings.Join(paths, sep)
}
