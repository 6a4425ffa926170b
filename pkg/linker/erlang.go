package linker

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/karrick/godirwalk"
	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"
)

const (
	// nestedLibDir is where nix-built Erlang packages keep their OTP applications
	nestedLibDir = "lib/erlang/lib"
	// hexSourceMarker separates the store hash from the package name of fetched hex sources
	hexSourceMarker = "-hex-source-"
)

// ErrNotHexSource is returned for paths that neither contain a nested lib
// directory nor follow the hex source naming convention
var ErrNotHexSource = xerrors.New("path is not a hex source and has no " + nestedLibDir)

// Link is a single dependency or plugin that needs to appear in the build tree
type Link struct {
	// Source is the store path the link points to
	Source string `yaml:"source" json:"source"`
	// Name is the OTP application name, used as link name
	Name string `yaml:"name" json:"name"`
}

// Resolve computes the links needed for a list of store paths. It only reads the filesystem.
//
// Paths that contain lib/erlang/lib (i.e. packages built with buildRebar3 or buildMix) expand to
// every application below that directory, named without their version. All other paths must be
// fetched hex sources and are named by everything after the -hex-source- marker.
// The first malformed path fails the whole resolution.
func Resolve(paths []string) ([]Link, error) {
	var res []Link
	for _, p := range paths {
		nested := filepath.Join(p, nestedLibDir)
		if stat, err := os.Stat(nested); err == nil && stat.IsDir() {
			names, err := godirwalk.ReadDirnames(nested, nil)
			if err != nil {
				return nil, xerrors.Errorf("cannot list %s: %w", nested, err)
			}
			sort.Strings(names)
			for _, n := range names {
				res = append(res, Link{
					Source: filepath.Join(nested, n),
					Name:   FixupAppName(n),
				})
			}
			continue
		}

		segs := strings.SplitN(p, hexSourceMarker, 2)
		if len(segs) != 2 || segs[1] == "" {
			return nil, xerrors.Errorf("%s: %w", p, ErrNotHexSource)
		}
		res = append(res, Link{
			Source: p,
			Name:   segs[1],
		})
	}
	return res, nil
}

// FixupAppName strips the version from a "<name>-<version>" string.
// Only the first dash counts, so "a-b-c" yields "a".
func FixupAppName(nameAndVersion string) string {
	name, _ := SplitNameVersion(nameAndVersion)
	return name
}

// SplitNameVersion splits "<name>-<version>" at the first dash.
// The version is empty if there is no dash.
func SplitNameVersion(s string) (name, version string) {
	segs := strings.SplitN(s, "-", 2)
	if len(segs) == 1 {
		return segs[0], ""
	}
	return segs[0], segs[1]
}

// Apply links every entry into root. Name collisions are not detected, the last link wins.
func Apply(root string, links []Link) error {
	for _, l := range links {
		dst := filepath.Join(root, l.Name)
		err := EnsureSymlink(l.Source, dst)
		if err != nil {
			return err
		}
		log.WithField("src", l.Source).WithField("dst", dst).Info("linked")
	}
	return nil
}
