package bootstrap

import (
	"os"

	log "github.com/sirupsen/logrus"
	"golang.org/x/xerrors"

	"github.com/gleber/rebar3-nix-bootstrap/pkg/internal/erlterm"
)

const (
	keyApplication = erlterm.Atom("application")
	keyVsn         = erlterm.Atom("vsn")
)

// AppSrcRewrite is the new content of src/<name>.app.src
type AppSrcRewrite struct {
	Path    string `yaml:"path" json:"path"`
	Content string `yaml:"content" json:"content"`
}

// planAppSrc returns nil if the project has no top-level application descriptor,
// which is the case for umbrella projects.
func planAppSrc(cfg Config) (*AppSrcRewrite, error) {
	fn := cfg.AppSrcPath()
	if _, err := os.Stat(fn); os.IsNotExist(err) {
		log.WithField("path", fn).Debug("no application descriptor - not a single-app project")
		return nil, nil
	}

	terms, err := erlterm.ParseFile(fn)
	if err != nil {
		return nil, newError(ErrorKindConfig, fn, "cannot read application descriptor", err)
	}
	if len(terms) != 1 {
		return nil, newError(ErrorKindConfig, fn, "application descriptor must contain exactly one term", nil)
	}
	desc, err := SetAppVersion(terms[0], cfg.Version)
	if err != nil {
		return nil, newError(ErrorKindConfig, fn, "malformed application descriptor", err)
	}

	return &AppSrcRewrite{
		Path:    fn,
		Content: string(erlterm.Format([]erlterm.Term{desc})),
	}, nil
}

// SetAppVersion replaces the vsn of an {application, Name, Details} descriptor.
// A descriptor without vsn gets one appended.
func SetAppVersion(desc erlterm.Term, version string) (erlterm.Term, error) {
	tpl, ok := desc.(erlterm.Tuple)
	if !ok || len(tpl) != 3 {
		return nil, xerrors.Errorf("expected {application, Name, Details}, found %s", erlterm.FormatTerm(desc))
	}
	if tag, ok := tpl[0].(erlterm.Atom); !ok || tag != keyApplication {
		return nil, xerrors.Errorf("expected application tag, found %s", erlterm.FormatTerm(tpl[0]))
	}
	if _, ok := tpl[1].(erlterm.Atom); !ok {
		return nil, xerrors.Errorf("application name must be an atom, found %s", erlterm.FormatTerm(tpl[1]))
	}
	details, ok := tpl[2].(erlterm.List)
	if !ok {
		return nil, xerrors.Errorf("application details must be a list, found %s", erlterm.FormatTerm(tpl[2]))
	}

	details = erlterm.KeyStore(details, keyVsn, erlterm.Tuple{keyVsn, erlterm.String(version)})
	return erlterm.Tuple{tpl[0], tpl[1], details}, nil
}

// Apply writes the updated application descriptor
func (r *AppSrcRewrite) Apply() error {
	err := os.WriteFile(r.Path, []byte(r.Content), 0644)
	if err != nil {
		return newError(ErrorKindFileSystem, r.Path, "cannot write application descriptor", err)
	}
	log.WithField("path", r.Path).Info("updated application version")
	return nil
}
