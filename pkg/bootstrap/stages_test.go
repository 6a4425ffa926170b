package bootstrap

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gleber/rebar3-nix-bootstrap/pkg/internal/erlterm"
	"github.com/gleber/rebar3-nix-bootstrap/pkg/testutil"
)

func TestTransformRebarConfig(t *testing.T) {
	tests := []struct {
		Name         string
		Input        string
		CompilePorts bool
		Dedupe       bool
		Expectation  string
		Error        bool
	}{
		{
			Name:         "adds plugins entry at the head",
			Input:        "{erl_opts, [debug_info]}.",
			CompilePorts: true,
			Expectation:  "{plugins,[pc]}.\n{erl_opts,[debug_info]}.\n",
		},
		{
			Name:         "prepends to existing plugins in place",
			Input:        "{erl_opts, [debug_info]}.\n{plugins, [rebar3_hex]}.",
			CompilePorts: true,
			Expectation:  "{erl_opts,[debug_info]}.\n{plugins,[pc,rebar3_hex]}.\n",
		},
		{
			Name:         "does not check for duplicates",
			Input:        "{plugins, [pc]}.",
			CompilePorts: true,
			Expectation:  "{plugins,[pc,pc]}.\n",
		},
		{
			Name:         "dedupe skips present plugin",
			Input:        "{plugins, [{pc, \"1.12.0\"}]}.",
			CompilePorts: true,
			Dedupe:       true,
			Expectation:  "{plugins,[{pc,\"1.12.0\"}]}.\n",
		},
		{
			Name:         "dedupe still adds missing plugin",
			Input:        "{plugins, [rebar3_hex]}.",
			CompilePorts: true,
			Dedupe:       true,
			Expectation:  "{plugins,[pc,rebar3_hex]}.\n",
		},
		{
			Name:        "plugins untouched without ports",
			Input:       "{plugins, [rebar3_hex]}.",
			Expectation: "{plugins,[rebar3_hex]}.\n",
		},
		{
			Name:        "strips profiles",
			Input:       "{deps, []}.\n{profiles, [{test, [{deps, [meck]}]}]}.",
			Expectation: "{deps,[]}.\n",
		},
		{
			Name:         "strips profiles with ports",
			Input:        "{profiles, []}.\n{deps, []}.",
			CompilePorts: true,
			Expectation:  "{plugins,[pc]}.\n{deps,[]}.\n",
		},
		{
			Name:         "malformed plugins entry",
			Input:        "{plugins, pc}.",
			CompilePorts: true,
			Error:        true,
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			terms, err := erlterm.Parse([]byte(test.Input))
			require.NoError(t, err)

			res, err := TransformRebarConfig(terms, test.CompilePorts, test.Dedupe)
			if test.Error {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			if diff := cmp.Diff(test.Expectation, string(erlterm.Format(res))); diff != "" {
				t.Errorf("TransformRebarConfig() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSetAppVersion(t *testing.T) {
	tests := []struct {
		Name        string
		Input       string
		Expectation string
		Error       bool
	}{
		{
			Name:        "replaces vsn",
			Input:       `{application, myapp, [{description, "x"}, {vsn, git}, {modules, []}]}.`,
			Expectation: "{application,myapp,[{description,\"x\"},{vsn,\"1.2.3\"},{modules,[]}]}.\n",
		},
		{
			Name:        "appends missing vsn",
			Input:       `{application, myapp, [{modules, []}]}.`,
			Expectation: "{application,myapp,[{modules,[]},{vsn,\"1.2.3\"}]}.\n",
		},
		{
			Name:        "only first vsn is replaced",
			Input:       `{application, myapp, [{vsn, "a"}, {vsn, "b"}]}.`,
			Expectation: "{application,myapp,[{vsn,\"1.2.3\"},{vsn,\"b\"}]}.\n",
		},
		{Name: "wrong tag", Input: `{library, myapp, []}.`, Error: true},
		{Name: "name not an atom", Input: `{application, "myapp", []}.`, Error: true},
		{Name: "details not a list", Input: `{application, myapp, {}}.`, Error: true},
		{Name: "too short", Input: `{application, myapp}.`, Error: true},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			terms, err := erlterm.Parse([]byte(test.Input))
			require.NoError(t, err)
			require.Len(t, terms, 1)

			res, err := SetAppVersion(terms[0], "1.2.3")
			if test.Error {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)

			if diff := cmp.Diff(test.Expectation, string(erlterm.Format([]erlterm.Term{res}))); diff != "" {
				t.Errorf("SetAppVersion() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func materialize(t *testing.T, setup testutil.Setup) *testutil.Materialized {
	t.Helper()

	m, err := setup.Materialize()
	if err != nil {
		t.Skipf("cannot materialize test setup: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(m.Root) })
	return m
}

func TestParseLockEntry(t *testing.T) {
	m := materialize(t, testutil.Setup{
		Store: []testutil.StorePath{
			{Name: "foo-1.2.3", Files: map[string]string{"nix-support/appName": "myapp\n"}},
			{Name: "a-b-c", Files: map[string]string{"nix-support/appName": "a"}},
			{Name: "nodash", Files: map[string]string{"nix-support/appName": "nodash"}},
			{Name: "noappname-1.0.0"},
			{Name: "emptyappname-1.0.0", Files: map[string]string{"nix-support/appName": " \n"}},
		},
	})

	type Expectation struct {
		Entry LockEntry
		Error ErrorKind
	}
	tests := []struct {
		Name        string
		Path        string
		Expectation Expectation
	}{
		{
			Name:        "valid",
			Path:        m.Paths["foo-1.2.3"],
			Expectation: Expectation{Entry: LockEntry{AppName: "myapp", PkgName: "foo", Version: "1.2.3"}},
		},
		{
			Name:        "splits at first dash",
			Path:        m.Paths["a-b-c"],
			Expectation: Expectation{Entry: LockEntry{AppName: "a", PkgName: "a", Version: "b-c"}},
		},
		{Name: "no version", Path: m.Paths["nodash"], Expectation: Expectation{Error: ErrorKindInput}},
		{Name: "missing appName", Path: m.Paths["noappname-1.0.0"], Expectation: Expectation{Error: ErrorKindInput}},
		{Name: "empty appName", Path: m.Paths["emptyappname-1.0.0"], Expectation: Expectation{Error: ErrorKindInput}},
		{Name: "too short", Path: "/nix/store/foo-1.0", Expectation: Expectation{Error: ErrorKindInput}},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			var act Expectation
			entry, err := ParseLockEntry(test.Path)
			if err != nil {
				berr, ok := err.(*Error)
				require.True(t, ok, "expected *Error, got %T", err)
				act.Error = berr.Kind
			} else {
				act.Entry = entry
			}

			if diff := cmp.Diff(test.Expectation, act); diff != "" {
				t.Errorf("ParseLockEntry() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLockfileContent(t *testing.T) {
	tests := []struct {
		Name        string
		Entries     []LockEntry
		Expectation string
	}{
		{
			Name:        "empty",
			Expectation: "[].\n",
		},
		{
			Name:        "single",
			Entries:     []LockEntry{{AppName: "myapp", PkgName: "foo", Version: "1.2.3"}},
			Expectation: "[{<<\"myapp\">>,{pkg,<<\"foo\">>,<<\"1.2.3\">>},0}].\n",
		},
		{
			Name: "multiple keep order",
			Entries: []LockEntry{
				{AppName: "b", PkgName: "b", Version: "1"},
				{AppName: "a", PkgName: "a", Version: "2"},
			},
			Expectation: "[{<<\"b\">>,{pkg,<<\"b\">>,<<\"1\">>},0},{<<\"a\">>,{pkg,<<\"a\">>,<<\"2\">>},0}].\n",
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			l := Lockfile{Entries: test.Entries}
			if diff := cmp.Diff(test.Expectation, string(l.Content())); diff != "" {
				t.Errorf("Content() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLinkRegistry(t *testing.T) {
	tests := []struct {
		Name     string
		Existing func(t *testing.T, path string)
	}{
		{
			Name: "fresh",
		},
		{
			Name: "stale link",
			Existing: func(t *testing.T, path string) {
				require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
				require.NoError(t, os.Symlink("/does/not/exist", path))
			},
		},
		{
			Name: "regular file",
			Existing: func(t *testing.T, path string) {
				require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
				require.NoError(t, os.WriteFile(path, []byte("downloaded registry"), 0644))
			},
		},
	}

	for _, test := range tests {
		t.Run(test.Name, func(t *testing.T) {
			m := materialize(t, testutil.Setup{Registry: "snapshot"})
			cfg := Config{RegistrySnapshot: m.RegistrySnapshot, CacheDir: m.CacheDir}
			if test.Existing != nil {
				test.Existing(t, cfg.RegistryCachePath())
			}

			require.NoError(t, LinkRegistry(cfg))

			target, err := os.Readlink(cfg.RegistryCachePath())
			require.NoError(t, err)
			assert.Equal(t, m.RegistrySnapshot, target)

			fc, err := os.ReadFile(cfg.RegistryCachePath())
			require.NoError(t, err)
			assert.Equal(t, "snapshot", string(fc))
		})
	}
}

func TestLinkRegistryMissingSnapshot(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{RegistrySnapshot: filepath.Join(dir, "missing"), CacheDir: filepath.Join(dir, "cache")}

	err := LinkRegistry(cfg)
	require.Error(t, err)
	assert.True(t, IsKind(err, ErrorKindConfig), "expected config error, got %v", err)
	assert.True(t, strings.Contains(err.Error(), EnvvarRegistrySnapshot))

	_, err = os.Lstat(cfg.RegistryCachePath())
	assert.True(t, os.IsNotExist(err), "registry link must not be created")
}

func TestLinkRegistrySnapshotIsDirectory(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{RegistrySnapshot: dir, CacheDir: filepath.Join(dir, "cache")}

	err := LinkRegistry(cfg)
	assert.True(t, IsKind(err, ErrorKindConfig), "expected config error, got %v", err)
}
