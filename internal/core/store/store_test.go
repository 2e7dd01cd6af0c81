package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/namelens/orgmatch/internal/config"
)

func TestResolveLocation(t *testing.T) {
	dir := t.TempDir()

	cases := []struct {
		name string
		cfg  config.StoreConfig
		dsn  string
		kind locationKind
	}{
		{
			name: "RemoteURLGetsToken",
			cfg:  config.StoreConfig{URL: "libsql://example.turso.io", AuthToken: "token123"},
			dsn:  "libsql://example.turso.io?authToken=token123",
			kind: kindRemote,
		},
		{
			name: "RemoteURLKeepsQuery",
			cfg:  config.StoreConfig{URL: "libsql://example.turso.io?foo=bar", AuthToken: "token123"},
			dsn:  "libsql://example.turso.io?authToken=token123&foo=bar",
			kind: kindRemote,
		},
		{
			name: "ExistingTokenWins",
			cfg:  config.StoreConfig{URL: "libsql://example.turso.io?authToken=mine", AuthToken: "other"},
			dsn:  "libsql://example.turso.io?authToken=mine",
			kind: kindRemote,
		},
		{
			name: "URLBeatsPath",
			cfg:  config.StoreConfig{URL: "libsql://example.turso.io", Path: ":memory:"},
			dsn:  "libsql://example.turso.io",
			kind: kindRemote,
		},
		{
			name: "Memory",
			cfg:  config.StoreConfig{Path: ":memory:"},
			dsn:  ":memory:",
			kind: kindMemory,
		},
		{
			name: "FileDSNPassesThrough",
			cfg:  config.StoreConfig{Path: "file:./orgmatch.db"},
			dsn:  "file:./orgmatch.db",
			kind: kindFile,
		},
		{
			name: "PlainPathBecomesFileDSN",
			cfg:  config.StoreConfig{Path: filepath.Join(dir, "nested", "orgmatch.db")},
			dsn:  "file:" + filepath.Join(dir, "nested", "orgmatch.db"),
			kind: kindFile,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			loc, err := resolveLocation(tc.cfg)
			require.NoError(t, err)
			require.Equal(t, tc.dsn, loc.dsn)
			require.Equal(t, tc.kind, loc.kind)
			require.Equal(t, tc.kind != kindRemote, loc.local())
		})
	}

	require.DirExists(t, filepath.Join(dir, "nested"))
}

func TestResolveLocationRequiresPathOrURL(t *testing.T) {
	_, err := resolveLocation(config.StoreConfig{Path: "  "})
	require.ErrorContains(t, err, "store path or url is required")
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(t.Context(), config.StoreConfig{Driver: "postgres", Path: ":memory:"})
	require.ErrorContains(t, err, "unsupported store driver: postgres")
}

func TestMatchExpression(t *testing.T) {
	require.Equal(t, `"north"* OR "wind"*`, MatchExpression([]string{"north", " ", "wind"}))
	require.Equal(t, `"a""b"*`, MatchExpression([]string{`a"b`}))
	require.Equal(t, "", MatchExpression(nil))
}
