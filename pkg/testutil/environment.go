package testutil

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/tablepatch/pkg/config"
	"github.com/arthur-debert/tablepatch/pkg/ledger"
	"github.com/arthur-debert/tablepatch/pkg/session"
)

// LedgerPath is where test environments keep the ledger.
const LedgerPath = "/state/tablepatch/ledger.toml"

// Languages configured in test environments.
var Languages = []string{"en", "fr", "de"}

// TestEnvironment is an in-memory game installation.
type TestEnvironment struct {
	Game      afero.Fs
	Reference afero.Fs
	LedgerFS  afero.Fs
	Config    *config.Config

	t *testing.T
}

// NewTestEnvironment creates an empty installation.
func NewTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()
	return &TestEnvironment{
		Game:      afero.NewBasePathFs(afero.NewMemMapFs(), "/game"),
		Reference: afero.NewBasePathFs(afero.NewMemMapFs(), "/reference"),
		LedgerFS:  afero.NewMemMapFs(),
		Config:    NewConfig(),
		t:         t,
	}
}

// NewConfig returns a configuration with two message groups.
func NewConfig() *config.Config {
	return &config.Config{
		Ledger: config.Ledger{Path: LedgerPath},
		Backup: config.Backup{Dir: session.StateDir + "/backup"},
		Messages: config.Messages{
			Languages: Languages,
			Groups: map[string]config.MessageGroup{
				"accessory_name": {Base: "msg/accessory_name_", Template: "accessory_%03d"},
				"accessory_info": {Base: "msg/accessory_info_", Template: "accessory_eff_%03d"},
			},
		},
	}
}

// Open starts a session over the environment. It is closed when the test
// ends.
func (env *TestEnvironment) Open() *session.Session {
	env.t.Helper()
	s, err := env.OpenWith(env.Game)
	require.NoError(env.t, err)
	return s
}

// OpenWith starts a session using game as the installation filesystem.
func (env *TestEnvironment) OpenWith(game afero.Fs) (*session.Session, error) {
	s, err := session.Open(session.Options{
		Config:    env.Config,
		Game:      game,
		Reference: env.Reference,
		LedgerFS:  env.LedgerFS,
	})
	if err != nil {
		return nil, err
	}
	env.t.Cleanup(func() { _ = s.Close() })
	return s, nil
}

// Ledger loads the ledger as last saved.
func (env *TestEnvironment) Ledger() *ledger.Ledger {
	return ledger.NewStore(env.LedgerFS, LedgerPath).Load()
}

// Original writes the same bytes to the game and the reference copy.
func (env *TestEnvironment) Original(path string, data []byte) {
	env.t.Helper()
	require.NoError(env.t, afero.WriteFile(env.Game, path, data, 0o644))
	require.NoError(env.t, afero.WriteFile(env.Reference, path, data, 0o644))
}

// Read returns the game bytes of path.
func (env *TestEnvironment) Read(path string) []byte {
	env.t.Helper()
	data, err := afero.ReadFile(env.Game, path)
	require.NoError(env.t, err)
	return data
}

// Exists reports whether path exists in the game directory.
func (env *TestEnvironment) Exists(path string) bool {
	ok, _ := afero.Exists(env.Game, path)
	return ok
}
