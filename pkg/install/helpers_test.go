package install_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/tablepatch/pkg/codec"
	"github.com/arthur-debert/tablepatch/pkg/ledger"
	"github.com/arthur-debert/tablepatch/pkg/testutil"
)

func codecRecords() *codec.Kind { return codec.RecordsKind() }

func mustMod(t *testing.T, env *testutil.TestEnvironment, name string) *ledger.Mod {
	t.Helper()
	m, ok := env.Ledger().Mod(name)
	require.True(t, ok, "mod %s not in ledger", name)
	return m
}
