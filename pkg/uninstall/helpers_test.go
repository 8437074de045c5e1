package uninstall_test

import (
	"github.com/spf13/afero"

	"github.com/arthur-debert/tablepatch/pkg/testutil"
)

func writeGame(env *testutil.TestEnvironment, path string, data []byte) error {
	return afero.WriteFile(env.Game, path, data, 0o644)
}
