package tablepatch

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/tablepatch/pkg/ledger"
)

func newListCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: MsgListShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			// Reading the ledger needs neither the lock nor the game directory.
			l := ledger.NewStore(afero.NewOsFs(), cfg.Ledger.Path).Load()

			out := cmd.OutOrStdout()
			if len(l.Mods) == 0 {
				fmt.Fprintln(out, MsgNoMods)
				return nil
			}

			data := pterm.TableData{{"MOD", "VERSION", "TABLES", "FILES"}}
			for _, name := range l.Names() {
				m := l.Mods[name]
				tables, raw := 0, 0
				for _, f := range m.Files {
					if f.Raw {
						raw++
					} else {
						tables++
					}
				}
				data = append(data, []string{name, m.Version, strconv.Itoa(tables), strconv.Itoa(raw)})
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).WithWriter(out).Render()
		},
	}
}
