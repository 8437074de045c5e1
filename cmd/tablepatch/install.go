package tablepatch

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/tablepatch/pkg/filesystem"
	"github.com/arthur-debert/tablepatch/pkg/install"
	"github.com/arthur-debert/tablepatch/pkg/logging"
	"github.com/arthur-debert/tablepatch/pkg/manifest"
	"github.com/arthur-debert/tablepatch/pkg/uninstall"
)

func newInstallCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "install <mod>",
		Short: MsgInstallShort,
		Long:  MsgInstallLong,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.GetLogger("cmd.install")

			src, closer, err := filesystem.OpenReadOnly(args[0])
			if err != nil {
				return err
			}
			defer closer.Close()

			m, err := manifest.Load(src)
			if err != nil {
				return err
			}
			logger.Info().Str("mod", m.Name).Str("version", m.Version).Str("source", args[0]).Msg("Installing mod")

			s, observer, err := opts.openSession(cmd, "Installing "+m.Name)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := install.Install(cmd.Context(), s, src, m)
			observer.Done(err)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Upgraded && len(res.Reverted) > 0 {
				fmt.Fprintf(out, MsgUpgraded, res.Mod, res.Version, len(res.Reverted))
			}
			fmt.Fprintf(out, MsgInstalled, res.Mod, res.Version, len(res.Tables), len(res.Raw))
			return nil
		},
	}
}

func newUninstallCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <name>",
		Short: MsgUninstallShort,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, observer, err := opts.openSession(cmd, "Uninstalling "+args[0])
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := uninstall.Uninstall(cmd.Context(), s, args[0])
			observer.Done(err)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), MsgUninstalled, res.Mod, res.Version)
			return nil
		},
	}
}
