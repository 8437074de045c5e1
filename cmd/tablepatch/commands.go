package tablepatch

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/tablepatch/internal/version"
	"github.com/arthur-debert/tablepatch/pkg/config"
	"github.com/arthur-debert/tablepatch/pkg/logging"
	"github.com/arthur-debert/tablepatch/pkg/progress"
	"github.com/arthur-debert/tablepatch/pkg/session"
)

type globalOptions struct {
	verbosity  int
	game       string
	reference  string
	configFile string
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "tablepatch",
		Short: MsgRootShort,
		Long:  MsgRootLong,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logging.SetupLogger(opts.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	rootCmd.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().StringVar(&opts.game, "game", "", MsgFlagGame)
	rootCmd.PersistentFlags().StringVar(&opts.reference, "reference", "", MsgFlagReference)
	rootCmd.PersistentFlags().StringVar(&opts.configFile, "config", "", MsgFlagConfig)

	rootCmd.AddCommand(newInstallCmd(opts))
	rootCmd.AddCommand(newUninstallCmd(opts))
	rootCmd.AddCommand(newListCmd(opts))
	rootCmd.AddCommand(newShowCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func (o *globalOptions) loadConfig() (*config.Config, error) {
	overrides := map[string]interface{}{}
	if o.game != "" {
		overrides["game.dir"] = o.game
	}
	if o.reference != "" {
		overrides["game.reference"] = o.reference
	}
	return config.Load(config.LoadOptions{File: o.configFile, Overrides: overrides})
}

func (o *globalOptions) openSession(cmd *cobra.Command, title string) (*session.Session, progress.Observer, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	observer := newObserver(cmd.ErrOrStderr(), title)
	s, err := session.Open(session.Options{Config: cfg, Observer: observer})
	if err != nil {
		observer.Done(err)
		return nil, nil, err
	}
	return s, observer, nil
}

// newObserver shows a spinner only when stderr is a terminal.
var newObserver = func(w io.Writer, title string) progress.Observer {
	f, ok := w.(*os.File)
	if !ok || (!isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())) {
		return progress.Noop{}
	}
	return progress.NewSpinner(w, title)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: MsgVersionShort,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), MsgVersionTemplate, version.Version, version.Commit, version.Date)
		},
	}
}
