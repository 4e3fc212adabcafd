// Package cli wires the strategist commands.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/joelkehle/strategy-workbench/internal/config"
	"github.com/joelkehle/strategy-workbench/internal/store"
	"github.com/joelkehle/strategy-workbench/internal/strategy"
)

// Linker flags.
var (
	version = "dev"
	commit  = "none"
)

type app struct {
	v          *viper.Viper
	configFile string
	cfg        config.Config
}

// NewRootCommand builds a fresh command tree with its own viper instance.
func NewRootCommand() *cobra.Command {
	a := &app{v: viper.New()}
	root := &cobra.Command{
		Use:           "strategist",
		Short:         "Score SWOT, IFE and EFE analyses and place them on the IE matrix.",
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			config.Setup(a.v, a.configFile)
			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			a.cfg = cfg
			return nil
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default .strategist.yaml in . or $HOME)")
	flags.String("db-backend", config.DefaultBackend, "database backend: sqlite, postgres or mysql")
	flags.String("db-dsn", config.DefaultDSN, "database file (sqlite) or connection string")
	_ = a.v.BindPFlag("db.backend", flags.Lookup("db-backend"))
	_ = a.v.BindPFlag("db.dsn", flags.Lookup("db-dsn"))

	root.AddCommand(
		a.serveCommand(),
		a.migrateCommand(),
		a.scoreCommand(),
		a.deriveCommand(),
		a.exportCommand(),
		a.reportCommand(),
		a.mcpCommand(),
	)
	return root
}

func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}

func (a *app) backend() (store.Backend, error) {
	return store.ParseBackend(a.cfg.DB.Backend)
}

func (a *app) openStore() (*store.Store, error) {
	backend, err := a.backend()
	if err != nil {
		return nil, err
	}
	return store.Open(backend, a.cfg.DB.DSN)
}

func postureColor(p strategy.Posture) *color.Color {
	switch p {
	case strategy.PostureGrowAndBuild:
		return color.New(color.FgGreen, color.Bold)
	case strategy.PostureHoldAndMaintain:
		return color.New(color.FgYellow, color.Bold)
	case strategy.PostureHarvestOrExit:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.Faint)
	}
}

func writePosition(w io.Writer, pos strategy.Position) error {
	if !pos.Determined() {
		_, err := fmt.Fprintln(w, postureColor("").Sprint("IE position: not yet available"))
		return err
	}
	_, err := fmt.Fprintf(w, "IE position: cell %s (IFE %s, EFE %s) %s\n",
		pos.Cell, pos.InternalBand, pos.ExternalBand, postureColor(pos.Posture).Sprint(pos.Posture))
	return err
}
