package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/joelkehle/strategy-workbench/internal/advisor"
	"github.com/joelkehle/strategy-workbench/internal/httpapi"
	"github.com/joelkehle/strategy-workbench/internal/mcpserver"
	"github.com/joelkehle/strategy-workbench/internal/report"
	"github.com/joelkehle/strategy-workbench/internal/session"
	"github.com/joelkehle/strategy-workbench/internal/store"
	"github.com/joelkehle/strategy-workbench/internal/telemetry"
)

func (a *app) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			shutdown, err := telemetry.Setup(ctx, a.cfg.Telemetry.OTLPEndpoint, a.cfg.Telemetry.ServiceName)
			if err != nil {
				return err
			}
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(flushCtx); err != nil {
					log.Printf("telemetry shutdown failed err=%v", err)
				}
			}()

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			opts := httpapi.Options{
				Sessions: session.NewManager(st),
				Catalog:  st,
			}
			if gen := a.generator(); gen != nil {
				opts.Generator = gen
			}
			if r, err := a.renderer(); err != nil {
				return err
			} else if r.Available() {
				opts.Renderer = r
			} else {
				log.Printf("pdf export disabled: no chromium found")
			}

			srv := &http.Server{Addr: a.cfg.HTTP.Addr, Handler: httpapi.NewServer(opts)}
			go func() {
				<-ctx.Done()
				closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(closeCtx)
			}()
			log.Printf("strategist listening on %s (backend=%s)", a.cfg.HTTP.Addr, st.Backend())
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().String("addr", "", "listen address (default :8080)")
	_ = a.v.BindPFlag("http.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

// generator is nil when no Anthropic key is configured.
func (a *app) generator() *advisor.Generator {
	caller, err := advisor.NewAnthropicCaller(a.cfg.Anthropic.APIKey, a.cfg.Anthropic.Model)
	if err != nil {
		log.Printf("strategy generation disabled: %v", err)
		return nil
	}
	return advisor.NewGenerator(caller)
}

func (a *app) renderer() (*report.ChromiumRenderer, error) {
	css := ""
	if path := a.cfg.Report.CSSPath; path != "" {
		blob, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		css = string(blob)
	}
	return report.NewChromiumRenderer(a.cfg.Report.ChromePath, css), nil
}

func (a *app) migrateCommand() *cobra.Command {
	var target int
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Long:  "Migrate the schema. A negative target applies every migration, 0 rolls everything back and a positive target moves to that version.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			backend, err := a.backend()
			if err != nil {
				return err
			}
			return store.Migrate(backend, a.cfg.DB.DSN, target)
		},
	}
	cmd.Flags().IntVar(&target, "target", -1, "target schema version")
	return cmd
}

func (a *app) mcpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the scoring tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			return mcpserver.Serve(cmd.Context(), session.NewManager(st))
		},
	}
}
