package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pugsite/pugsite/internal/errors"
	"github.com/pugsite/pugsite/internal/logging"
	"github.com/pugsite/pugsite/internal/notify"
	"github.com/pugsite/pugsite/internal/report"
	"github.com/pugsite/pugsite/internal/services"
	"github.com/pugsite/pugsite/internal/watcher"
)

type watchFlags struct {
	*StandardFlags
	listen   string
	debounce time.Duration
}

func newWatchCmd() *cobra.Command {
	flags := &watchFlags{}

	cmd := &cobra.Command{
		Use:     "watch",
		Aliases: []string{"w"},
		Short:   "Re-run the update whenever the template changes",
		Long: `Watch runs an update, then repeats it every time the template's config,
manifest or copied files change. With --listen, every report is also pushed
as JSON to websocket subscribers on /ws.

Examples:
  pugsite watch --template ../pug-site
  pugsite watch --template ../pug-site --listen 127.0.0.1:7331`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("listen") {
				flags.listen = current.config.Watch.Listen
			}
			if !cmd.Flags().Changed("debounce") {
				flags.debounce = current.config.Watch.Debounce
			}
			return runWatch(cmd, flags)
		},
	}

	flags.StandardFlags = AddStandardFlags(cmd, "dirs", "format")
	cmd.Flags().StringVar(&flags.listen, "listen", "", "Address for the websocket notification endpoint")
	cmd.Flags().DurationVar(&flags.debounce, "debounce", 300*time.Millisecond, "Quiet period before re-running the update")
	return cmd
}

func runWatch(cmd *cobra.Command, flags *watchFlags) error {
	if err := flags.ValidateDirs(appFs); err != nil {
		return errors.CLIError("watch", err.Error(), err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := current.logger
	svc := services.NewUpdateService(current.config, appFs, logger)

	var hub *notify.Hub
	if flags.listen != "" {
		hub = notify.NewHub(nil, logger)
		srv, err := serveHub(ctx, flags.listen, hub)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			hubErr := hub.Shutdown(shutdownCtx)

			// Unresponsive subscribers must not eat the server's budget.
			closeCtx, cancelClose := context.WithTimeout(shutdownCtx, 2*time.Second)
			defer cancelClose()
			err := errors.CombineErrors(hubErr, hub.Wait(closeCtx), srv.Shutdown(shutdownCtx))
			if err != nil {
				logger.Warn(context.Background(), err, "Notification shutdown incomplete")
			}
		}()
	}

	run := func(ctx context.Context) error {
		rep, err := svc.Update(ctx, services.UpdateOptions{
			TemplateDir: flags.TemplateDir,
			ProjectDir:  flags.ProjectDir,
		})
		if err != nil {
			return err
		}
		if err := report.Render(cmd.OutOrStdout(), rep, flags.ReportFormat(), report.Options{}); err != nil {
			return err
		}
		if hub != nil {
			return hub.Publish(ctx, "update", rep)
		}
		return nil
	}

	if err := run(ctx); err != nil {
		return err
	}

	fw, err := watcher.NewFileWatcher(flags.debounce, logger)
	if err != nil {
		return errors.WrapInternal(err, "ERR_WATCH_INIT", "cannot start file watcher")
	}
	defer fw.Stop()

	cfg := current.config.Update
	names := append([]string{cfg.ConfigFile, cfg.ManifestFile}, cfg.CopyFiles...)
	fw.AddFilter(watcher.NameFilter(names...))
	fw.AddFilter(watcher.NoEditorTempFilter)
	fw.AddHandler(func(ctx context.Context, events []watcher.ChangeEvent) error {
		for _, event := range events {
			logger.Info(ctx, "Template changed", "file", event.Path, "change", event.Type.String())
		}
		return keepWatching(ctx, logger, run(ctx))
	})

	if err := fw.AddPath(flags.TemplateDir); err != nil {
		return errors.FileOperationError("watch", flags.TemplateDir, "cannot watch template directory", err)
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	logger.Info(ctx, "Watching template", "dir", flags.TemplateDir, "debounce", flags.debounce.String())
	<-ctx.Done()
	logger.Info(context.Background(), "Stopping watch")
	return nil
}

// keepWatching drops recoverable update failures after logging them, so a
// half-edited template does not count as a watcher failure.
func keepWatching(ctx context.Context, logger logging.Logger, err error) error {
	if err != nil && errors.IsRecoverable(err) {
		logger.Warn(ctx, err, "Update skipped, waiting for the next change")
		return nil
	}
	return err
}

// serveHub starts an HTTP server exposing hub at notify.Path.
func serveHub(ctx context.Context, addr string, hub *notify.Hub) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.WrapIO(err, "ERR_WATCH_LISTEN", fmt.Sprintf("cannot listen on %s", addr))
	}

	mux := http.NewServeMux()
	mux.Handle(notify.Path, hub)
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			current.logger.Error(ctx, err, "Notification server stopped")
		}
	}()
	current.logger.Info(ctx, "Websocket notifications enabled", "url", "ws://"+ln.Addr().String()+notify.Path)
	return srv, nil
}
