package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kuitang/notes-e2e/internal/fakeapp"
	"github.com/kuitang/notes-e2e/internal/obs"
)

// ServeFakeOptions holds flags for the serve-fake command.
type ServeFakeOptions struct {
	*RootOptions
	Addr string
}

// NewServeFakeCommand creates the serve-fake command.
func NewServeFakeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeFakeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve-fake",
		Short: "Serve the in-process fake Notes API",
		Long: `Serve an in-memory double of the Notes REST API under /notes/api.

Point the API scenarios at it to try the suite offline:
  notes-e2e serve-fake --addr :8080 &
  notes-e2e run --base-url http://localhost:8080/notes/ --channel API`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.loadConfig(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serveFake(ctx, opts.Addr)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", "127.0.0.1:8080", "listen address")
	return cmd
}

func serveFake(ctx context.Context, addr string) error {
	log := obs.Pkg("cli")

	app, err := fakeapp.New(fakeapp.Options{})
	if err != nil {
		return commandError("start fake API", err)
	}
	defer func() { _ = app.Close() }()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return commandError("listen on "+addr, err)
	}
	srv := &http.Server{
		Handler:           app,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()
	log.Info("fake_api_listening", "addr", ln.Addr().String(),
		"base_url", fmt.Sprintf("http://%s/notes/", ln.Addr()))

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return commandError("serve fake API", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	log.Info("fake_api_shutting_down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return commandError("shut down fake API", err)
	}
	return nil
}
