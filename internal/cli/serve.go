package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abapdoc/abapdoc/pkg/server"
)

// shutdownTimeout bounds how long in-flight requests may run after
// Ctrl+C before the listener is torn down.
const shutdownTimeout = 5 * time.Second

// serveCommand serves a documentation directory over HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve [dir]",
		Short: "Serve generated documentation over HTTP",
		Long: `Serve a documentation directory over HTTP.

Every run found beneath the directory is listed at /api/runs, its graph
document is available at /api/graph/{run}, and the rendered pages are
served as static files. The directory defaults to the configured output
base (./docs).

Examples:
  abapdoc serve
  abapdoc serve docs --addr 127.0.0.1:9090`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var dir string
			if len(args) > 0 {
				dir = args[0]
			}
			return c.runServe(cmd.Context(), dir, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", server.DefaultAddr, "listen address")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, dir, addr string) error {
	cfg, err := loadConfig(c.ConfigPath)
	if err != nil {
		return err
	}
	if dir == "" {
		dir = outputBase("", cfg)
	}

	srv, err := server.NewServer(server.Config{
		Addr:   addr,
		Root:   dir,
		Logger: c.Logger,
	})
	if err != nil {
		return err
	}

	printInfo("Serving documentation")
	fmt.Println("  " + styleDim.Render("Address:") + " " + StyleLink.Render("http://"+addr))
	printKeyValue("Docs", dir)
	printDetail("Press Ctrl+C to stop")
	printNewline()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Stop(stopCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		<-errCh
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}
