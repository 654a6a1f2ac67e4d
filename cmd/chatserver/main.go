package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
)

var rootCmd = &cobra.Command{
	Use:          "chatserver",
	Short:        "Development chat backend speaking the chat client's wire protocol",
	RunE:         run,
	SilenceUsage: true,
}

var (
	flagAddr    string
	flagHistory int
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagAddr, "addr", ":8080", "listen address")
	flags.IntVar(&flagHistory, "history", 50, "number of recent messages replayed to a new client")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logs.Errorf("chatserver: %+v", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	hub := newHub(flagHistory)
	go hub.run(ctx)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", hub.serveWS)

	srv := &http.Server{
		Addr:              flagAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logs.Infof("chat server listening on %s", flagAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-sys.Shutdown():
	case err, ok := <-errCh:
		if ok {
			return errors.Wrap(err, fmt.Sprintf("listen on %s", flagAddr))
		}
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown http server")
	}
	logs.Info("chat server stopped")
	return nil
}
