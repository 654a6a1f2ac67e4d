package main

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"os"
	"strings"

	"chatclient/internal/chat"
	"chatclient/internal/obs"
	"chatclient/internal/ops"
	"chatclient/internal/render"
	"chatclient/pkg/websocket"

	"github.com/grafana/pyroscope-go"
	"github.com/spf13/cobra"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"
	"github.com/yanun0323/pkg/sys"
)

// UserHeader carries the current user to the development server.
const UserHeader = "X-Chat-User"

var rootCmd = &cobra.Command{
	Use:          "chatclient",
	Short:        "Terminal chat client with automatic reconnection",
	RunE:         run,
	SilenceUsage: true,
}

var (
	flagConfig string
	flagOrigin string
	flagUser   string
	flagFormat string
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&flagConfig, "config", "", "path to JSON config file")
	flags.StringVar(&flagOrigin, "origin", "", "origin the chat is served from, e.g. https://chat.example.com")
	flags.StringVar(&flagUser, "user", "", "current user name")
	flags.StringVar(&flagFormat, "format", "", "render format: text or html")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		logs.Errorf("chatclient: %+v", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	fileCfg, err := ops.ReadFile(flagConfig)
	if err != nil {
		return err
	}
	if flagOrigin != "" {
		fileCfg.Origin = flagOrigin
	}
	if flagUser != "" {
		fileCfg.User = flagUser
	}
	if flagFormat != "" {
		fileCfg.Render.Format = flagFormat
	}
	cfg, err := ops.Resolve(fileCfg)
	if err != nil {
		return errors.Wrap(err, "resolve config")
	}

	if cfg.Profiler.Enabled {
		profiler, err := pyroscope.Start(pyroscope.Config{
			ApplicationName: cfg.Profiler.ApplicationName,
			ServerAddress:   cfg.Profiler.ServerAddress,
			Tags: map[string]string{
				"user": cfg.User,
			},
			Logger: emptyLogger{},
			ProfileTypes: []pyroscope.ProfileType{
				pyroscope.ProfileCPU,
				pyroscope.ProfileAllocObjects,
				pyroscope.ProfileAllocSpace,
				pyroscope.ProfileInuseObjects,
				pyroscope.ProfileInuseSpace,
			},
		})
		if err != nil {
			return errors.Wrap(err, "start profiler")
		}
		defer func() {
			_ = profiler.Stop()
		}()
	}

	metrics := obs.NewMetrics()
	cfg.Dialer.Header = http.Header{UserHeader: []string{cfg.User}}
	cfg.Manager.Metrics = metrics

	manager, err := websocket.New(cfg.Origin, websocket.NewDialer(cfg.Dialer), cfg.Manager)
	if err != nil {
		return errors.Wrap(err, "new connection manager")
	}

	sink := newSink(cfg.Format, cmd.OutOrStdout())
	session, err := chat.NewSession(cfg.User, manager, sink, chat.Option{Metrics: metrics})
	if err != nil {
		return errors.Wrap(err, "new chat session")
	}
	unsubscribe := manager.Subscribe(session)
	defer unsubscribe()

	runErr := make(chan error, 1)
	go func() {
		runErr <- manager.Run(ctx)
	}()
	defer func() {
		manager.Dispose()
		report(metrics.Snapshot())
	}()

	if err := manager.Connect(); err != nil {
		return errors.Wrap(err, "connect")
	}

	lines := make(chan string)
	go readLines(ctx, cmd.InOrStdin(), lines)

	for {
		select {
		case <-sys.Shutdown():
			logs.Info("shutdown chat client")
			return nil
		case err := <-runErr:
			return err
		case line, ok := <-lines:
			if !ok {
				_ = manager.Close()
				return nil
			}
			if quit := handleLine(session, manager, line); quit {
				_ = manager.Close()
				return nil
			}
		}
	}
}

func newSink(format ops.Format, w io.Writer) chat.RenderSink {
	if format == ops.FormatHTML {
		return render.NewHTML(w)
	}
	return render.NewTerminal(w)
}

// handleLine treats a line from stdin as the input box content followed by
// the send button. A few slash commands drive the connection directly.
func handleLine(session *chat.Session, manager *websocket.Manager, line string) (quit bool) {
	switch strings.TrimSpace(line) {
	case "":
		return false
	case "/quit":
		return true
	case "/reconnect":
		if err := manager.Connect(); err != nil {
			logs.Errorf("reconnect request rejected, err: %+v", err)
		}
		return false
	case "/status":
		logs.Infof("connection %s: %s", manager.ID(), manager.State())
		return false
	}

	if err := session.SubmitText(line); err != nil {
		logs.Errorf("message not sent, err: %+v", err)
	}
	return false
}

func readLines(ctx context.Context, r io.Reader, out chan<- string) {
	defer close(out)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case out <- scanner.Text():
		case <-ctx.Done():
			return
		}
	}
}

func report(s obs.Snapshot) {
	logs.Infof("sent %d, rejected %d, received %d, dropped %d, evicted %d, reconnects %d, transport errors %d, dial avg %s",
		s.MessagesSent, s.SendRejected, s.MessagesReceived, s.MessagesDropped, s.MessagesEvicted,
		s.ReconnectAttempts, s.TransportErrors, s.DialLatency.Avg)
}

type emptyLogger struct{}

func (emptyLogger) Infof(_ string, _ ...interface{})  {}
func (emptyLogger) Debugf(_ string, _ ...interface{}) {}
func (emptyLogger) Errorf(_ string, _ ...interface{}) {}
