// Command taskd runs the task-scheduling daemon: it loads the save file,
// restores the World, seeds default services/admin on first boot, and
// serves sessions over TCP while exposing a thin HTTP surface for health
// and metrics.
package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/darxtarr/txxt/internal/authn"
	"github.com/darxtarr/txxt/internal/config"
	"github.com/darxtarr/txxt/internal/eventbus"
	"github.com/darxtarr/txxt/internal/metrics"
	"github.com/darxtarr/txxt/internal/session"
	"github.com/darxtarr/txxt/internal/store"
)

// version is overwritten at build time via -ldflags.
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "taskd",
		Short: "Task-scheduling daemon: authoritative World, binary wire protocol, durable save file",
	}

	var configPath string
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the save file and serve sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	serveCmd.Flags().StringVar(&configPath, "config", "config.json", "path to the JSON config file")
	root.AddCommand(serveCmd)

	var migrateCheckConfigPath string
	migrateCheckCmd := &cobra.Command{
		Use:   "migrate-check",
		Short: "Verify the save file opens and decodes cleanly, without serving",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrateCheck(migrateCheckConfigPath)
		},
	}
	migrateCheckCmd.Flags().StringVar(&migrateCheckConfigPath, "config", "config.json", "path to the JSON config file")
	root.AddCommand(migrateCheckCmd)

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the taskd version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println(version)
			return nil
		},
	})

	return root
}

// runMigrateCheck opens the save file, loads the World from it, and reports
// whether every record decoded cleanly — a pre-flight compatibility check
// an operator runs before pointing a new build at an existing save file.
// It never rewrites anything: §1's non-goals exclude save-file schema
// migration, so there is nothing here to apply, only to report on.
func runMigrateCheck(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("taskd: load config: %w", err)
	}

	sf, err := store.Open(cfg.RedbFilePath)
	if err != nil {
		return fmt.Errorf("taskd: open save file: %w", err)
	}
	defer sf.Close()

	w, err := store.LoadWorld(sf)
	if err != nil {
		return fmt.Errorf("taskd: save file %s is not loadable by this build: %w", cfg.RedbFilePath, err)
	}

	fmt.Printf("taskd: %s is compatible with this build\n", cfg.RedbFilePath)
	fmt.Printf("taskd: revision=%d services=%d users=%d\n", w.Revision(), w.ServiceCount(), w.UserCount())
	return nil
}

func runServe(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("taskd: load config: %w", err)
	}

	sf, err := store.Open(cfg.RedbFilePath)
	if err != nil {
		return fmt.Errorf("taskd: open save file: %w", err)
	}
	defer sf.Close()

	w, err := store.LoadWorld(sf)
	if err != nil {
		return fmt.Errorf("taskd: load world: %w", err)
	}
	if cfg.Debug {
		fmt.Printf("taskd: loaded world at revision=%d services=%d users=%d\n", w.Revision(), w.ServiceCount(), w.UserCount())
	}

	seededServices, err := store.EnsureDefaultServices(sf, w)
	if err != nil {
		return fmt.Errorf("taskd: seed default services: %w", err)
	}
	if seededServices > 0 {
		fmt.Printf("taskd: seeded %d default services\n", seededServices)
	}

	seededUser, err := store.EnsureDefaultUser(sf, w, store.DefaultAdminConfig{
		Username: cfg.DefaultAdminUsername,
		Password: cfg.DefaultAdminPassword,
	})
	if err != nil {
		return fmt.Errorf("taskd: seed default user: %w", err)
	}
	if seededUser {
		fmt.Printf("taskd: seeded default admin user %q\n", cfg.DefaultAdminUsername)
	}

	bridge, err := eventbus.Connect(cfg.NATSURL, cfg.EventBusPublishTimeout)
	if err != nil {
		return fmt.Errorf("taskd: connect event bus: %w", err)
	}
	if bridge != nil {
		defer bridge.Close(context.Background())
	}

	authenticator := authn.NewTokenAuthenticator(w, []byte(cfg.JWTSecret), cfg.JWTExpiration())

	server := &session.Server{
		World:    w,
		SaveFile: sf,
		Hub:      session.NewHub(),
		Bridge:   bridge,
		Metrics:  metrics.New(),
		Auth:     authenticator,
	}
	governor := session.NewGovernor(cfg.MaxConnections)

	addr := fmt.Sprintf("%s:%d", cfg.TCPSocketBinding, cfg.TCPSocketPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("taskd: listen on %s: %w", addr, err)
	}
	defer listener.Close()
	fmt.Printf("taskd: listening on %s\n", addr)
	server.Metrics.SetReady(true)

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, server.Metrics)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		listener.Close()
	}()

	return acceptLoop(ctx, listener, server, governor)
}

func acceptLoop(ctx context.Context, listener net.Listener, server *session.Server, governor *session.Governor) error {
	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("taskd: accept: %w", err)
		}

		if !governor.TryAcquire() {
			server.Metrics.ConnectionRejected()
			conn.Close()
			continue
		}

		go serveConn(conn, server, governor)
	}
}

func serveConn(conn net.Conn, server *session.Server, governor *session.Governor) {
	defer governor.Release()
	defer conn.Close()

	server.Metrics.ConnectionAccepted()
	defer server.Metrics.ConnectionClosed()

	transport := session.NewFramedTransport(conn)

	credentialFrame, err := transport.ReadFrame()
	if err != nil {
		return
	}

	sess, err := session.New(server, transport, string(credentialFrame))
	if err != nil {
		fmt.Fprintf(os.Stderr, "taskd: authentication failed for %s: %v\n", conn.RemoteAddr(), err)
		return
	}

	if err := sess.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "taskd: session for %s ended: %v\n", conn.RemoteAddr(), err)
	}
}
