// Command unitdeck serves the systemd control panel.
//
// Usage:
//
//	unitdeck [-config config.yaml]
//	unitdeck hash        # read a password on stdin, print its bcrypt hash
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"unitdeck/internal/audit"
	"unitdeck/internal/auth"
	"unitdeck/internal/config"
	"unitdeck/internal/execgate"
	"unitdeck/internal/ipallow"
	"unitdeck/internal/rate"
	"unitdeck/internal/server"
	"unitdeck/internal/session"
	"unitdeck/internal/signer"
	"unitdeck/internal/sysinfo"
	"unitdeck/internal/systemd"
)

const bcryptCost = 12

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash" {
		if err := printHash(); err != nil {
			log.Fatalf("hash: %v", err)
		}
		return
	}

	configPath := flag.String("config", "", "path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := run(cfg); err != nil {
		log.Fatalf("unitdeck: %v", err)
	}
}

func run(cfg *config.Config) error {
	if cfg.Server.Mode != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	allowlist, err := ipallow.Parse(cfg.Auth.Allowlist)
	if err != nil {
		return err
	}

	var sink audit.Sink = audit.NewWriterSink(os.Stderr)
	var trail server.AuditReader
	if cfg.Audit.Path != "" {
		store, err := audit.OpenStore(cfg.Audit.Path)
		if err != nil {
			return fmt.Errorf("open audit store: %w", err)
		}
		sink = store
		trail = store
	}
	dispatcher := audit.NewDispatcher(audit.Config{
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: true,
	}, sink)
	defer dispatcher.Close()

	limiter := rate.New(rate.Config{
		MaxAttempts:      cfg.RateLimit.MaxAttempts,
		Window:           time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute,
		LockoutThreshold: cfg.RateLimit.LockoutThreshold,
		LockoutDuration:  time.Duration(cfg.RateLimit.LockoutMinutes) * time.Minute,
		SweepInterval:    time.Duration(cfg.RateLimit.SweepMinutes) * time.Minute,
	})
	defer limiter.Close()

	lifetime := time.Duration(cfg.Auth.SessionLifetimeHours) * time.Hour
	mgr := auth.NewManager(
		auth.Config{
			PasswordHash: cfg.Auth.PasswordHash,
			Allowlist:    allowlist,
		},
		session.NewStore(lifetime),
		limiter,
		signer.New(cfg.Auth.SigningSecret),
		dispatcher,
	)

	gate := execgate.New(execgate.Config{
		Allow:   []string{"systemctl", "journalctl"},
		Timeout: time.Duration(cfg.Systemd.CommandTimeoutSeconds) * time.Second,
	})
	inventory := systemd.NewInventory(gate, cfg.Systemd.UnitDirs)
	defer inventory.Close()

	srv := server.New(server.Config{
		SecureCookies:   cfg.Server.Mode != "debug",
		SessionLifetime: lifetime,
	}, mgr, inventory, sysinfo.New(""), dispatcher, trail)

	httpSrv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("unitdeck listening on %s", cfg.Server.Address)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Print("unitdeck stopped")
	return nil
}

func printHash() error {
	fmt.Fprint(os.Stderr, "password: ")
	reader := bufio.NewReader(os.Stdin)
	password, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	password = strings.TrimRight(password, "\r\n")
	if password == "" {
		return errors.New("empty password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return err
	}
	fmt.Println(string(hash))
	return nil
}
