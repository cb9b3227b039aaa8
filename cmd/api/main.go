package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Wikid82/geogate/internal/app"
	"github.com/Wikid82/geogate/internal/config"
	"github.com/Wikid82/geogate/internal/database"
	"github.com/Wikid82/geogate/internal/gate"
	"github.com/Wikid82/geogate/internal/logger"
	"github.com/Wikid82/geogate/internal/server"
	"github.com/Wikid82/geogate/internal/services"
	"github.com/Wikid82/geogate/internal/version"
)

const usage = `usage: geogate [command]

commands:
  serve                      run the HTTP server (default)
  generate-bypass            create a new emergency bypass token and print the link
  revoke-bypass              delete the emergency bypass token
  prune                      remove blocked attempts past the retention window
  check <ip> [path]          explain how a request from ip would be decided
  issue-admin-token [user]   print an admin bearer token
  hash-password <password>   print a bcrypt hash for GEOGATE_ADMIN_PASSWORD_HASH
  version                    print the version
`

func main() {
	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	switch cmd {
	case "version":
		fmt.Println(version.Full())
		return
	case "hash-password":
		if len(args) != 1 {
			fatalf("usage: geogate hash-password <password>")
		}
		hash, err := services.HashPassword(args[0])
		if err != nil {
			fatalf("hash password: %v", err)
		}
		fmt.Println(hash)
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fatalf("load config: %v", err)
	}
	logger.Init(cfg.Debug, logger.RotatingWriter(cfg.LogDir, "geogate.log"))

	db, err := database.Open(cfg.DatabasePath)
	if err != nil {
		fatalf("open database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		fatalf("migrate database: %v", err)
	}

	a, err := app.New(db, cfg)
	if err != nil {
		fatalf("wire services: %v", err)
	}
	defer a.Close()

	if err := run(cmd, args, a); err != nil {
		a.Close()
		fatalf("%s: %v", cmd, err)
	}
}

func run(cmd string, args []string, a *app.App) error {
	switch cmd {
	case "serve":
		return serve(a)
	case "generate-bypass":
		token, err := a.Bypass.Generate(services.CLIActor)
		if err != nil {
			return err
		}
		fmt.Printf("token: %s\nlink:  %s?%s=%s\n", token, a.Config.Gate.LoginPath, a.Config.Gate.BypassParam, token)
		fmt.Printf("grants last %s; the token is shown only once\n", a.Config.Gate.GrantTTL)
		return nil
	case "revoke-bypass":
		if err := a.Bypass.Revoke(services.CLIActor); err != nil {
			return err
		}
		fmt.Println("bypass token revoked; active grants expire on their own")
		return nil
	case "prune":
		removed, err := a.Maintenance.RunCleanup()
		if err != nil {
			return err
		}
		fmt.Printf("removed %d blocked attempts\n", removed)
		return nil
	case "check":
		if len(args) < 1 {
			return fmt.Errorf("usage: geogate check <ip> [path]")
		}
		path := a.Config.Gate.LoginPath
		if len(args) > 1 {
			path = args[1]
		}
		d := a.Evaluator.Explain(context.Background(), gate.RequestContext{
			Headers:    http.Header{},
			RemoteAddr: args[0],
			Path:       path,
		})
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	case "issue-admin-token":
		user := a.Config.Admin.Username
		if len(args) > 0 {
			user = args[0]
		}
		token, err := a.Auth.IssueToken(user)
		if err != nil {
			return err
		}
		a.Audit.Record(services.CLIActor, "admin_token_issued", user)
		fmt.Println(token)
		return nil
	default:
		fmt.Fprint(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func serve(a *app.App) error {
	logger.Log().WithField("version", version.Full()).Infof("starting %s", version.Name)
	if a.Config.Admin.PasswordHash == "" {
		logger.Log().Warn("no admin password hash configured; use issue-admin-token for API access")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(a)
	start := time.Now()
	err := srv.Run(ctx)
	logger.Log().WithField("uptime", time.Since(start).Round(time.Second).String()).Info("server stopped")
	return err
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
