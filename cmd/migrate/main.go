package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mksagencies/storefront-backend/pkg/config"
	"github.com/mksagencies/storefront-backend/pkg/db"
	"github.com/mksagencies/storefront-backend/pkg/logger"
	"github.com/mksagencies/storefront-backend/pkg/migrate"
	"github.com/mksagencies/storefront-backend/pkg/security"
)

const usage = "migration command: up|down|status|version|create|validate|hash-passcode"

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", usage)
	dir := flag.String("dir", migrate.DefaultDir, "goose migrations directory")
	name := flag.String("name", "", "migration name (for create)")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// create, validate and hash-passcode need no database.
	switch *cmd {
	case "hash-passcode":
		pwCfg, err := config.LoadPassword()
		if err != nil {
			fail("failed to load password config: %v", err)
		}
		hash, err := hashPasscode(os.Stdin, pwCfg)
		if err != nil {
			fail("failed to hash passcode: %v", err)
		}
		fmt.Println(hash)
		return
	case "create":
		if *name == "" {
			fail("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(*dir, *name)
		if err != nil {
			fail("failed to create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(*dir); err != nil {
			fail("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}
	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": *cmd, "dir": *dir})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "failed to open sql handle", err)
		os.Exit(1)
	}

	switch *cmd {
	case "up", "down", "status":
		err = migrate.Run(ctx, sqlDB, *dir, *cmd)
	case "version":
		if *version == "" {
			fail("missing -version for version command")
		}
		err = migrate.MigrateToVersion(ctx, sqlDB, *dir, *version)
	default:
		fail("unknown -cmd value %q (%s)", *cmd, usage)
	}
	if err != nil {
		logg.Error(ctx, "goose "+*cmd+" failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migrate.done")
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// hashPasscode hashes the first line of r for MKS_ADMIN_PASSCODE_HASH.
func hashPasscode(r io.Reader, cfg config.PasswordConfig) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	passcode := strings.TrimRight(line, "\r\n")
	if passcode == "" {
		return "", errors.New("empty passcode on stdin")
	}
	return security.HashPasscode(passcode, cfg)
}
