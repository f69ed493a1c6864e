package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/planora/planora/pkg/audit"
	"github.com/planora/planora/pkg/auth"
	"github.com/planora/planora/pkg/observability"
	"github.com/planora/planora/pkg/storage/postgres"
)

var log = logrus.New()

func main() {
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "migrate":
		err = runMigrate(os.Args[2:])
	case "create-user":
		err = runCreateUser(os.Args[2:])
	case "mint-token":
		err = runMintToken(os.Args[2:])
	case "cleanup":
		err = runCleanup(os.Args[2:])
	case "-h", "--help", "help":
		usage()
	default:
		usage()
		err = fmt.Errorf("unknown command: %s", os.Args[1])
	}
	if err != nil {
		log.WithError(err).Fatal("command failed")
	}
}

func usage() {
	fmt.Println("Usage: planora-admin <command> [flags]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  migrate       Apply database migrations")
	fmt.Println("  create-user   Create a user account")
	fmt.Println("  mint-token    Mint an API token for a user")
	fmt.Println("  cleanup       Purge expired tokens and aged audit records")
}

func openDB(fs *flag.FlagSet) (*sql.DB, error) {
	url := fs.Lookup("db-url").Value.String()
	if url == "" {
		url = os.Getenv("PLANORA_POSTGRES_URL")
	}
	if url == "" {
		return nil, fmt.Errorf("database URL required (-db-url or PLANORA_POSTGRES_URL)")
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return db, nil
}

func dbFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.String("db-url", "", "Postgres connection URL (defaults to PLANORA_POSTGRES_URL)")
	return fs
}

func runMigrate(args []string) error {
	fs := dbFlagSet("migrate")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := openDB(fs)
	if err != nil {
		return err
	}
	defer db.Close()

	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
	if err := postgres.RunMigrations(context.Background(), db, logger); err != nil {
		return err
	}
	log.Info("migrations applied")
	return nil
}

func runCreateUser(args []string) error {
	fs := dbFlagSet("create-user")
	email := fs.String("email", "", "User email (required)")
	name := fs.String("name", "", "Display name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("-email is required")
	}
	if *name == "" {
		*name = *email
	}

	db, err := openDB(fs)
	if err != nil {
		return err
	}
	defer db.Close()

	store := auth.NewStore(db)
	user := &auth.User{Email: *email, DisplayName: *name}
	if err := store.CreateUser(context.Background(), user); err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"id":    user.ID,
		"email": user.Email,
	}).Info("user created")
	return nil
}

func runMintToken(args []string) error {
	fs := dbFlagSet("mint-token")
	email := fs.String("email", "", "User email (required)")
	name := fs.String("name", "admin-minted", "Token name")
	ttl := fs.Duration("ttl", 90*24*time.Hour, "Token lifetime; 0 means no expiry")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		return fmt.Errorf("-email is required")
	}

	db, err := openDB(fs)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	store := auth.NewStore(db)

	user, err := store.GetUserByEmail(ctx, *email)
	if err != nil {
		return err
	}

	token, plaintext, err := store.CreateToken(ctx, user.ID, *name, *ttl)
	if err != nil {
		return err
	}

	log.WithFields(logrus.Fields{
		"user":   user.Email,
		"token":  token.ID,
		"prefix": token.TokenPrefix,
	}).Info("token minted")

	// The plaintext is shown once and never stored.
	fmt.Println(plaintext)
	return nil
}

func runCleanup(args []string) error {
	fs := dbFlagSet("cleanup")
	retentionDays := fs.Int("audit-retention-days", audit.DefaultRetentionPolicy().RetentionDays, "Audit retention in days")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := openDB(fs)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()

	purged, err := auth.NewStore(db).CleanupExpiredTokens(ctx)
	if err != nil {
		return err
	}
	log.WithField("purged", purged).Info("expired tokens purged")

	removed, err := audit.NewStore(db).Cleanup(ctx, audit.RetentionPolicy{RetentionDays: *retentionDays})
	if err != nil {
		return err
	}
	log.WithField("removed", removed).Info("audit records removed")
	return nil
}
