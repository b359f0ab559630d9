package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"proctrace/internal/config"
	"proctrace/internal/database"
	logger "proctrace/internal/logging"
	"proctrace/internal/models"
	"proctrace/internal/repository"
	"proctrace/internal/router"
	"proctrace/internal/services"
	"proctrace/internal/telemetry"
	"proctrace/internal/utils"
	"proctrace/internal/ws"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	log, err := logger.Init(".", cfg.Current().Logging)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()

	db, err := database.Connect(cfg.Current().Database, log)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Bootstrap subcommands run against the migrated database and exit.
	if len(os.Args) > 1 {
		runCommand(os.Args[1], os.Args[2:], db, log)
		return
	}

	cfg.Watch(log)
	serve(cfg, db, log)
}

func serve(cfg *config.Manager, db *gorm.DB, log *zap.Logger) {
	catalog, err := models.LoadCatalog("config/tests.yaml")
	if err != nil {
		// A missing catalog only disables titles and passing overrides.
		log.Warn("Test catalog unavailable, continuing without it", zap.Error(err))
		catalog = &models.TestCatalog{}
	} else {
		log.Info("Test catalog loaded", zap.Int("tests", len(catalog.Tests)))
	}

	results := repository.NewResults(db)
	events := repository.NewEvents(db)
	certs := repository.NewCertificates(db)
	stats := repository.NewStats(db)
	admins := repository.NewAdmins(db)
	apiKeys := repository.NewAPIKeys(db)

	tel := telemetry.New()
	hub := ws.NewHub(ws.DefaultConfig(), log, tel)
	analyzer := services.NewAnalyzer(log, cfg, results, events, tel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	retention := services.NewRetention(log, cfg, results, events)
	retention.Start(ctx)

	r := router.Setup(router.Deps{
		Log:      log,
		Cfg:      cfg,
		DB:       db,
		Results:  results,
		Events:   events,
		Certs:    certs,
		Stats:    stats,
		Admins:   admins,
		APIKeys:  apiKeys,
		Catalog:  catalog,
		Analyzer: analyzer,
		Hub:      hub,
		Tel:      tel,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Current().Server.Port,
		Handler: r,
	}

	go func() {
		log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to run server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	hub.Close()
}

func runCommand(name string, args []string, db *gorm.DB, log *zap.Logger) {
	switch name {
	case "create-admin":
		createAdmin(args, db, log)
	case "create-key":
		createKey(args, db, log)
	case "revoke-key":
		revokeKey(args, db, log)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q (expected create-admin, create-key or revoke-key)\n", name)
		os.Exit(2)
	}
}

func createAdmin(args []string, db *gorm.DB, log *zap.Logger) {
	fs := flag.NewFlagSet("create-admin", flag.ExitOnError)
	email := fs.String("email", "", "admin email (required)")
	password := fs.String("password", "", "admin password (required)")
	firstName := fs.String("first-name", "", "first name")
	lastName := fs.String("last-name", "", "last name")
	fs.Parse(args)

	if !utils.IsValidEmail(*email) {
		fmt.Fprintln(os.Stderr, "a valid -email is required")
		os.Exit(2)
	}
	if !utils.IsComplexPassword(*password) {
		fmt.Fprintln(os.Stderr, "-password must be 8+ characters with upper, lower, digit and symbol")
		os.Exit(2)
	}

	admin := &models.AdminUser{
		Email:     *email,
		FirstName: *firstName,
		LastName:  *lastName,
		IsActive:  true,
	}
	if err := admin.SetPassword(*password); err != nil {
		log.Fatal("Failed to hash password", zap.Error(err))
	}
	if err := repository.NewAdmins(db).Create(context.Background(), admin); err != nil {
		log.Fatal("Failed to create admin", zap.String("email", *email), zap.Error(err))
	}
	fmt.Printf("admin %s created\n", *email)
}

func createKey(args []string, db *gorm.DB, log *zap.Logger) {
	fs := flag.NewFlagSet("create-key", flag.ExitOnError)
	name := fs.String("name", "", "key name (required)")
	description := fs.String("description", "", "what the key is for")
	paths := fs.String("paths", "", "comma-separated allowed path prefixes, empty for all")
	isAdmin := fs.Bool("admin", false, "allow every endpoint regardless of paths")
	fs.Parse(args)

	if *name == "" {
		fmt.Fprintln(os.Stderr, "-name is required")
		os.Exit(2)
	}

	key, err := utils.GenerateAPIKey()
	if err != nil {
		log.Fatal("Failed to generate key", zap.Error(err))
	}

	row := &models.APIKey{
		Key:          key,
		Name:         *name,
		Description:  *description,
		AllowedPaths: *paths,
		IsAdmin:      *isAdmin,
		IsActive:     true,
	}
	if err := repository.NewAPIKeys(db).Create(context.Background(), row); err != nil {
		log.Fatal("Failed to store key", zap.String("name", *name), zap.Error(err))
	}

	// Printed once; only metadata is stored readably.
	fmt.Printf("key %s created: %s\n", *name, key)
}

func revokeKey(args []string, db *gorm.DB, log *zap.Logger) {
	fs := flag.NewFlagSet("revoke-key", flag.ExitOnError)
	name := fs.String("name", "", "key name (required)")
	fs.Parse(args)

	if *name == "" {
		fmt.Fprintln(os.Stderr, "-name is required")
		os.Exit(2)
	}

	revoked, err := repository.NewAPIKeys(db).RevokeByName(context.Background(), *name)
	if err != nil {
		log.Fatal("Failed to revoke key", zap.String("name", *name), zap.Error(err))
	}
	if revoked == 0 {
		fmt.Fprintf(os.Stderr, "no active key named %q\n", *name)
		os.Exit(1)
	}
	fmt.Printf("revoked %d key(s) named %s\n", revoked, *name)
}
