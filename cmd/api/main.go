package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"taskhive.org/internal/directory"
	"taskhive.org/internal/events"
	"taskhive.org/internal/httpapi"
	"taskhive.org/internal/identity"
	"taskhive.org/internal/notify"
	"taskhive.org/internal/obs"
	"taskhive.org/internal/store/pg"
	"taskhive.org/internal/task"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	secret := os.Getenv("TASKHIVE_TOKEN_SECRET")
	if secret == "" {
		log.Fatal("TASKHIVE_TOKEN_SECRET is required")
	}
	issuer := envOr("TASKHIVE_TOKEN_ISSUER", "taskhive")
	addr := envOr("TASKHIVE_ADDR", ":8080")

	var (
		identityStore  identity.Store
		directoryStore directory.Store
		taskStore      task.Store
		probe          httpapi.ReadyProbe
		pgStore        *pg.Store
	)
	if dsn := os.Getenv("TASKHIVE_PG_DSN"); dsn != "" {
		var err error
		pgStore, err = pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		identityStore = pgStore.Identity()
		directoryStore = pgStore.Directory()
		taskStore = pgStore.Tasks()
		probe = httpapi.ReadyProbe{DB: pgStore.DB()}
	} else {
		log.Println("TASKHIVE_PG_DSN not set; using in-memory stores")
		identityStore = identity.NewInMemory()
		directoryStore = directory.NewInMemory()
		taskStore = task.NewInMemory()
	}

	bus := events.NewBus()

	idOpts := []identity.Option{identity.WithEvents(bus)}
	if host := os.Getenv("TASKHIVE_SMTP_HOST"); host != "" {
		port := 587
		if raw := os.Getenv("TASKHIVE_SMTP_PORT"); raw != "" {
			v, err := strconv.Atoi(raw)
			if err != nil {
				log.Fatalf("TASKHIVE_SMTP_PORT: %v", err)
			}
			port = v
		}
		mailer, err := notify.NewSMTP(
			host,
			port,
			os.Getenv("TASKHIVE_SMTP_USER"),
			os.Getenv("TASKHIVE_SMTP_PASSWORD"),
			envOr("TASKHIVE_SMTP_FROM", "no-reply@taskhive.org"),
		)
		if err != nil {
			log.Fatalf("smtp: %v", err)
		}
		verifyURL := envOr("TASKHIVE_VERIFY_URL", "http://localhost:8080/v1/auth/verify")
		idOpts = append(idOpts, identity.WithNotifier(mailer, verifyURL))
	}

	idSvc, err := identity.NewService(identityStore, secret, issuer, idOpts...)
	if err != nil {
		log.Fatalf("identity service: %v", err)
	}
	dirSvc, err := directory.NewService(directoryStore, idSvc, directory.WithEvents(bus))
	if err != nil {
		log.Fatalf("directory service: %v", err)
	}
	taskSvc, err := task.NewService(taskStore, dirSvc)
	if err != nil {
		log.Fatalf("task service: %v", err)
	}

	api := httpapi.New(idSvc, dirSvc, taskSvc, bus, probe, version)

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting taskhive-api %s on %s", version, srv.Addr)

	// graceful shutdown
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	if pgStore != nil {
		_ = pgStore.Close()
	}
	log.Println("Stopped")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
