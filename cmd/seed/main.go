package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"lifeboard/internal/config"
	"lifeboard/internal/domain/model"
	pg "lifeboard/internal/infra/db/postgres"
	"lifeboard/internal/infra/logging"
	"lifeboard/internal/usecase"
)

// seed sets the license of one email directly, bypassing the webhook. Useful to
// grant access by hand or to prepare a local database.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	email := flag.String("email", "", "license email")
	status := flag.String("status", "active", "active|inactive")
	flag.Parse()

	if *email == "" {
		log.Fatal("-email is required")
	}
	st, err := model.ParseLicenseStatus(*status)
	if err != nil {
		log.Fatalf("status %q: %v", *status, err)
	}

	// ---- Config ----
	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Connect Postgres
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// No identity provisioning here: the app does that on the next activation.
	licenseUC := usecase.NewLicenseUseCase(pg.NewLicenseRepo(pool), pg.NewTxManager(pool), nil, nil, logger, false)

	if prev, err := licenseUC.Get(ctx, *email); err == nil {
		fmt.Printf("current: %s status=%s\n", prev.Email, prev.Status)
	}

	lic, err := licenseUC.SetStatus(ctx, *email, st)
	if err != nil {
		log.Fatalf("set status: %v", err)
	}
	fmt.Printf("seeded: %s status=%s updated_at=%s\n", lic.Email, lic.Status, lic.UpdatedAt.Format(time.RFC3339))
}
