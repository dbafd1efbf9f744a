package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"time"

	"devotional"

	"github.com/gorilla/sessions"
)

func main() {
	var (
		configDir = flag.String("config", "", "Directory holding config.yaml (default ./config)")
		verbose   = flag.Bool("verbose", false, "Enable verbose debugging output")
	)
	flag.Parse()

	devotional.SetVerbose(*verbose)
	defer devotional.Sync()

	cfg, err := devotional.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	provider, err := devotional.NewProvider(cfg.Provider)
	if err != nil {
		log.Fatalf("Failed to create provider: %v", err)
	}

	db, err := devotional.OpenDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	opts := []devotional.GeneratorOption{
		devotional.WithStore(db),
		devotional.WithLogDir(cfg.Log.Dir),
	}
	if cfg.Redis.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		rdb, err := devotional.NewRedisClient(ctx, cfg.Redis.Addr)
		cancel()
		if err != nil {
			log.Printf("Continuing without cache: %v", err)
		} else {
			defer rdb.Close()
			opts = append(opts, devotional.WithCache(devotional.NewDocumentCache(rdb, cfg.Redis.TTL)))
		}
	}

	server := NewServer(
		devotional.NewStudyGenerator(provider, opts...),
		db,
		sessions.NewCookieStore([]byte(cfg.Session.Secret)),
	)

	addr := ":" + cfg.HTTP.Port
	devotional.Logger().Infow("starting server", "addr", addr, "model", cfg.Provider.Model)
	srv := &http.Server{
		Addr:              addr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	log.Fatal(srv.ListenAndServe())
}
