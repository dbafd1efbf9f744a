package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"devotional"
)

func main() {
	var (
		passage      = flag.String("passage", "", "Bible passage to study, e.g. \"Juan 3:1-21\"")
		numQuestions = flag.Int("questions", 0, "Number of quiz questions (default from config, 1-30)")
		inputFile    = flag.String("input", "", "Sanitize a saved provider response instead of calling the provider")
		outputFile   = flag.String("output", "", "Output file for study JSON (default: stdout)")
		configDir    = flag.String("config", "", "Directory holding config.yaml (default ./config)")
		playMode     = flag.Bool("play", false, "Play the quiz interactively")
		history      = flag.Bool("history", false, "List recent studies and exit")
		stats        = flag.Bool("stats", false, "Show streak and emeralds and exit")
		buyProtector = flag.Bool("buy-protector", false, "Spend emeralds on a streak protector and exit")
		verbose      = flag.Bool("verbose", false, "Enable verbose debugging output")
	)

	flag.Parse()

	devotional.SetVerbose(*verbose)
	defer devotional.Sync()

	cfg, err := devotional.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := devotional.OpenDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	switch {
	case *history:
		printHistory(db)
		return
	case *stats:
		s, err := db.CheckStreak(time.Now())
		if err != nil {
			log.Fatalf("Failed to read stats: %v", err)
		}
		printStats(s)
		return
	case *buyProtector:
		s, err := db.BuyProtector()
		if errors.Is(err, devotional.ErrNotEnoughEmeralds) {
			fmt.Printf("Necesitas %d esmeraldas; tienes %d.\n", devotional.ProtectorCost, s.Emeralds)
			return
		}
		if err != nil {
			log.Fatalf("Failed to buy protector: %v", err)
		}
		printStats(s)
		return
	}

	var doc *devotional.StudyDocument
	if *inputFile != "" {
		raw, err := os.ReadFile(*inputFile)
		if err != nil {
			log.Fatalf("Failed to read input file: %v", err)
		}
		d, report, err := devotional.SanitizeWithReport(string(raw))
		if err != nil {
			log.Fatalf("Failed to sanitize response: %v", err)
		}
		devotional.VerboseLog("sanitized input file", "strategy", report.Strategy, "checks", len(report.Checks))
		doc = d
	} else {
		doc = generate(cfg, db, *passage, *numQuestions)
	}

	if *playMode {
		playQuiz(db, doc)
		return
	}

	output, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		log.Fatalf("Failed to marshal study: %v", err)
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, output, 0644); err != nil {
			log.Fatalf("Failed to write output file: %v", err)
		}
		log.Printf("Study saved to: %s", *outputFile)
	} else {
		fmt.Println(string(output))
	}
}

func generate(cfg *devotional.Config, db *devotional.DB, passage string, numQuestions int) *devotional.StudyDocument {
	if strings.TrimSpace(passage) == "" {
		log.Fatal("Passage is required. Use -passage flag.")
	}
	if numQuestions == 0 {
		numQuestions = cfg.Quiz.NumQuestions
	}

	provider, err := devotional.NewProvider(cfg.Provider)
	if err != nil {
		log.Fatalf("Failed to create provider: %v", err)
	}
	opts := []devotional.GeneratorOption{
		devotional.WithStore(db),
		devotional.WithLogDir(cfg.Log.Dir),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if cfg.Redis.Addr != "" {
		rdb, err := devotional.NewRedisClient(ctx, cfg.Redis.Addr)
		if err != nil {
			log.Printf("Continuing without cache: %v", err)
		} else {
			defer rdb.Close()
			opts = append(opts, devotional.WithCache(devotional.NewDocumentCache(rdb, cfg.Redis.TTL)))
		}
	}

	generator := devotional.NewStudyGenerator(provider, opts...)
	doc, _, err := generator.Generate(ctx, devotional.GenerationRequest{
		Passage:      passage,
		NumQuestions: numQuestions,
	})
	if err != nil {
		log.Fatalf("Failed to generate study: %s", describeError(err))
	}

	if s, err := db.ApplyStudyCompletion(time.Now()); err != nil {
		log.Printf("Failed to update stats: %v", err)
	} else {
		devotional.VerboseLog("study reward applied", "streak", s.Streak, "emeralds", s.Emeralds)
	}
	return doc
}

// describeError turns provider and sanitizing errors into a user-facing message.
func describeError(err error) string {
	var pe *devotional.ProviderError
	switch {
	case errors.As(err, &pe) && pe.Kind == devotional.ProviderQuota:
		return "límite de cuota excedido; prueba otro modelo en la configuración"
	case errors.As(err, &pe) && pe.Kind == devotional.ProviderAuth:
		return "la clave del proveedor no fue aceptada"
	case errors.As(err, &pe) && pe.Kind == devotional.ProviderSafety:
		return "el proveedor bloqueó la respuesta"
	case errors.Is(err, devotional.ErrMalformedResponse):
		return "la IA generó un texto corrupto o demasiado largo; intenta con un pasaje más corto"
	}
	return err.Error()
}

func printHistory(db *devotional.DB) {
	items, err := db.RecentHistory()
	if err != nil {
		log.Fatalf("Failed to get history: %v", err)
	}
	if len(items) == 0 {
		fmt.Println("No hay estudios recientes.")
		return
	}
	for _, it := range items {
		fmt.Printf("%s  %-24s %s (%s)\n", it.CreatedAt.Local().Format("2006-01-02 15:04"), it.Passage, it.Title, it.StudyID)
	}
}

func printStats(s devotional.UserStats) {
	fmt.Printf("🔥 Racha: %d días\n", s.Streak)
	fmt.Printf("💎 Esmeraldas: %d\n", s.Emeralds)
	fmt.Printf("🛡️  Protectores: %d\n", s.Protectors)
}
