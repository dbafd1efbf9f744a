package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"time"

	"devotional"
)

func main() {
	var (
		topic     = flag.String("topic", "", "Generate a plan on this topic")
		duration  = flag.String("duration", "weekly", "Plan length: intensive, weekly, monthly or annual")
		list      = flag.Bool("list", false, "List saved plans")
		show      = flag.String("show", "", "Show the plan with this ID")
		remove    = flag.String("delete", "", "Delete the plan with this ID")
		dbPath    = flag.String("db", "", "Database path (default from config)")
		configDir = flag.String("config", "", "Directory holding config.yaml (default ./config)")
		verbose   = flag.Bool("verbose", false, "Enable verbose output")
	)

	flag.Parse()

	devotional.SetVerbose(*verbose)
	defer devotional.Sync()

	cfg, err := devotional.LoadConfig(*configDir)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	db, err := devotional.OpenDB(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	switch {
	case *list:
		plans, err := db.ListReadingPlans()
		if err != nil {
			log.Fatalf("Failed to list plans: %v", err)
		}
		fmt.Printf("📚 %d planes guardados\n", len(plans))
		for _, p := range plans {
			fmt.Printf("  %s  [%s] %s (%s)\n", p.ID, p.Duration, p.Title, p.Topic)
		}
	case *show != "":
		plan, err := db.GetReadingPlan(*show)
		if errors.Is(err, devotional.ErrNotFound) {
			log.Fatalf("No plan with ID %s", *show)
		}
		if err != nil {
			log.Fatalf("Failed to get plan: %v", err)
		}
		printPlan(plan)
	case *remove != "":
		if err := db.DeleteReadingPlan(*remove); err != nil {
			log.Fatalf("Failed to delete plan: %v", err)
		}
		fmt.Printf("🗑️  Plan %s eliminado\n", *remove)
	case *topic != "":
		d, ok := devotional.ParsePlanDuration(*duration)
		if !ok {
			log.Printf("Unknown duration %q, using %s", *duration, d)
		}
		provider, err := devotional.NewProvider(cfg.Provider)
		if err != nil {
			log.Fatalf("Failed to create provider: %v", err)
		}
		generator := devotional.NewStudyGenerator(provider,
			devotional.WithStore(db),
			devotional.WithLogDir(cfg.Log.Dir),
		)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		plan, err := generator.GenerateReadingPlan(ctx, *topic, d)
		if err != nil {
			log.Fatalf("Failed to generate plan: %v", err)
		}
		printPlan(plan)
	default:
		log.Fatal("Nothing to do. Use -topic, -list, -show or -delete.")
	}
}

func printPlan(plan *devotional.ReadingPlan) {
	fmt.Printf("📖 %s (%s)\n", plan.Title, plan.Duration)
	if plan.Description != "" {
		fmt.Printf("%s\n", plan.Description)
	}
	fmt.Printf("ID: %s\n\n", plan.ID)
	for _, it := range plan.Items {
		fmt.Printf("• %s: %s, %s\n", it.ID, it.Passage, it.Theme)
		if it.Reason != "" {
			fmt.Printf("    %s\n", it.Reason)
		}
	}
}
