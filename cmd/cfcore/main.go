// Command cfcore loads the full Codeforces aggregate for a handle and prints
// a dashboard summary. It is the reference wiring of the library: config,
// cache store, API client, orchestrator and the optional suggestion service.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/krypticgrind/cfcore/internal/appconfig"
	"github.com/krypticgrind/cfcore/internal/cache"
	"github.com/krypticgrind/cfcore/internal/cfapi"
	"github.com/krypticgrind/cfcore/internal/orchestrator"
	"github.com/krypticgrind/cfcore/internal/suggest"
	"github.com/krypticgrind/cfcore/pkg/common"
	"github.com/krypticgrind/cfcore/pkg/observability"
)

func main() {
	handle := flag.String("handle", "", "Codeforces handle (defaults to the saved one)")
	refresh := flag.Bool("refresh", false, "drop cached snapshots before loading")
	suggestions := flag.Bool("suggest", false, "ask the configured model for training suggestions")
	flag.Parse()

	cfg, cfgPath, err := appconfig.Load()
	if err != nil {
		slog.Error("Failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}
	if cfgPath != "" {
		slog.Info("Loaded config", "path", cfgPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store cache.Store
	if cfg.Redis.URL != "" {
		redis := cache.NewRedis(cfg.Redis.URL)
		defer redis.Close()
		if err := redis.Ping(ctx); err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		slog.Info("Connected to Redis")
		store = redis
	} else {
		store = cache.NewMemory()
	}

	if cfg.Observability.MetricsAddr != "" {
		observability.StartMetricsServer(cfg.Observability.MetricsAddr)
	}

	snapshots := cache.NewSnapshotStore(store, time.Duration(cfg.Cache.MaxAgeHours)*time.Hour)
	client := cfapi.New(cfg.Fetch, snapshots, store)
	orch := orchestrator.New(client, snapshots, cfg.Fetch.SubmissionCount)

	target := *handle
	if target == "" {
		if target, err = client.SavedHandle(ctx); err != nil {
			slog.Error("Failed to read saved handle", "error", err)
			os.Exit(1)
		}
	}
	if target == "" {
		fmt.Fprintln(os.Stderr, "usage: cfcore -handle <codeforces handle>")
		os.Exit(2)
	}

	load := orch.LoadAll
	if *refresh {
		load = orch.Refresh
	}
	snap, err := load(ctx, target)
	if err != nil {
		slog.Error("Aggregate load failed", "handle", target, "error", err)
		fmt.Fprintln(os.Stderr, common.UserMessage(err))
		os.Exit(1)
	}
	printSnapshot(snap)

	if *suggestions {
		svc, err := suggest.NewService(cfg.Suggest, store)
		if err != nil {
			slog.Error("Suggestion service unavailable", "error", err)
			os.Exit(1)
		}
		items, err := svc.Suggestions(ctx, snap.Profile, snap.Stats)
		if err != nil {
			slog.Error("Suggestion generation failed", "error", err)
			os.Exit(1)
		}
		printSuggestions(items)
	}
}

func printSnapshot(snap orchestrator.Snapshot) {
	p := snap.Profile
	fmt.Printf("%s  %s  rating %d (max %d)\n", p.Handle, p.Rank, p.Rating, p.MaxRating)
	fmt.Printf("solved %d problems, %d contests, current streak %d days, acceptance %.0f%%\n",
		snap.Stats.ProblemsSolved, snap.Stats.ContestsParticipated,
		snap.Stats.CurrentStreak, snap.Stats.AcceptanceRate*100)

	for _, res := range []orchestrator.Resource{
		orchestrator.ResourceProfile,
		orchestrator.ResourceRating,
		orchestrator.ResourceSubmissions,
		orchestrator.ResourceContests,
	} {
		st := snap.States[res]
		line := fmt.Sprintf("  %-12s %s", res, st.State)
		if st.FromCache {
			line += " (cached)"
		}
		if st.Err != nil && st.State == orchestrator.StateFailed {
			line += "  " + common.UserMessage(st.Err)
		}
		fmt.Println(line)
	}

	if len(snap.UpcomingContests) > 0 {
		fmt.Println("upcoming contests:")
		for _, c := range snap.UpcomingContests {
			when := "TBA"
			if t, ok := c.StartTime(); ok {
				when = t.Local().Format("2006-01-02 15:04")
			}
			fmt.Printf("  %s  %s\n", when, c.Name)
		}
	}
}

func printSuggestions(items []suggest.Suggestion) {
	if len(items) == 0 {
		fmt.Println("no suggestions")
		return
	}
	fmt.Println("suggestions:")
	for _, s := range items {
		fmt.Printf("  [%s/%s] %s\n", s.Priority, s.Type, s.Title)
		if s.Action != "" {
			fmt.Printf("      %s\n", s.Action)
		}
	}
}
