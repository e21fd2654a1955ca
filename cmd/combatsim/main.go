// Package main provides the combat simulator: it stages a scenario from the
// content tree, lets the autopilot fight it out and prints the narrative.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/cory-johannsen/realm/internal/config"
	"github.com/cory-johannsen/realm/internal/game/autopilot"
	"github.com/cory-johannsen/realm/internal/game/board"
	"github.com/cory-johannsen/realm/internal/game/combat"
	"github.com/cory-johannsen/realm/internal/game/content"
	"github.com/cory-johannsen/realm/internal/game/dice"
	"github.com/cory-johannsen/realm/internal/observability"
	"github.com/cory-johannsen/realm/internal/scripting"
	"github.com/cory-johannsen/realm/internal/storage/postgres"
)

func main() {
	start := time.Now()

	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file; empty = defaults and environment only")
	scenarioID := flag.String("scenario", "", "scenario ID to run")
	list := flag.Bool("list", false, "list scenario IDs and exit")
	seed := flag.Uint64("seed", 0, "die seed; overrides combat.seed when non-zero")
	history := flag.Int("history", 0, "after the run, print up to N journaled encounters for the clearing")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if *seed != 0 {
		cfg.Combat.Seed = *seed
	}

	logger, err := observability.NewLogger(cfg.Logging, "combatsim")
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	reg, err := content.LoadRegistry(cfg.Content.Dir)
	if err != nil {
		logger.Fatal("loading content", zap.Error(err))
	}
	if *list {
		for _, id := range reg.ScenarioIDs() {
			fmt.Println(id)
		}
		return
	}
	if *scenarioID == "" {
		logger.Fatal("no scenario given; use -scenario or -list")
	}

	src := dice.NewCryptoSource()
	if cfg.Combat.Seed != 0 {
		src = dice.NewSeededSource(cfg.Combat.Seed)
	}
	pools := dice.NewPools(src, logger)

	var recorder combat.Recorder
	var journal *postgres.EncounterRepository
	if cfg.Database.Enabled {
		dbStart := time.Now()
		pool, err := postgres.Open(ctx, cfg.Database, "combatsim")
		if err != nil {
			logger.Fatal("connecting to database", zap.Error(err))
		}
		defer pool.Close()
		journal = postgres.NewEncounterRepository(pool.DB())
		recorder = journal
		logger.Info("database connected",
			zap.String("host", cfg.Database.Host),
			zap.Uint("schema", pool.Version()),
			zap.Duration("elapsed", time.Since(dbStart)),
		)
	}

	var scripts *scripting.Manager
	if cfg.Scripting.AutopilotScript != "" {
		scripts = scripting.NewManager(src, logger, cfg.Scripting.InstructionLimit)
		defer scripts.Close()
		if err := scripts.Load(cfg.Scripting.AutopilotScript); err != nil {
			logger.Fatal("loading autopilot script", zap.Error(err))
		}
	}

	clr, err := reg.Stage(*scenarioID)
	if err != nil {
		logger.Fatal("staging scenario", zap.Error(err))
	}
	bd, err := board.New(clr)
	if err != nil {
		logger.Fatal("building board", zap.Error(err))
	}

	engine := combat.NewEngine(pools, logger, cfg.Combat.Rules(), recorder)
	logger.Info("starting encounter",
		zap.String("scenario", *scenarioID),
		zap.String("clearing", clr.ID),
		zap.Int("combatants", len(clr.Occupants())),
		zap.Uint64("seed", cfg.Combat.Seed),
	)

	s, err := engine.Start(clr, narrator{out: os.Stdout})
	if err != nil {
		logger.Fatal("starting combat", zap.Error(err))
	}
	driver := autopilot.New(scripts, logger, cfg.Combat.MaxRounds)
	if err := driver.Run(ctx, s); err != nil {
		logger.Error("encounter did not finish", zap.Error(err))
	}
	engine.Reap()

	sum := s.Summary()
	home, ok := bd.Clearing(sum.ClearingID)
	if !ok {
		logger.Fatal("encounter ended outside the board", zap.String("clearing", sum.ClearingID))
	}
	printSummary(os.Stdout, sum, home, s.DestroyedItems())
	if *history > 0 && journal != nil {
		past, err := journal.ListByClearing(ctx, clr.ID, *history)
		if err != nil {
			logger.Error("listing journal", zap.Error(err))
		}
		for _, sum := range past {
			fmt.Printf("  %s  %s  rounds=%d deaths=%d fled=%d\n",
				sum.EndedAt.Format(time.RFC3339), sum.ID, sum.Rounds, len(sum.Deaths), len(sum.Fled))
		}
	}

	logger.Info("done", zap.Duration("elapsed", time.Since(start)))
}

// narrator prints every session event as one line.
type narrator struct {
	out io.Writer
}

func (n narrator) Prompt(combat.Pending) {}

func (n narrator) Notify(e combat.Event) {
	fmt.Fprintf(n.out, "[round %d %s] %s\n", e.Round, e.Phase, e.Narrative)
}

func printSummary(w io.Writer, sum combat.Summary, clr *board.Clearing, destroyed []*combat.Armor) {
	fmt.Fprintf(w, "\nEncounter %s in %s: %d rounds\n", sum.ID, clr.Name, sum.Rounds)
	for _, name := range sum.Deaths {
		fmt.Fprintf(w, "  killed: %s\n", name)
	}
	for _, name := range sum.Fled {
		fmt.Fprintf(w, "  fled:   %s\n", name)
	}
	ids := make([]string, 0, len(sum.Spoils))
	for id := range sum.Spoils {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		name := id
		if c, ok := clr.Occupant(id); ok {
			name = c.Name
		}
		sp := sum.Spoils[id]
		fmt.Fprintf(w, "  spoils: %s fame=%d notoriety=%d gold=%d\n", name, sp.Fame, sp.Notoriety, sp.Gold)
	}
	for _, a := range destroyed {
		fmt.Fprintf(w, "  destroyed: %s\n", a.Name)
	}
	for _, group := range clr.TreasureGroups() {
		for _, a := range clr.Treasure(group) {
			fmt.Fprintf(w, "  treasure: %s returned to the %s\n", a.Name, group)
		}
	}
}
