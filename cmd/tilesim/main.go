package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/l1jgo/tilesim/internal/ai"
	"github.com/l1jgo/tilesim/internal/config"
	"github.com/l1jgo/tilesim/internal/core/event"
	coresys "github.com/l1jgo/tilesim/internal/core/system"
	"github.com/l1jgo/tilesim/internal/data"
	"github.com/l1jgo/tilesim/internal/motion"
	gonet "github.com/l1jgo/tilesim/internal/net"
	"github.com/l1jgo/tilesim/internal/persist"
	"github.com/l1jgo/tilesim/internal/physics"
	"github.com/l1jgo/tilesim/internal/scripting"
	"github.com/l1jgo/tilesim/internal/system"
	"github.com/l1jgo/tilesim/internal/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(levels int) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m             tilesim  v0.1.0               \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m        磚塊地圖 · 遊戲模擬核心            \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1m關卡數:\033[0m %d\n\n", levels)
}

// displayWidth counts CJK characters as two columns.
func displayWidth(s string) int {
	w := 0
	for _, r := range s {
		if r > 0x7F {
			w += 2
		} else {
			w++
		}
	}
	return w
}

func printSection(title string) {
	lineLen := max(46-displayWidth(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-displayWidth(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main loop ─────────────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/tilesim.toml"
	if p := os.Getenv("TILESIM_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Load data tables
	levels, err := data.LoadLevelList(cfg.Data.Levels, cfg.Data.TilesDir)
	if err != nil {
		return fmt.Errorf("levels: %w", err)
	}
	printBanner(levels.Count())

	printSection("資料載入")
	species, err := data.LoadSpeciesTable(cfg.Data.Species)
	if err != nil {
		return fmt.Errorf("species: %w", err)
	}
	printStat("物種", species.Count())

	rawFSM, err := data.LoadFSMTable(cfg.Data.FSM)
	if err != nil {
		return fmt.Errorf("fsm: %w", err)
	}
	engine, err := ai.NewEngine(rawFSM, log)
	if err != nil {
		return fmt.Errorf("fsm compile: %w", err)
	}
	printStat("狀態機", engine.Count())

	effects, err := data.LoadEffectTable(cfg.Data.Effects)
	if err != nil {
		return fmt.Errorf("effects: %w", err)
	}
	printStat("磚塊效果", effects.Count())
	printStat("關卡", levels.Count())

	// Lua stays disabled without a scripts dir; the interface must stay nil
	// rather than hold a nil *scripting.Engine.
	var (
		script   *scripting.Engine
		scripter ai.Scripter
	)
	if cfg.Data.ScriptsDir != "" {
		script, err = scripting.NewEngine(cfg.Data.ScriptsDir, log)
		if err != nil {
			return fmt.Errorf("lua: %w", err)
		}
		defer script.Close()
		scripter = script
		printOK("Lua 腳本載入完成")
	}
	fmt.Println()

	// 4. Save backend: PostgreSQL when a DSN is set, otherwise files
	printSection("存檔")
	saver, closeSaver, err := openSaver(cfg, log)
	if err != nil {
		return err
	}
	defer closeSaver()

	// 5. World state
	bus := event.NewBus()
	ws, err := world.New(species, motion.Metrics{
		StepsX: cfg.Sim.StepsPerTileX,
		StepsY: cfg.Sim.StepsPerTileY,
	}, bus, cfg.Sim.Seed, log)
	if err != nil {
		return fmt.Errorf("world: %w", err)
	}
	stock := world.NewStock(cfg.Sim.Lives)
	stock.Attach(bus)
	ws.SetInventory(stock)

	start := levels.Get(cfg.Sim.StartLevel)
	if start == nil {
		start = levels.First()
	}
	var resumeFrom *persist.Checkpoint
	if store, ok := saver.(persist.CheckpointStore); ok {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		cp, found, err := store.LoadCheckpoint(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("load checkpoint: %w", err)
		}
		if found && levels.Get(cp.Level) != nil {
			start = levels.Get(cp.Level)
			stock.Restore(cp.Lives, cp.Items)
			resumeFrom = &cp
			printOK(fmt.Sprintf("讀取存檔點 (關卡 %d 階段 %d)", cp.Level, cp.Stage))
		}
	}
	if !ws.LoadScene(levels, start) {
		return fmt.Errorf("scene %d failed to initialise", start.ID)
	}
	persistSys := system.NewPersistenceSystem(ws, saver, stock, cfg.Sim.SaveInterval, log)
	if resumeFrom != nil {
		if err := persistSys.Resume(*resumeFrom); err != nil {
			log.Warn("存檔地圖恢復失敗", zap.Error(err))
		}
	}
	fmt.Println()

	// 6. Observer feed
	var (
		observer  *gonet.Observer
		publisher system.Publisher
	)
	inputSys := system.NewInputSystem(ws, cfg.Observer.InQueueSize, cfg.Sim.MaxInputs, log)
	if cfg.Observer.BindAddress != "" {
		observer, err = gonet.NewObserver(cfg.Observer, inputSys, log)
		if err != nil {
			return fmt.Errorf("observer: %w", err)
		}
		go observer.Run()
		publisher = observer
	}

	// 7. Create systems and register with runner
	runner := coresys.NewRunner()
	aiSys := system.NewAISystem(ws, engine, scripter, log)
	interactionSys := system.NewInteractionSystem(ws, effects, log)
	runner.Register(inputSys)
	runner.Register(system.NewEventDispatchSystem(ws, bus))
	runner.Register(aiSys)
	runner.Register(system.NewMotionSystem(ws))
	runner.Register(system.NewPhysicsSystem(ws, physics.Params{
		Gravity:      cfg.Sim.Gravity,
		MaxFallSpeed: cfg.Sim.MaxFallSpeed,
		MicroStep:    cfg.Sim.MicroStep(),
	}))
	runner.Register(system.NewProjectileSystem(ws))
	runner.Register(interactionSys)
	runner.Register(system.NewSnapshotSystem(ws, bus, publisher, cfg.Sim.TileSize))
	runner.Register(persistSys)
	runner.Register(system.NewCleanupSystem(ws, log))

	// 8. Hot reload
	var reloadCh <-chan string
	if cfg.Data.HotReload {
		watcher, err := data.NewWatcher(watchDirs(cfg.Data)...)
		if err != nil {
			log.Warn("無法啟動熱重載", zap.Error(err))
		} else {
			defer watcher.Close()
			reloadCh = watcher.Events()
		}
	}

	// 9. Start game loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Sim.TickRate)
	defer ticker.Stop()

	printSection("模擬就緒")
	if observer != nil {
		printReady(fmt.Sprintf("觀察者位址 %s", observer.Addr()))
	}
	printReady(fmt.Sprintf("遊戲迴圈啟動 (tick: %s)", cfg.Sim.TickRate))
	fmt.Println()

	stop := func() {
		if err := persistSys.SaveNow(); err != nil {
			log.Error("關閉前存檔失敗", zap.Error(err))
		}
		if observer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			_ = observer.Shutdown(ctx)
			cancel()
		}
		log.Info("模擬已停止", zap.Uint64("ticks", runner.Ticks()))
	}

	for {
		select {
		case <-ticker.C:
			runner.Tick(cfg.Sim.TickRate)
			exit, ok := ws.SessionExit()
			if !ok {
				continue
			}
			next := levels.Get(exit.Level)
			if exit.Reason != "exit" || next == nil {
				log.Info("場景結束", zap.String("reason", exit.Reason))
				stop()
				return nil
			}
			if err := persistSys.SaveNow(); err != nil {
				log.Warn("換關存檔失敗", zap.Error(err))
			}
			if !ws.LoadScene(levels, next) {
				stop()
				return fmt.Errorf("scene %d failed to initialise", next.ID)
			}
		case path, ok := <-reloadCh:
			if !ok {
				reloadCh = nil
				continue
			}
			reload(path, cfg.Data, ws, engine, interactionSys, script, log)
		case sig := <-shutdownCh:
			log.Info("收到關閉信號", zap.String("signal", sig.String()))
			stop()
			return nil
		}
	}
}

// openSaver picks the save backend. The returned close func is never nil.
func openSaver(cfg *config.Config, log *zap.Logger) (persist.Saver, func(), error) {
	if cfg.Database.DSN == "" {
		fs, err := persist.NewFileSaver(cfg.Save.Dir, log)
		if err != nil {
			return nil, nil, fmt.Errorf("save dir: %w", err)
		}
		printOK(fmt.Sprintf("檔案存檔 %s", cfg.Save.Dir))
		fmt.Println()
		return fs, func() {}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := persist.NewDB(ctx, cfg.Database, log)
	if err != nil {
		return nil, nil, fmt.Errorf("database: %w", err)
	}
	printOK("PostgreSQL 連線成功")

	if err := persist.RunMigrations(ctx, db.Pool, log); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	printOK("資料庫遷移完成")
	fmt.Println()
	return persist.NewSlotSaver(db, cfg.Database.SaveSlot), db.Close, nil
}

func watchDirs(cfg config.DataConfig) []string {
	seen := make(map[string]bool)
	var dirs []string
	add := func(dir string) {
		if dir == "" || seen[dir] {
			return
		}
		if st, err := os.Stat(dir); err != nil || !st.IsDir() {
			return
		}
		seen[dir] = true
		dirs = append(dirs, dir)
	}
	add(filepath.Dir(cfg.Species))
	add(filepath.Dir(cfg.FSM))
	add(filepath.Dir(cfg.Effects))
	if cfg.ScriptsDir != "" {
		add(cfg.ScriptsDir)
		add(filepath.Join(cfg.ScriptsDir, "ai"))
	}
	return dirs
}

// reload applies a changed file between ticks. A file that fails to load
// leaves the running tables untouched.
func reload(path string, cfg config.DataConfig, ws *world.State, engine *ai.Engine,
	interaction *system.InteractionSystem, script *scripting.Engine, log *zap.Logger) {
	same := func(p string) bool { return p != "" && filepath.Clean(p) == filepath.Clean(path) }

	var err error
	switch {
	case same(cfg.Species):
		var t *data.SpeciesTable
		if t, err = data.LoadSpeciesTable(path); err == nil {
			err = ws.SetSpecies(t)
		}
	case same(cfg.FSM):
		var raw map[string]data.RawTable
		if raw, err = data.LoadFSMTable(path); err == nil {
			err = engine.Reload(raw)
		}
	case same(cfg.Effects):
		var t *data.EffectTable
		if t, err = data.LoadEffectTable(path); err == nil {
			interaction.SetEffects(t)
		}
	case data.IsScriptFile(path) && script != nil:
		err = script.Reload()
	default:
		return
	}
	if err != nil {
		log.Warn("熱重載失敗，保留現有資料", zap.String("file", path), zap.Error(err))
		return
	}
	log.Info("熱重載完成", zap.String("file", path))
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
