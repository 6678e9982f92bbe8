package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"

	"jarvis/internal/agent"
	"jarvis/internal/config"
	"jarvis/internal/correction"
	"jarvis/internal/logging"
	"jarvis/internal/perception"
	"jarvis/internal/research"
	"jarvis/internal/store"
	"jarvis/internal/tactile"
	"jarvis/internal/tools"
	coretools "jarvis/internal/tools/core"
	researchtools "jarvis/internal/tools/research"
	shelltools "jarvis/internal/tools/shell"
	turntools "jarvis/internal/tools/turn"
	"jarvis/internal/world"
)

// BootOptions overrides parts of the wiring. Zero values mean "build from
// config".
type BootOptions struct {
	// BaseDir resolves a relative workspace dir; empty means the process cwd.
	BaseDir string

	LLM      perception.LLMClient
	Searcher research.Searcher

	// NoWatch disables the filesystem watcher regardless of config.
	NoWatch bool

	SessionID string
}

// App is a fully wired jarvis instance.
type App struct {
	Config *config.Config

	Workspace *world.Workspace
	Watcher   *world.Watcher

	LLM      perception.LLMClient
	Runner   *tactile.ActionRunner
	Trail    *tactile.AuditTrail
	Searcher research.Searcher
	Memory   *store.SQLiteMemory

	Loop   *correction.Loop
	Driver *Driver
	Tools  *tools.Registry
	Agent  *agent.Agent
}

// Boot builds every collaborator from cfg and wires the driver. The caller
// must Close the app.
func Boot(ctx context.Context, cfg *config.Config, opts BootOptions) (_ *App, err error) {
	timer := logging.StartTimer(logging.CategoryBoot, "Boot")
	defer timer.Stop()

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	app := &App{Config: cfg}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	root, err := cfg.ResolveWorkspace(opts.BaseDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace: %w", err)
	}
	app.Workspace, err = world.Open(root, world.Options{
		Depth:          cfg.Workspace.SnapshotDepth,
		MaxFiles:       cfg.Workspace.SnapshotMaxFiles,
		SmallFileBytes: cfg.Workspace.SmallFileBytes,
		SmallFileCount: cfg.Workspace.SmallFileCount,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Workspace.Watch && !opts.NoWatch {
		if w, werr := world.NewWatcher(app.Workspace); werr != nil {
			logging.BootWarn("Workspace watcher unavailable: %v", werr)
		} else if werr := w.Start(context.WithoutCancel(ctx)); werr != nil {
			logging.BootWarn("Workspace watcher failed to start: %v", werr)
		} else {
			app.Watcher = w
		}
	}

	llm := opts.LLM
	if llm == nil {
		llm, err = perception.NewClientFromConfig(ctx, cfg.LLM)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		llm = perception.NewTracingLLMClient(llm, cfg.LLM.Model, nil)
	}
	app.LLM = llm

	execCfg := tactile.DefaultExecutorConfig()
	execCfg.DefaultWorkingDir = root
	execCfg.DefaultTimeout = cfg.Execution.GetTimeout()
	if cfg.Execution.MaxOutputBytes > 0 {
		execCfg.MaxOutputBytes = cfg.Execution.MaxOutputBytes
	}
	if len(cfg.Execution.AllowedEnvVars) > 0 {
		execCfg.AllowedEnvironment = cfg.Execution.AllowedEnvVars
	}
	executor := tactile.NewDirectExecutorWithConfig(execCfg)
	app.Trail = tactile.NewAuditTrail(100)
	executor.SetAuditCallback(app.Trail.Record)

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	app.Runner = tactile.NewActionRunner(executor, tactile.RunnerConfig{
		Workspace:      root,
		PythonBinary:   cfg.Execution.PythonBinary,
		Timeout:        cfg.Execution.GetTimeout(),
		MaxOutputBytes: cfg.Execution.MaxOutputBytes,
		SessionID:      sessionID,
	})

	app.Searcher = opts.Searcher
	if app.Searcher == nil {
		app.Searcher, err = research.NewFromConfig(cfg.Search)
		if err != nil {
			return nil, fmt.Errorf("failed to create searcher: %w", err)
		}
	}

	if cfg.Memory.Enabled {
		app.Memory, err = store.OpenSQLiteMemory(MemoryPath(cfg.Memory, root))
		if err != nil {
			return nil, fmt.Errorf("failed to open memory: %w", err)
		}
	}

	policy, err := correction.PolicyFromConfig(cfg.Escalation)
	if err != nil {
		return nil, err
	}
	loopCfg := correction.ConfigFrom(cfg)
	loopOpts := []correction.Option{correction.WithPolicy(policy)}
	if app.Searcher != nil {
		loopOpts = append(loopOpts, correction.WithSearcher(app.Searcher))
	}

	driverCfg := Config{
		SessionID:     sessionID,
		UserID:        cfg.Memory.UserID,
		HistoryTurns:  cfg.LLM.HistoryTurns,
		RecallLimit:   cfg.Memory.RecallLimit,
		SearchEnabled: loopCfg.SearchEnabled && app.Searcher != nil && policy.AllowDirective(),
		MaxRetries:    loopCfg.MaxRetries,
	}
	var mem store.MemoryStore
	if app.Memory != nil {
		mem = app.Memory
	}
	loopOpts = append(loopOpts, correction.WithObserver(correction.NewAuditObserver(sessionID)))
	app.Loop = correction.NewLoop(loopCfg, llm, correction.RunnerExecutor(app.Runner), loopOpts...)
	app.Driver = NewDriver(app.Loop, app.Workspace, mem, driverCfg)

	app.Tools = tools.NewRegistry()
	if err := errors.Join(
		turntools.RegisterAll(app.Tools, app.Driver),
		shelltools.RegisterAll(app.Tools, app.Runner),
		researchtools.RegisterAll(app.Tools, app.Searcher, loopCfg.MaxSearchResults),
		coretools.RegisterAll(app.Tools, app.Workspace, mem, cfg.Memory.RecallLimit),
	); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	agentCfg := agent.ConfigFrom(cfg.Agent)
	agentCfg.SessionID = sessionID
	agentCfg.UserID = cfg.Memory.UserID
	app.Agent = agent.New(llm, app.Tools, agentCfg, agent.WithWorkspace(app.Workspace), agent.WithMemory(mem))

	logging.Boot("Booted: workspace=%s provider=%s model=%s search=%v memory=%v tools=%d",
		root, cfg.LLM.Provider, cfg.LLM.Model, app.Searcher != nil, app.Memory != nil, app.Tools.Count())
	return app, nil
}

// MemoryPath places relative database paths under <workspace>/.jarvis.
func MemoryPath(c config.MemoryConfig, root string) string {
	if !c.Persistent || c.DatabasePath == "" {
		return store.InMemoryPath
	}
	if filepath.IsAbs(c.DatabasePath) {
		return c.DatabasePath
	}
	return filepath.Join(root, ".jarvis", c.DatabasePath)
}

// Close stops the watcher, ends the session and closes the memory store.
func (a *App) Close() error {
	if a == nil {
		return nil
	}
	if a.Watcher != nil {
		a.Watcher.Stop()
		a.Watcher = nil
	}
	if a.Driver != nil {
		a.Driver.Close()
	}
	if a.Memory != nil {
		err := a.Memory.Close()
		a.Memory = nil
		return err
	}
	return nil
}
