package main

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gantrylabs/gantry/internal/config"
	"github.com/gantrylabs/gantry/internal/decompose"
	"github.com/gantrylabs/gantry/internal/learning"
	"github.com/gantrylabs/gantry/internal/manager"
	"github.com/gantrylabs/gantry/internal/orchestrator"
	"github.com/gantrylabs/gantry/internal/priority"
	"github.com/gantrylabs/gantry/internal/storage"
)

// app is the assembled engine stack behind every command that touches
// tasks: storage, the facade, and the orchestrated services.
type app struct {
	cfg      *config.Config
	store    storage.Adapter
	manager  *manager.Manager
	engine   *learning.Engine
	services *orchestrator.Services
}

// openApp validates the loaded configuration and builds the stack.
// withSignals mounts the file-signal controller so background loops
// can be paused and stopped from outside the process.
func openApp(withSignals bool) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	store, err := storage.Open(cfg.StorageConfig())
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	mgr, err := manager.New(store, cfg.ManagerOptions()...)
	if err != nil {
		store.Close()
		return nil, err
	}

	var signals *orchestrator.SignalController
	if withSignals {
		signals, err = orchestrator.NewSignalController(cfg.SignalsDir())
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("signal controller: %w", err)
		}
	}

	// The engine state survives across invocations; a corrupt snapshot
	// degrades to a fresh prior-seeded model rather than blocking.
	engine := learning.NewEngine(cfg.EngineOptions()...)
	if err := engine.LoadState(cfg.LearningStateFile()); err != nil {
		log.Warn().Err(err).Msg("starting with a fresh learning state")
	}

	services, err := orchestrator.New(orchestrator.Config{
		Manager:         mgr,
		Scorer:          priority.NewScorer(cfg.ScorerOptions()...),
		Policy:          cfg.Priority.Policy,
		Engine:          engine,
		Decomposer:      decompose.NewDecomposer(cfg.DecomposerOptions()...),
		Signals:         signals,
		AdjustInterval:  cfg.Loops.AdjustInterval,
		LearnInterval:   cfg.Loops.LearnInterval,
		RescoreOnChange: cfg.Loops.RescoreOnChange,
		FeedCompletions: cfg.Loops.FeedCompletions,
	})
	if err != nil {
		if signals != nil {
			signals.Close()
		}
		store.Close()
		return nil, err
	}

	return &app{cfg: cfg, store: store, manager: mgr, engine: engine, services: services}, nil
}

// Close tears the stack down and snapshots the learning state. The
// services close the signal controller, the manager closes the store.
func (a *app) Close() {
	a.services.Close()
	if err := a.engine.SaveState(a.cfg.LearningStateFile()); err != nil {
		log.Warn().Err(err).Msg("saving learning state")
	}
	if err := a.manager.Close(); err != nil {
		log.Warn().Err(err).Msg("closing store")
	}
}
