package config

import (
	"fmt"
	"riskierwas/internal/engine"
	"time"
)

// GameConfig holds the scoring rules shared by every game on this server
type GameConfig struct {
	BasePoints       int           `yaml:"base_points"`
	PointStep        int           `yaml:"point_step"`
	DecayInterval    time.Duration `yaml:"decay_interval"`
	ProgressInterval time.Duration `yaml:"progress_interval"`
	MinTeams         int           `yaml:"min_teams"`
	MaxTeams         int           `yaml:"max_teams"`
	MaxAnswers       int           `yaml:"max_answers"`
	ForfeitRule      string        `yaml:"forfeit_rule"` // pending | round
}

// DefaultGameConfig returns the classic rules
func DefaultGameConfig() GameConfig {
	d := engine.DefaultSettings()
	return GameConfig{
		BasePoints:       d.BasePoints,
		PointStep:        d.PointStep,
		DecayInterval:    d.DecayInterval,
		ProgressInterval: d.ProgressInterval,
		MinTeams:         2,
		MaxTeams:         4,
		MaxAnswers:       16,
		ForfeitRule:      string(engine.ForfeitPending),
	}
}

func (g GameConfig) Validate() error {
	if g.BasePoints <= 0 {
		return fmt.Errorf("base points must be positive, got %d", g.BasePoints)
	}
	if g.PointStep < 0 {
		return fmt.Errorf("point step must not be negative, got %d", g.PointStep)
	}
	if g.DecayInterval <= 0 || g.ProgressInterval <= 0 {
		return fmt.Errorf("decay intervals must be positive")
	}
	if g.ProgressInterval > g.DecayInterval {
		return fmt.Errorf("progress interval %s exceeds decay interval %s", g.ProgressInterval, g.DecayInterval)
	}
	if g.MinTeams < 1 || g.MaxTeams < g.MinTeams {
		return fmt.Errorf("invalid team bounds %d..%d", g.MinTeams, g.MaxTeams)
	}
	if g.MaxAnswers < 1 {
		return fmt.Errorf("max answers must be positive, got %d", g.MaxAnswers)
	}
	switch engine.ForfeitRule(g.ForfeitRule) {
	case engine.ForfeitPending, engine.ForfeitRound:
	default:
		return fmt.Errorf("unknown forfeit rule %q", g.ForfeitRule)
	}
	return nil
}

// ClampTeams keeps a requested team count inside the configured bounds
func (g GameConfig) ClampTeams(n int) int {
	return max(g.MinTeams, min(g.MaxTeams, n))
}

// EngineSettings converts the config into engine settings for one game
func (g GameConfig) EngineSettings(decay bool) engine.Settings {
	return engine.Settings{
		BasePoints:       g.BasePoints,
		PointStep:        g.PointStep,
		DecayEnabled:     decay,
		DecayInterval:    g.DecayInterval,
		ProgressInterval: g.ProgressInterval,
		Forfeit:          engine.ForfeitRule(g.ForfeitRule),
	}
}
