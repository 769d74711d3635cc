package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log"
	"riskierwas/internal/cache"
	"riskierwas/internal/config"
	"riskierwas/internal/engine"
	"riskierwas/internal/model"
	"riskierwas/internal/repository"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/skip2/go-qrcode"
)

var (
	ErrGameNotFound = errors.New("game not found")
	ErrNotGameHost  = errors.New("not the host of this game")
	ErrNoQuestions  = errors.New("question bank is empty")
	ErrUnknownCmd   = errors.New("unknown command")
)

const cacheTimeout = 2 * time.Second

// liveGame is a game with a running engine
type liveGame struct {
	game   *model.Game
	engine *engine.Engine
	done   chan struct{}
	ending bool // Guarded by GameService.mu while EndGame saves the result
}

// GameService runs the engines of all live games, keyed by room code
type GameService struct {
	mu    sync.RWMutex
	games map[string]*liveGame

	bank        *BankService
	rules       config.GameConfig
	gameCache   cache.GameCache
	leaderboard cache.LeaderboardCache
	results     repository.ResultRepo
	broadcaster Broadcaster
	baseURL     string
	engineOpts  []engine.Option
}

// NewGameService creates a new game service
func NewGameService(
	bank *BankService,
	rules config.GameConfig,
	gameCache cache.GameCache,
	leaderboard cache.LeaderboardCache,
	results repository.ResultRepo,
	baseURL string,
	engineOpts ...engine.Option,
) *GameService {
	return &GameService{
		games:       make(map[string]*liveGame),
		bank:        bank,
		rules:       rules,
		gameCache:   gameCache,
		leaderboard: leaderboard,
		results:     results,
		baseURL:     strings.TrimRight(baseURL, "/"),
		engineOpts:  engineOpts,
	}
}

// SetBroadcaster sets the WebSocket broadcaster
func (s *GameService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// CreateGame starts a game from the current bank and activates its first question
func (s *GameService) CreateGame(ctx context.Context, hostID string, settings model.GameSettings) (*model.Game, engine.Snapshot, error) {
	questions := s.bank.Questions()
	if len(questions) == 0 {
		return nil, engine.Snapshot{}, ErrNoQuestions
	}

	settings.TeamCount = s.rules.ClampTeams(settings.TeamCount)
	settings.TeamNames = teamNames(settings.TeamCount, settings.TeamNames)
	if engine.ForfeitRule(settings.ForfeitRule) != engine.ForfeitRound && engine.ForfeitRule(settings.ForfeitRule) != engine.ForfeitPending {
		settings.ForfeitRule = s.rules.ForfeitRule
	}

	code, err := s.generateGameCode(ctx)
	if err != nil {
		return nil, engine.Snapshot{}, fmt.Errorf("failed to generate game code: %w", err)
	}

	game := &model.Game{
		ID:        ulid.Make().String(),
		Code:      code,
		HostID:    hostID,
		Status:    model.GameLive,
		Settings:  settings,
		CreatedAt: time.Now(),
	}
	if err := s.gameCache.SetMeta(ctx, game); err != nil {
		return nil, engine.Snapshot{}, fmt.Errorf("failed to cache game: %w", err)
	}

	teams := make([]model.Team, len(settings.TeamNames))
	for i, name := range settings.TeamNames {
		teams[i] = model.Team{Name: name}
	}
	engSettings := s.rules.EngineSettings(settings.PointDecay)
	engSettings.Forfeit = engine.ForfeitRule(settings.ForfeitRule)

	lg := &liveGame{
		game:   game,
		engine: engine.New(questions, teams, engSettings, s.engineOpts...),
		done:   make(chan struct{}),
	}
	events, _ := lg.engine.Subscribe()
	go s.forward(lg, events)

	s.mu.Lock()
	s.games[code] = lg
	s.mu.Unlock()

	snap, _ := lg.engine.AdvanceQuestion()
	log.Printf("Game %s created by %s with %d teams and %d questions", code, hostID, len(teams), len(questions))
	return game, snap, nil
}

// forward pushes engine events to sockets and Redis until the engine closes.
// Sockets get every event; Redis only gets the latest snapshot so a slow
// Redis never holds up the subscriber.
func (s *GameService) forward(lg *liveGame, events <-chan engine.Event) {
	defer close(lg.done)
	code := lg.game.Code

	latest := make(chan engine.Snapshot, 1)
	written := make(chan struct{})
	go s.persist(code, latest, written)
	defer func() {
		close(latest)
		<-written
	}()

	for ev := range events {
		if s.broadcaster != nil {
			s.broadcaster.BroadcastToHosts(code, MsgState, ev)
			s.broadcaster.BroadcastToViewers(code, MsgState, engine.Event{Kind: ev.Kind, Snapshot: ev.Snapshot.ForViewer()})
		}

		// Progress ticks only move the timer bar
		if ev.Kind == engine.EventProgress {
			continue
		}

		select {
		case latest <- ev.Snapshot:
		default:
			// Replace the snapshot still waiting for Redis
			select {
			case <-latest:
			default:
			}
			latest <- ev.Snapshot
		}
	}
}

// persist writes snapshots and scores to Redis until latest is closed
func (s *GameService) persist(code string, latest <-chan engine.Snapshot, written chan<- struct{}) {
	defer close(written)
	for snap := range latest {
		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		if err := s.gameCache.SetSnapshot(ctx, code, snap); err != nil {
			log.Printf("Failed to cache snapshot for %s: %v", code, err)
		}
		if err := s.leaderboard.SetScores(ctx, code, snap.Teams); err != nil {
			log.Printf("Failed to update leaderboard for %s: %v", code, err)
		}
		cancel()
	}
}

// Execute runs a host command. applied is false when the command did not
// change state (e.g. revealing an answer twice).
func (s *GameService) Execute(code, hostID string, cmd engine.Command, index int) (snap engine.Snapshot, applied bool, err error) {
	lg, err := s.hostGame(code, hostID)
	if err != nil {
		return engine.Snapshot{}, false, err
	}

	e := lg.engine
	switch cmd {
	case engine.CmdAdvance:
		snap, applied = e.AdvanceQuestion()
	case engine.CmdReveal:
		snap, applied = e.RevealAnswer(index)
	case engine.CmdPass:
		snap, applied = e.PassTurn()
	case engine.CmdPauseDecay:
		snap, applied = e.PauseDecay()
	case engine.CmdResumeDecay:
		snap, applied = e.ResumeDecay()
	default:
		return e.Snapshot(), false, ErrUnknownCmd
	}
	return snap, applied, nil
}

// HostSnapshot returns the full state including hidden answers
func (s *GameService) HostSnapshot(code, hostID string) (engine.Snapshot, error) {
	lg, err := s.hostGame(code, hostID)
	if err != nil {
		return engine.Snapshot{}, err
	}
	return lg.engine.Snapshot(), nil
}

// ViewerSnapshot serves displays. Ended or foreign-instance games fall back
// to the snapshot cached in Redis.
func (s *GameService) ViewerSnapshot(ctx context.Context, code string) (engine.Snapshot, error) {
	code = normalizeCode(code)
	if lg := s.game(code); lg != nil {
		return lg.engine.Snapshot().ForViewer(), nil
	}

	snap, err := s.gameCache.GetSnapshot(ctx, code)
	if err != nil {
		return engine.Snapshot{}, fmt.Errorf("failed to get cached snapshot: %w", err)
	}
	if snap == nil {
		return engine.Snapshot{}, ErrGameNotFound
	}
	return *snap, nil
}

// GetGame returns game metadata
func (s *GameService) GetGame(ctx context.Context, code string) (*model.Game, error) {
	code = normalizeCode(code)
	if lg := s.game(code); lg != nil {
		g := *lg.game
		return &g, nil
	}
	game, err := s.gameCache.GetMeta(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	if game == nil {
		return nil, ErrGameNotFound
	}
	return game, nil
}

// IsLive reports whether the game runs on this instance
func (s *GameService) IsLive(code string) bool {
	return s.game(normalizeCode(code)) != nil
}

func (s *GameService) Leaderboard(ctx context.Context, code string) ([]cache.LeaderboardEntry, error) {
	code = normalizeCode(code)
	if _, err := s.GetGame(ctx, code); err != nil {
		return nil, err
	}
	entries, err := s.leaderboard.GetTop(ctx, code, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to get leaderboard: %w", err)
	}
	return entries, nil
}

// JoinURL is what the QR code on the host screen points to
func (s *GameService) JoinURL(code string) string {
	return fmt.Sprintf("%s/v1/games/%s", s.baseURL, normalizeCode(code))
}

// QRCode renders JoinURL as a PNG
func (s *GameService) QRCode(ctx context.Context, code string, size int) ([]byte, error) {
	if _, err := s.GetGame(ctx, code); err != nil {
		return nil, err
	}
	if size <= 0 || size > 1024 {
		size = 256
	}
	png, err := qrcode.Encode(s.JoinURL(code), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	return png, nil
}

// EndGame stops the engine, persists the final standings and tells every
// connected display.
func (s *GameService) EndGame(ctx context.Context, code, hostID string) (*model.GameResult, error) {
	lg, err := s.hostGame(code, hostID)
	if err != nil {
		return nil, err
	}

	// Claim the game so a concurrent end does not save twice
	s.mu.Lock()
	if s.games[lg.game.Code] != lg || lg.ending {
		s.mu.Unlock()
		return nil, ErrGameNotFound
	}
	lg.ending = true
	s.mu.Unlock()

	final := lg.engine.Snapshot()
	now := time.Now()
	result := &model.GameResult{
		GameID:          lg.game.ID,
		Code:            lg.game.Code,
		HostID:          lg.game.HostID,
		Standings:       Standings(final.Teams),
		QuestionsPlayed: final.QuestionsPlayed,
		PointDecay:      lg.game.Settings.PointDecay,
		StartedAt:       lg.game.CreatedAt,
		EndedAt:         now,
	}
	if err := s.results.Save(ctx, result); err != nil {
		// The game keeps running and the host can try again
		s.mu.Lock()
		lg.ending = false
		s.mu.Unlock()
		return nil, fmt.Errorf("failed to save result: %w", err)
	}

	s.mu.Lock()
	delete(s.games, lg.game.Code)
	s.mu.Unlock()

	lg.engine.Close()
	<-lg.done

	game := *lg.game
	game.Status = model.GameEnded
	game.EndedAt = &now
	if err := s.gameCache.SetMeta(ctx, &game); err != nil {
		log.Printf("Failed to update game %s: %v", game.Code, err)
	}
	if err := s.gameCache.SetSnapshot(ctx, game.Code, final); err != nil {
		log.Printf("Failed to cache final snapshot for %s: %v", game.Code, err)
	}
	if err := s.leaderboard.SetScores(ctx, game.Code, final.Teams); err != nil {
		log.Printf("Failed to update leaderboard for %s: %v", game.Code, err)
	}

	if s.broadcaster != nil {
		s.broadcaster.BroadcastToHosts(game.Code, MsgGameEnded, result)
		s.broadcaster.BroadcastToViewers(game.Code, MsgGameEnded, result)
		s.broadcaster.DisconnectGame(game.Code)
	}

	log.Printf("Game %s ended after %d questions", game.Code, result.QuestionsPlayed)
	return result, nil
}

func (s *GameService) Results(ctx context.Context, limit int) ([]*model.GameResult, error) {
	return s.results.List(ctx, limit)
}

// Result returns the stored result of an ended game
func (s *GameService) Result(ctx context.Context, code string) (*model.GameResult, error) {
	result, err := s.results.GetByCode(ctx, normalizeCode(code))
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	if result == nil {
		return nil, ErrGameNotFound
	}
	return result, nil
}

// Subscribe follows one game's events, used by the socket layer
func (s *GameService) Subscribe(code string) (<-chan engine.Event, func(), error) {
	lg := s.game(normalizeCode(code))
	if lg == nil {
		return nil, nil, ErrGameNotFound
	}
	events, cancel := lg.engine.Subscribe()
	return events, cancel, nil
}

// Close stops every engine without persisting results
func (s *GameService) Close() {
	s.mu.Lock()
	games := s.games
	s.games = make(map[string]*liveGame)
	s.mu.Unlock()

	for _, lg := range games {
		lg.engine.Close()
		<-lg.done
	}
}

func (s *GameService) game(code string) *liveGame {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.games[code]
}

func (s *GameService) hostGame(code, hostID string) (*liveGame, error) {
	lg := s.game(normalizeCode(code))
	if lg == nil {
		return nil, ErrGameNotFound
	}
	if lg.game.HostID != hostID {
		return nil, ErrNotGameHost
	}
	return lg, nil
}

// generateGameCode creates a 6-char alphanumeric code
func (s *GameService) generateGameCode(ctx context.Context) (string, error) {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	const codeLen = 6

	for attempts := 0; attempts < 10; attempts++ {
		b := make([]byte, codeLen)
		if _, err := rand.Read(b); err != nil {
			return "", err
		}

		code := make([]byte, codeLen)
		for i := range code {
			code[i] = chars[int(b[i])%len(chars)]
		}
		codeStr := string(code)

		// Check uniqueness
		if s.game(codeStr) != nil {
			continue
		}
		exists, err := s.gameCache.Exists(ctx, codeStr)
		if err != nil {
			return "", err
		}
		if !exists {
			return codeStr, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique game code")
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// teamNames fills blanks with "Team N" and makes names unique so they can key the leaderboard
func teamNames(count int, requested []string) []string {
	names := make([]string, count)
	seen := make(map[string]bool, count)
	for i := range names {
		name := ""
		if i < len(requested) {
			name = strings.TrimSpace(requested[i])
		}
		if name == "" {
			name = fmt.Sprintf("Team %d", i+1)
		}
		base := name
		for n := 2; seen[name]; n++ {
			name = fmt.Sprintf("%s (%d)", base, n)
		}
		seen[name] = true
		names[i] = name
	}
	return names
}

// Standings ranks teams by banked score; ties share a rank
func Standings(teams []model.Team) []model.TeamStanding {
	sorted := make([]model.Team, len(teams))
	copy(sorted, teams)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})

	out := make([]model.TeamStanding, len(sorted))
	for i, t := range sorted {
		rank := i + 1
		if i > 0 && t.Score == sorted[i-1].Score {
			rank = out[i-1].Rank
		}
		out[i] = model.TeamStanding{Rank: rank, Name: t.Name, Score: t.Score}
	}
	return out
}
