package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"riskierwas/internal/cache"
	"riskierwas/internal/config"
	"riskierwas/internal/engine"
	"riskierwas/internal/model"
	"riskierwas/internal/repository"
	"riskierwas/internal/service"
	"riskierwas/internal/transport/rest/handler"
	"riskierwas/internal/transport/ws"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	router  http.Handler
	bank    *service.BankService
	games   *service.GameService
	dataDir string
	token   string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	db, err := repository.OpenSQLite(filepath.Join(t.TempDir(), "results.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	results, err := repository.NewSQLiteResultRepo(db)
	require.NoError(t, err)

	dataDir := t.TempDir()
	bank := service.NewBankService(repository.NewQuestionFile(), nil, dataDir, 3)
	bank.Replace([]*model.Question{{Text: "Primes", Selected: true, Answers: []model.Answer{
		{Text: "2", Correct: true}, {Text: "4"},
	}}}, "test")

	hub := ws.NewHub()
	t.Cleanup(hub.Close)
	auth := service.NewAuthService("admin", "pw", "secret")
	games := service.NewGameService(bank, config.DefaultGameConfig(), cache.NewGameCache(rdb), cache.NewLeaderboardCache(rdb), results, "http://quiz.local")
	games.SetBroadcaster(hub)
	t.Cleanup(games.Close)

	login, err := auth.Login("admin", "pw")
	require.NoError(t, err)

	return &apiFixture{
		router: NewRouter(&Container{
			AuthService: auth,
			BankService: bank,
			GameService: games,
			WSHub:       hub,
			CORSOrigins: "http://quiz.local",
		}),
		bank:    bank,
		games:   games,
		dataDir: dataDir,
		token:   login.Token,
	}
}

func (f *apiFixture) do(t *testing.T, method, path string, body interface{}, auth bool) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if auth {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealthAndCORS(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/health", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "http://quiz.local", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = f.do(t, http.MethodOptions, "/v1/games", nil, false)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLogin(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/auth/login", model.LoginRequest{Username: "admin", Password: "pw"}, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode[model.LoginResponse](t, rec).Token)

	rec = f.do(t, http.MethodPost, "/v1/auth/login", model.LoginRequest{Username: "admin", Password: "nope"}, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHostRoutesRequireToken(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/bank/questions", nil, false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	f.token = "garbage"
	rec = f.do(t, http.MethodPost, "/v1/games", model.GameSettings{}, true)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBankEditing(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/bank/questions", nil, true)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodPut, "/v1/bank/questions/1", map[string]interface{}{"text": "Capitals", "selected": false}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	q := decode[model.Question](t, rec)
	assert.Equal(t, "Capitals", q.Text)
	assert.False(t, q.Selected)

	rec = f.do(t, http.MethodPost, "/v1/bank/questions/1/answers", nil, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 0, decode[map[string]int](t, rec)["index"])

	rec = f.do(t, http.MethodPut, "/v1/bank/questions/1/answers/0", map[string]interface{}{"text": "Paris", "correct": true}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.Answer{Text: "Paris", Correct: true}, decode[model.Answer](t, rec))

	rec = f.do(t, http.MethodGet, "/v1/bank/questions", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	bank := decode[handler.BankResponse](t, rec)
	assert.Equal(t, 2, bank.Count)
	assert.Equal(t, 1, bank.Selected)
	require.Len(t, bank.Questions, 2)
	assert.Equal(t, "Paris", bank.Questions[1].Answers[0].Text)

	rec = f.do(t, http.MethodDelete, "/v1/bank/questions/1/answers/0", nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodDelete, "/v1/bank/questions/1", nil, true)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Len(t, f.bank.Questions(), 1)
}

func TestBankErrors(t *testing.T) {
	f := newAPIFixture(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
	}{
		{"unknown question", http.MethodPut, "/v1/bank/questions/9", map[string]string{"text": "x"}, http.StatusNotFound},
		{"unknown answer", http.MethodDelete, "/v1/bank/questions/0/answers/5", nil, http.StatusNotFound},
		{"bad body", http.MethodPut, "/v1/bank/questions/0", "not an object", http.StatusBadRequest},
		{"negative count", http.MethodPost, "/v1/bank/select-random", map[string]int{"count": -1}, http.StatusBadRequest},
		{"escaping path", http.MethodPost, "/v1/bank/load", map[string]string{"path": "../secrets.json"}, http.StatusBadRequest},
		{"missing file", http.MethodPost, "/v1/bank/load", map[string]string{"path": "nope.json"}, http.StatusNotFound},
		{"missing default bank", http.MethodPost, "/v1/bank/load", nil, http.StatusNotFound},
		{"library disabled", http.MethodGet, "/v1/library", nil, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, tt.method, tt.path, tt.body, true)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	// Answer limit is 3
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/v1/bank/questions/0/answers", nil, true).Code)
	rec := f.do(t, http.MethodPost, "/v1/bank/questions/0/answers", nil, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBankFiles(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/bank/save", map[string]string{"path": "round1"}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	_, err := os.Stat(filepath.Join(f.dataDir, "round1.json"))
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(f.dataDir, "broken.json"), []byte("{nope"), 0644))
	rec = f.do(t, http.MethodPost, "/v1/bank/load", map[string]string{"path": "broken.json"}, true)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "Primes", f.bank.Questions()[0].Text)

	f.bank.AddQuestion()
	rec = f.do(t, http.MethodPost, "/v1/bank/load", map[string]string{"path": "round1.json"}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[handler.BankResponse](t, rec).Count)

	rec = f.do(t, http.MethodPost, "/v1/bank/select-random", map[string]int{"count": 5}, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[handler.BankResponse](t, rec).Selected)
}

func TestBankDefaultFile(t *testing.T) {
	f := newAPIFixture(t)
	defaultPath := filepath.Join(f.dataDir, service.DefaultBankFile)

	rec := f.do(t, http.MethodPost, "/v1/bank/save", map[string]string{"path": " "}, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, defaultPath, decode[map[string]string](t, rec)["path"])
	_, err := os.Stat(defaultPath)
	require.NoError(t, err)

	f.bank.AddQuestion()
	require.Len(t, f.bank.Questions(), 2)

	// No body at all loads the default bank too
	rec = f.do(t, http.MethodPost, "/v1/bank/load", nil, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 1, decode[handler.BankResponse](t, rec).Count)
	assert.Equal(t, "Primes", f.bank.Questions()[0].Text)
}

func TestGameFlow(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/games", model.GameSettings{TeamCount: 2, TeamNames: []string{"Foxes", "Owls"}}, true)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[handler.CreateGameResponse](t, rec)
	code := created.Game.Code
	assert.Equal(t, "http://quiz.local/v1/games/"+code, created.JoinURL)
	assert.Equal(t, engine.PhaseQuestionActive, created.Snapshot.Phase)

	correct := -1
	for _, a := range created.Snapshot.Question.Answers {
		if a.Text == "2" {
			correct = a.Index
		}
	}
	require.NotEqual(t, -1, correct)

	rec = f.do(t, http.MethodPost, "/v1/games/"+code+"/reveal/"+itoa(correct), nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	cmd := decode[handler.CommandResponse](t, rec)
	assert.True(t, cmd.Applied)
	assert.Equal(t, 50, cmd.Snapshot.Teams[0].PendingScore)

	// Second reveal changes nothing
	rec = f.do(t, http.MethodPost, "/v1/games/"+code+"/reveal/"+itoa(correct), nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[handler.CommandResponse](t, rec).Applied)

	rec = f.do(t, http.MethodPost, "/v1/games/"+code+"/pass", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, decode[handler.CommandResponse](t, rec).Snapshot.Teams[0].Score)

	for _, path := range []string{"/decay/pause", "/decay/resume", "/advance"} {
		rec = f.do(t, http.MethodPost, "/v1/games/"+code+path, nil, true)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	rec = f.do(t, http.MethodGet, "/v1/games/"+code+"/host", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotNil(t, decode[engine.Snapshot](t, rec).CanInvoke)

	rec = f.do(t, http.MethodGet, "/v1/games/"+code, nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, decode[engine.Snapshot](t, rec).CanInvoke)

	rec = f.do(t, http.MethodGet, "/v1/games/"+code+"/qr?size=128", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("\x89PNG")))

	rec = f.do(t, http.MethodPost, "/v1/games/"+code+"/end", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decode[model.GameResult](t, rec)
	assert.Equal(t, []model.TeamStanding{{Rank: 1, Name: "Foxes", Score: 50}, {Rank: 2, Name: "Owls", Score: 0}}, result.Standings)

	rec = f.do(t, http.MethodGet, "/v1/games/"+code+"/leaderboard", nil, false)
	require.Equal(t, http.StatusOK, rec.Code)
	board := decode[[]cache.LeaderboardEntry](t, rec)
	require.Len(t, board, 2)
	assert.Equal(t, "Foxes", board[0].Team)

	rec = f.do(t, http.MethodGet, "/v1/results", nil, true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]model.GameResult](t, rec), 1)

	rec = f.do(t, http.MethodGet, "/v1/results/"+code, nil, true)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/games/"+code+"/pass", nil, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGameErrors(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/games/NOPE22", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/games/NOPE22/qr", nil, false)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Unknown forfeit rules fall back to the configured one
	rec = f.do(t, http.MethodPost, "/v1/games", model.GameSettings{TeamCount: 9, ForfeitRule: "everything"}, true)
	require.Equal(t, http.StatusCreated, rec.Code)
	game := decode[handler.CreateGameResponse](t, rec).Game
	assert.Equal(t, "pending", game.Settings.ForfeitRule)
	assert.Equal(t, 4, game.Settings.TeamCount)

	other := service.NewAuthService("admin", "pw", "secret")
	login, err := other.Login("admin", "pw")
	require.NoError(t, err)
	f.token = login.Token
	rec = f.do(t, http.MethodPost, "/v1/games/"+game.Code+"/pass", nil, true)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	f.bank.Replace(nil, "")
	rec = f.do(t, http.MethodPost, "/v1/games", model.GameSettings{TeamCount: 2}, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func itoa(n int) string {
	b, _ := json.Marshal(n)
	return string(b)
}
