package repository

import (
	"os"
	"path/filepath"
	"riskierwas/internal/model"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuestionFileRoundTrip(t *testing.T) {
	store := NewQuestionFile()
	path := filepath.Join(t.TempDir(), "nested", "bank.json")

	in := []*model.Question{
		{Text: "Capitals", Selected: true, Answers: []model.Answer{
			{Text: "Paris", Correct: true, Comment: "France"},
			{Text: "Sydney"},
		}},
		{Text: "Skipped", Selected: false, Answers: []model.Answer{}},
	}
	require.NoError(t, store.Save(path, in))

	_, err := os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file is renamed away")

	out, err := store.Load(path)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestQuestionFileLoadIsLenient(t *testing.T) {
	path := filepath.Join(t.TempDir(), "questions.json")
	body := `[
	  {"TEXT": "No flag", "Answers": [{"Text": "yes", "CORRECT": true}]},
	  {"text": "Off", "selected": false},
	  null
	]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	out, err := NewQuestionFile().Load(path)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "No flag", out[0].Text)
	assert.True(t, out[0].Selected, "missing selected defaults to true")
	assert.True(t, out[0].Answers[0].Correct)

	assert.False(t, out[1].Selected)
	assert.NotNil(t, out[1].Answers)
	assert.Empty(t, out[1].Answers)
}

func TestQuestionFileErrors(t *testing.T) {
	dir := t.TempDir()
	store := NewQuestionFile()

	_, err := store.Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"text": "not a list"}`), 0o644))
	_, err = store.Load(bad)
	assert.Error(t, err)
}

func TestQuestionFileSaveEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, NewQuestionFile().Save(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestResolveDataPath(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "q.json")
	assert.Equal(t, abs, ResolveDataPath(abs))

	resolved := ResolveDataPath(filepath.Join("does-not-exist", "q.json"))
	assert.True(t, filepath.IsAbs(resolved))
}
