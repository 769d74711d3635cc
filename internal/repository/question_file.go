package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"riskierwas/internal/model"
)

// QuestionFile reads and writes question banks as JSON files. Property names
// are matched case-insensitively on load; Selected defaults to true.
type QuestionFile interface {
	Load(path string) ([]*model.Question, error)
	Save(path string, questions []*model.Question) error
}

type questionFile struct{}

// NewQuestionFile creates a JSON question file store
func NewQuestionFile() QuestionFile {
	return questionFile{}
}

func (questionFile) Load(path string) ([]*model.Question, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read question file: %w", err)
	}

	var questions []*model.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, fmt.Errorf("failed to parse question file: %w", err)
	}

	// A literal null entry is not a question
	out := questions[:0]
	for _, q := range questions {
		if q != nil {
			out = append(out, q)
		}
	}
	if out == nil {
		out = []*model.Question{}
	}
	return out, nil
}

// Save writes the bank atomically (temp file, then rename)
func (questionFile) Save(path string, questions []*model.Question) error {
	if questions == nil {
		questions = []*model.Question{}
	}
	data, err := json.MarshalIndent(questions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	tempPath := path + ".tmp"
	file, err := os.OpenFile(tempPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(tempPath)
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	file.Close()

	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}

// ResolveDataPath looks for a relative path in the working directory first and
// falls back to the directory of the running executable.
func ResolveDataPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	exe, err := os.Executable()
	if err != nil {
		return path
	}
	return filepath.Join(filepath.Dir(exe), path)
}
