package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"path/filepath"
	"riskierwas/internal/model"
	"riskierwas/internal/repository"
	"strings"
	"sync"
)

var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrAnswerNotFound   = errors.New("answer not found")
	ErrTooManyAnswers   = errors.New("too many answers")
	ErrLibraryDisabled  = errors.New("question library is not available")
	ErrSetNotFound      = errors.New("question set not found")
	ErrInvalidPath      = errors.New("path must stay inside the data directory")
	ErrNameRequired     = errors.New("name is required")
)

// Editor defaults for new entries
const (
	DefaultQuestionText = "New question"
	DefaultAnswerText   = "Answer"
)

// DefaultBankFile is the bank file name inside the data directory
const DefaultBankFile = "questions.json"

// QuestionPatch updates a question; nil fields are left alone
type QuestionPatch struct {
	Text     *string `json:"text,omitempty"`
	Selected *bool   `json:"selected,omitempty"`
}

// AnswerPatch updates an answer; nil fields are left alone
type AnswerPatch struct {
	Text    *string `json:"text,omitempty"`
	Correct *bool   `json:"correct,omitempty"`
	Comment *string `json:"comment,omitempty"`
}

// BankInfo summarises the bank for the start screen
type BankInfo struct {
	Count    int    `json:"count"`
	Selected int    `json:"selected"`
	Source   string `json:"source,omitempty"`
}

// BankService owns the editable question bank that new games are started from
type BankService struct {
	mu         sync.RWMutex
	questions  []*model.Question
	source     string
	maxAnswers int

	dataDir     string
	defaultPath string // Used by Load and Save when no name is given
	files       repository.QuestionFile
	sets        repository.QuestionSetRepo // nil when the library is not configured
}

// NewBankService creates an empty bank. Files are read and written below dataDir.
func NewBankService(files repository.QuestionFile, sets repository.QuestionSetRepo, dataDir string, maxAnswers int) *BankService {
	if maxAnswers <= 0 {
		maxAnswers = model.MaxAnswersPerQuestion
	}
	return &BankService{
		questions:   []*model.Question{},
		maxAnswers:  maxAnswers,
		dataDir:     dataDir,
		defaultPath: filepath.Join(dataDir, DefaultBankFile),
		files:       files,
		sets:        sets,
	}
}

// Questions returns a deep copy of the bank
func (s *BankService) Questions() []*model.Question {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return model.CloneQuestions(s.questions)
}

func (s *BankService) Info() BankInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info := BankInfo{Count: len(s.questions), Source: s.source}
	for _, q := range s.questions {
		if q.Selected {
			info.Selected++
		}
	}
	return info
}

// Replace swaps the whole bank, e.g. after an import
func (s *BankService) Replace(questions []*model.Question, source string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.questions = model.CloneQuestions(questions)
	s.source = source
}

// AddQuestion appends a selected question with default text and returns its index
func (s *BankService) AddQuestion() (int, *model.Question) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := &model.Question{Text: DefaultQuestionText, Selected: true, Answers: []model.Answer{}}
	s.questions = append(s.questions, q)
	return len(s.questions) - 1, q.Clone()
}

func (s *BankService) UpdateQuestion(qi int, patch QuestionPatch) (*model.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.questionLocked(qi)
	if err != nil {
		return nil, err
	}
	if patch.Text != nil {
		q.Text = *patch.Text
	}
	if patch.Selected != nil {
		q.Selected = *patch.Selected
	}
	return q.Clone(), nil
}

func (s *BankService) RemoveQuestion(qi int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.questionLocked(qi); err != nil {
		return err
	}
	s.questions = append(s.questions[:qi], s.questions[qi+1:]...)
	return nil
}

// AddAnswer appends a wrong answer with default text and returns its index
func (s *BankService) AddAnswer(qi int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.questionLocked(qi)
	if err != nil {
		return -1, err
	}
	if len(q.Answers) >= s.maxAnswers {
		return -1, ErrTooManyAnswers
	}
	q.Answers = append(q.Answers, model.Answer{Text: DefaultAnswerText})
	return len(q.Answers) - 1, nil
}

func (s *BankService) UpdateAnswer(qi, ai int, patch AnswerPatch) (*model.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.questionLocked(qi)
	if err != nil {
		return nil, err
	}
	if ai < 0 || ai >= len(q.Answers) {
		return nil, ErrAnswerNotFound
	}

	a := &q.Answers[ai]
	if patch.Text != nil {
		a.Text = *patch.Text
	}
	if patch.Correct != nil {
		a.Correct = *patch.Correct
	}
	if patch.Comment != nil {
		a.Comment = *patch.Comment
	}
	out := *a
	return &out, nil
}

func (s *BankService) RemoveAnswer(qi, ai int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	q, err := s.questionLocked(qi)
	if err != nil {
		return err
	}
	if ai < 0 || ai >= len(q.Answers) {
		return ErrAnswerNotFound
	}
	q.Answers = append(q.Answers[:ai], q.Answers[ai+1:]...)
	return nil
}

// SelectRandom marks exactly min(n, count) randomly chosen questions as
// selected and deselects the rest. It returns the number selected.
func (s *BankService) SelectRandom(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n = max(0, min(n, len(s.questions)))

	order := make([]int, len(s.questions))
	for i := range order {
		order[i] = i
	}
	for i := len(order) - 1; i > 0; i-- {
		j := rand.IntN(i + 1)
		order[i], order[j] = order[j], order[i]
	}

	for _, q := range s.questions {
		q.Selected = false
	}
	for _, idx := range order[:n] {
		s.questions[idx].Selected = true
	}
	return n
}

// Load replaces the bank with a question file, the default bank when name is
// empty. On error the bank is unchanged.
func (s *BankService) Load(name string) (int, error) {
	path, err := s.pathFor(name)
	if err != nil {
		return 0, err
	}
	questions, err := s.files.Load(path)
	if err != nil {
		return 0, err
	}

	if strings.TrimSpace(name) == "" {
		name = filepath.Base(path)
	}
	s.Replace(questions, name)
	log.Printf("Loaded %d questions from %s", len(questions), path)
	return len(questions), nil
}

// LoadDefault loads the startup bank and remembers its path for later loads
// and saves. A missing or broken file leaves the bank empty.
func (s *BankService) LoadDefault(path string) {
	s.mu.Lock()
	s.defaultPath = path
	s.mu.Unlock()

	questions, err := s.files.Load(path)
	if err != nil {
		log.Printf("Warning: default question bank not loaded: %v", err)
		return
	}
	s.Replace(questions, filepath.Base(path))
	log.Printf("Loaded %d questions from %s", len(questions), path)
}

// DefaultPath is where Load and Save go without a name
func (s *BankService) DefaultPath() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultPath
}

// Save writes the bank to a file below the data directory, or to the default
// bank when name is empty
func (s *BankService) Save(name string) error {
	path, err := s.pathFor(name)
	if err != nil {
		return err
	}

	s.mu.RLock()
	questions := model.CloneQuestions(s.questions)
	s.mu.RUnlock()

	if err := s.files.Save(path, questions); err != nil {
		return err
	}
	log.Printf("Saved %d questions to %s", len(questions), path)
	return nil
}

// LibraryEnabled reports whether a question-set repository is configured
func (s *BankService) LibraryEnabled() bool {
	return s.sets != nil
}

// SaveToLibrary stores the current bank as a named set
func (s *BankService) SaveToLibrary(ctx context.Context, hostID, name string) (*model.QuestionSet, error) {
	if s.sets == nil {
		return nil, ErrLibraryDisabled
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameRequired
	}

	set := &model.QuestionSet{
		HostID:    hostID,
		Name:      name,
		Questions: s.Questions(),
	}
	if err := s.sets.Save(ctx, set); err != nil {
		return nil, fmt.Errorf("failed to save question set: %w", err)
	}
	return set, nil
}

func (s *BankService) ListLibrary(ctx context.Context) ([]*model.QuestionSetSummary, error) {
	if s.sets == nil {
		return nil, ErrLibraryDisabled
	}
	return s.sets.List(ctx)
}

// LoadFromLibrary replaces the bank with a stored set
func (s *BankService) LoadFromLibrary(ctx context.Context, id string) (int, error) {
	if s.sets == nil {
		return 0, ErrLibraryDisabled
	}
	set, err := s.sets.GetByID(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to get question set: %w", err)
	}
	if set == nil {
		return 0, ErrSetNotFound
	}

	s.Replace(set.Questions, set.Name)
	return len(set.Questions), nil
}

func (s *BankService) DeleteFromLibrary(ctx context.Context, id string) error {
	if s.sets == nil {
		return ErrLibraryDisabled
	}
	found, err := s.sets.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete question set: %w", err)
	}
	if !found {
		return ErrSetNotFound
	}
	return nil
}

func (s *BankService) questionLocked(qi int) (*model.Question, error) {
	if qi < 0 || qi >= len(s.questions) {
		return nil, ErrQuestionNotFound
	}
	return s.questions[qi], nil
}

func (s *BankService) pathFor(name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return s.DefaultPath(), nil
	}
	return s.resolve(name)
}

// resolve maps a client supplied file name into the data directory
func (s *BankService) resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || filepath.IsAbs(name) {
		return "", ErrInvalidPath
	}
	clean := filepath.Clean(name)
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	if filepath.Ext(clean) == "" {
		clean += ".json"
	}
	return filepath.Join(s.dataDir, clean), nil
}
