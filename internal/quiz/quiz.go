package quiz

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/conorfennell/vocabquiz/internal/accuracy"
	"github.com/conorfennell/vocabquiz/internal/domain"
	"github.com/conorfennell/vocabquiz/internal/reward"
	"github.com/conorfennell/vocabquiz/internal/storage"
	"github.com/google/uuid"
)

// DefaultClient is used when a caller does not identify itself.
const DefaultClient = "local"

const (
	FallbackAll  = "all"
	FallbackNone = "none"
)

// Config holds the round-building parameters.
type Config struct {
	WeakThreshold float64 // entries below this accuracy are weak
	MinAttempts   int     // entries with fewer answers are weak regardless of accuracy
	MaxQuestions  int
	Options       int    // options per question, including the correct one
	Fallback      string // FallbackAll or FallbackNone when nothing is weak
}

// DefaultConfig treats words below 70% or with fewer than three answers as
// weak, with at most ten words per round.
func DefaultConfig() Config {
	return Config{
		WeakThreshold: 70,
		MinAttempts:   3,
		MaxQuestions:  10,
		Options:       4,
		Fallback:      FallbackAll,
	}
}

// Service runs quiz rounds against the vocabulary store.
type Service struct {
	db     *storage.DB
	policy *reward.Policy
	cfg    Config

	mu   sync.Mutex
	rand *rand.Rand
}

// NewService creates a quiz service.
func NewService(db *storage.DB, policy *reward.Policy, cfg Config) *Service {
	return &Service{
		db:     db,
		policy: policy,
		cfg:    cfg,
		rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// StartResult is the new round plus the ids of open rounds it replaced.
type StartResult struct {
	Session    *domain.QuizSession
	Superseded []string
}

// Start builds a new round for a client. Any round the client still has
// open is finished with reason "superseded" in the same transaction.
func (s *Service) Start(ctx context.Context, clientID string) (*StartResult, error) {
	if clientID == "" {
		clientID = DefaultClient
	}

	res := &StartResult{}
	err := s.db.Update(ctx, func(tx *storage.Tx) error {
		entries, err := tx.Entries(ctx)
		if err != nil {
			return err
		}
		pool := quizzable(entries)
		if len(pool) < 2 {
			return domain.InsufficientVocabulary("a quiz needs at least 2 translated entries, found %d", len(pool))
		}

		selected := s.selectEntries(pool)
		if len(selected) == 0 {
			return domain.InsufficientVocabulary("no weak entries to review")
		}

		now := time.Now().UTC()
		session := &domain.QuizSession{
			ID:        uuid.NewString(),
			ClientID:  clientID,
			Status:    domain.SessionOpen,
			StartedAt: now,
		}
		for _, e := range selected {
			session.Questions = append(session.Questions, s.buildQuestion(e, pool))
		}

		open, err := tx.OpenSessionIDs(ctx, clientID)
		if err != nil {
			return err
		}
		for _, id := range open {
			slog.Info("Superseding open quiz session", "session_id", id, "client_id", clientID)
			if err := tx.FinishSession(ctx, id, domain.FinishReasonSuperseded, now); err != nil {
				return err
			}
		}

		if err := tx.InsertSession(ctx, session); err != nil {
			return err
		}
		res.Session = session
		res.Superseded = open
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Quiz round started",
		"session_id", res.Session.ID,
		"client_id", clientID,
		"questions", len(res.Session.Questions),
		"superseded", len(res.Superseded),
	)
	return res, nil
}

func quizzable(entries []domain.VocabularyEntry) []domain.VocabularyEntry {
	var out []domain.VocabularyEntry
	for _, e := range entries {
		if e.Quizzable() {
			out = append(out, e)
		}
	}
	return out
}

func (s *Service) isWeak(e domain.VocabularyEntry) bool {
	return len(e.History) < s.cfg.MinAttempts || accuracy.Of(e.History) < s.cfg.WeakThreshold
}

// selectEntries picks the weakest entries first, falling back to the whole
// pool when configured and nothing is weak.
func (s *Service) selectEntries(pool []domain.VocabularyEntry) []domain.VocabularyEntry {
	var selected []domain.VocabularyEntry
	for _, e := range pool {
		if s.isWeak(e) {
			selected = append(selected, e)
		}
	}
	if len(selected) == 0 && s.cfg.Fallback == FallbackAll {
		selected = append(selected, pool...)
	}

	sort.SliceStable(selected, func(i, j int) bool {
		ai, aj := accuracy.Of(selected[i].History), accuracy.Of(selected[j].History)
		if ai != aj {
			return ai < aj
		}
		return len(selected[i].History) < len(selected[j].History)
	})

	if s.cfg.MaxQuestions > 0 && len(selected) > s.cfg.MaxQuestions {
		selected = selected[:s.cfg.MaxQuestions]
	}
	return selected
}

// buildQuestion pairs the entry's translation with distractors sampled
// without replacement from the distinct translations of other entries.
func (s *Service) buildQuestion(e domain.VocabularyEntry, pool []domain.VocabularyEntry) domain.Question {
	own := strings.TrimSpace(e.Translation)
	seen := map[string]bool{own: true}

	var candidates []string
	for _, other := range pool {
		if other.ID == e.ID {
			continue
		}
		t := strings.TrimSpace(other.Translation)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		candidates = append(candidates, t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.rand.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	n := min(max(s.cfg.Options-1, 0), len(candidates))

	options := make([]string, 0, n+1)
	options = append(options, own)
	options = append(options, candidates[:n]...)
	s.rand.Shuffle(len(options), func(i, j int) {
		options[i], options[j] = options[j], options[i]
	})

	return domain.Question{
		ID:      uuid.NewString(),
		EntryID: e.ID,
		Prompt:  e.SourceWord,
		Options: options,
	}
}

// Matches compares a selected option with a translation. Both sides are
// trimmed; the comparison is otherwise exact and case-sensitive.
func Matches(selected, translation string) bool {
	t := strings.TrimSpace(translation)
	return t != "" && strings.TrimSpace(selected) == t
}

// AnswerRequest identifies the question by QuestionID or by EntryID.
type AnswerRequest struct {
	SessionID      string
	QuestionID     string
	EntryID        string
	SelectedOption string
}

// AnswerResult reports the effect of an answer.
type AnswerResult struct {
	QuestionID string
	Correct    bool
	Accuracy   float64
	CardChange domain.CardChange
	Card       *domain.RewardCard
	Position   int
	Done       bool
}

// Answer records the answer to the current question of an open round. The
// answer, accuracy update, card change and position advance commit
// together; any failure leaves them all untouched. A question whose entry
// was deleted is skipped: the round advances and NotFound is returned.
func (s *Service) Answer(ctx context.Context, req AnswerRequest) (*AnswerResult, error) {
	if req.SessionID == "" {
		return nil, domain.Validation("session_id is required")
	}
	if req.QuestionID == "" && req.EntryID == "" {
		return nil, domain.Validation("question_id or entry_id is required")
	}

	var (
		res     *AnswerResult
		removed *domain.Question
	)
	err := s.db.Update(ctx, func(tx *storage.Tx) error {
		session, err := tx.Session(ctx, req.SessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return domain.NotFound("quiz session %s not found", req.SessionID)
		}
		if session.Status != domain.SessionOpen {
			return domain.InvalidState("quiz session %s is finished", session.ID)
		}

		current, err := currentQuestion(session, req)
		if err != nil {
			return err
		}

		entry, err := tx.Entry(ctx, current.EntryID)
		if err != nil {
			return err
		}
		if entry == nil {
			if err := tx.RecordQuestion(ctx, session.ID, session.Position, "", false); err != nil {
				return err
			}
			removed = current
			return nil
		}

		correct := Matches(req.SelectedOption, entry.Translation)
		out, err := s.policy.Apply(ctx, tx, entry.ID, session.ID, correct)
		if err != nil {
			return err
		}
		if err := tx.RecordQuestion(ctx, session.ID, session.Position, strings.TrimSpace(req.SelectedOption), correct); err != nil {
			return err
		}
		session.Position++

		res = &AnswerResult{
			QuestionID: current.ID,
			Correct:    correct,
			Accuracy:   out.Accuracy,
			CardChange: out.Change,
			Card:       out.Card,
			Position:   session.Position,
			Done:       session.Done(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if removed != nil {
		slog.Info("Skipped question of deleted entry", "session_id", req.SessionID, "question_id", removed.ID, "entry_id", removed.EntryID)
		return nil, domain.NotFound("vocabulary entry %s was deleted", removed.EntryID)
	}

	if res.CardChange != domain.NoChange {
		slog.Info("Reward card changed", "session_id", req.SessionID, "question_id", res.QuestionID, "change", res.CardChange, "accuracy", res.Accuracy)
	}
	return res, nil
}

// currentQuestion resolves the referenced question and checks that it is
// the unanswered question at the session's position.
func currentQuestion(session *domain.QuizSession, req AnswerRequest) (*domain.Question, error) {
	refers := func(q *domain.Question) bool {
		if req.QuestionID != "" && q.ID != req.QuestionID {
			return false
		}
		if req.EntryID != "" && q.EntryID != req.EntryID {
			return false
		}
		return true
	}

	current := session.Current()
	if current != nil && refers(current) {
		return current, nil
	}

	for i := range session.Questions {
		q := &session.Questions[i]
		if refers(q) && q.Answered {
			return nil, domain.InvalidQuestion("question %s was already answered", q.ID)
		}
		if refers(q) {
			return nil, domain.InvalidQuestion("question %s is not the current question", q.ID)
		}
	}
	if current == nil {
		return nil, domain.InvalidQuestion("every question of session %s has been answered", session.ID)
	}
	return nil, domain.InvalidQuestion("session %s has no such question", session.ID)
}

// Finish closes a round. Finishing a finished round succeeds without
// changing it.
func (s *Service) Finish(ctx context.Context, sessionID string) (*domain.QuizSession, error) {
	if sessionID == "" {
		return nil, domain.Validation("session_id is required")
	}

	err := s.db.Update(ctx, func(tx *storage.Tx) error {
		session, err := tx.Session(ctx, sessionID)
		if err != nil {
			return err
		}
		if session == nil {
			return domain.NotFound("quiz session %s not found", sessionID)
		}
		if session.Status == domain.SessionFinished {
			return nil
		}
		return tx.FinishSession(ctx, session.ID, domain.FinishReasonFinished, time.Now().UTC())
	})
	if err != nil {
		return nil, err
	}

	session, err := s.Session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	answered, correct := session.Tally()
	slog.Info("Quiz round finished", "session_id", session.ID, "answered", answered, "correct", correct, "questions", len(session.Questions))
	return session, nil
}

// Session returns a round by id.
func (s *Service) Session(ctx context.Context, id string) (*domain.QuizSession, error) {
	session, err := s.db.FindSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.NotFound("quiz session %s not found", id)
	}
	return session, nil
}

// Next returns the most recent round of a client.
func (s *Service) Next(ctx context.Context, clientID string) (*domain.QuizSession, error) {
	if clientID == "" {
		clientID = DefaultClient
	}
	session, err := s.db.LatestSession(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.NotFound("no quiz session started for client %s", clientID)
	}
	return session, nil
}
