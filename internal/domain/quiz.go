package domain

import "time"

// SessionStatus is the state of a quiz round. Creation implies Open.
type SessionStatus string

const (
	SessionOpen     SessionStatus = "open"
	SessionFinished SessionStatus = "finished"
)

const (
	FinishReasonFinished   = "finished"
	FinishReasonSuperseded = "superseded"
)

// Question is one multiple-choice prompt in a round. Prompt and Options are
// a snapshot taken when the round started.
type Question struct {
	ID       string
	EntryID  string
	Prompt   string
	Options  []string
	Answered bool
	Selected string
	Correct  bool
}

// QuizSession is one bounded round of questions.
type QuizSession struct {
	ID           string
	ClientID     string
	Status       SessionStatus
	Position     int
	Questions    []Question
	StartedAt    time.Time
	FinishedAt   *time.Time
	FinishReason string
}

// Current returns the question at the current position, or nil when every
// question has been answered.
func (s *QuizSession) Current() *Question {
	if s.Position < 0 || s.Position >= len(s.Questions) {
		return nil
	}
	return &s.Questions[s.Position]
}

// Done reports whether the position has reached the end of the round.
func (s *QuizSession) Done() bool {
	return s.Position >= len(s.Questions)
}

// Tally counts answered and correct questions.
func (s *QuizSession) Tally() (answered, correct int) {
	for _, q := range s.Questions {
		if !q.Answered {
			continue
		}
		answered++
		if q.Correct {
			correct++
		}
	}
	return answered, correct
}
