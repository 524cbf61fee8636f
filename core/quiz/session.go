package quiz

import (
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/catalog"
)

// Unanswered marks a question without a selected option.
const Unanswered = -1

// ErrSessionClosed is returned when acting on a submitted or abandoned session.
var ErrSessionClosed = errors.New("quiz session is closed")

type State int

const (
	NotStarted State = iota
	InProgress
	Submitted
	Abandoned
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case InProgress:
		return "in progress"
	case Submitted:
		return "submitted"
	case Abandoned:
		return "abandoned"
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// Session is one attempt at a course quiz. It is safe for concurrent use: the countdown ticks
// on its own goroutine.
type Session struct {
	mu sync.Mutex

	id           string
	userID       string
	course       catalog.Course
	quiz         catalog.Quiz
	passingScore int

	answers   []int
	current   int
	startedAt time.Time
	remaining time.Duration
	state     State
	outcome   *Outcome
}

func newSession(id, userID string, course catalog.Course, timeLimit time.Duration, passingScore int) *Session {
	answers := make([]int, len(course.Quiz.Questions))
	for i := range answers {
		answers[i] = Unanswered
	}
	return &Session{
		id:           id,
		userID:       userID,
		course:       course,
		quiz:         *course.Quiz,
		passingScore: passingScore,
		answers:      answers,
		startedAt:    core.NowFunc(),
		remaining:    timeLimit,
		state:        InProgress,
	}
}

func (s *Session) ID() string       { return s.id }
func (s *Session) UserID() string   { return s.userID }
func (s *Session) CourseID() string { return s.course.ID }
func (s *Session) Quiz() catalog.Quiz {
	return s.quiz
}
func (s *Session) PassingScore() int { return s.passingScore }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Current returns the index of the displayed question.
func (s *Session) Current() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Question returns the displayed question.
func (s *Session) Question() catalog.Question {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quiz.Questions[s.current]
}

// Answers returns a copy of the selected options, Unanswered where none was chosen.
func (s *Session) Answers() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.answers...)
}

func (s *Session) Remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining
}

// SelectAnswer records option for the question at index. Earlier choices may be changed until submission.
func (s *Session) SelectAnswer(question, option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != InProgress {
		return ErrSessionClosed
	}
	if question < 0 || question >= len(s.quiz.Questions) {
		return core.NewFieldError("question", "no question "+strconv.Itoa(question+1))
	}
	if option < 0 || option >= len(s.quiz.Questions[question].Options) {
		return core.NewFieldError("option", "no option "+strconv.Itoa(option+1)+" for question "+strconv.Itoa(question+1))
	}
	s.answers[question] = option
	return nil
}

// Advance moves to the next question, staying on the last one.
func (s *Session) Advance() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current < len(s.quiz.Questions)-1 {
		s.current++
	}
	return s.current
}

// Retreat moves to the previous question, staying on the first one.
func (s *Session) Retreat() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current > 0 {
		s.current--
	}
	return s.current
}

// IsLast reports whether the displayed question is the last one.
func (s *Session) IsLast() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current == len(s.quiz.Questions)-1
}
