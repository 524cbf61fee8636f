// Package quiz runs timed quiz attempts and records their outcome.
package quiz

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kat-co/vala"
	"github.com/pkg/errors"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/catalog"
	"github.com/trezcool/lms/core/certificate"
	"github.com/trezcool/lms/core/enrollment"
	"github.com/trezcool/lms/core/user"
)

// Countdown calls tick every interval for a registered session until it is unregistered.
// Unregister may be called from within tick and must not wait for a running tick.
type Countdown interface {
	Register(id string, every time.Duration, tick func()) error
	Unregister(id string)
}

// Outcome is the result of a submitted session. Certificate is set when the submission minted one.
type Outcome struct {
	Result      user.QuizResult
	Certificate *user.Certificate
}

type Options struct {
	DefaultPassingScore int
	DefaultTimeLimit    time.Duration
	TickInterval        time.Duration
	// DedupCertificates issues at most one certificate per course instead of one per passing submission.
	DedupCertificates bool
}

func OptionsFromConfig(conf *core.Config) Options {
	return Options{
		DefaultPassingScore: conf.Quiz.DefaultPassingScore,
		DefaultTimeLimit:    conf.Quiz.DefaultTimeLimit,
		TickInterval:        conf.Quiz.TickInterval,
		DedupCertificates:   conf.Quiz.DedupCertificates,
	}
}

type Engine struct {
	users     *user.Service
	catalog   catalog.Catalog
	countdown Countdown // optional
	opts      Options
	log       core.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewEngine returns a quiz engine. countdown may be nil, sessions then only expire through Tick.
func NewEngine(users *user.Service, cat catalog.Catalog, countdown Countdown, opts Options, log core.Logger) *Engine {
	vala.BeginValidation().Validate(
		vala.IsNotNil(users, "users"),
		vala.IsNotNil(cat, "cat"),
		vala.IsNotNil(log, "log"),
	).CheckAndPanic()

	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}
	return &Engine{
		users:     users,
		catalog:   cat,
		countdown: countdown,
		opts:      opts,
		log:       log,
		sessions:  make(map[string]*Session),
	}
}

// Begin starts a quiz attempt. The user must be enrolled and done with every lesson of the course.
func (e *Engine) Begin(userID, courseID string) (*Session, error) {
	usr, err := e.users.Get(userID)
	if err != nil {
		return nil, err
	}
	rec, ok := usr.Progress[courseID]
	if !ok {
		return nil, core.NewError(core.ErrNotEnrolled, "not enrolled in course "+courseID)
	}
	course, ok := e.catalog.GetCourse(courseID)
	if !ok {
		return nil, core.NewError(core.ErrNotFound, "course "+courseID+" not found")
	}
	if !course.HasQuiz() {
		return nil, core.NewError(core.ErrNotFound, "course "+course.Title+" has no quiz")
	}
	if !rec.AllLessonsDone() {
		return nil, core.NewError(core.ErrLessonsIncomplete, "complete every lesson of "+course.Title+" before taking the quiz")
	}

	sess := newSession(uuid.NewString(), userID, course,
		course.Quiz.TimeLimit(e.opts.DefaultTimeLimit), course.Quiz.Passing(e.opts.DefaultPassingScore))

	e.mu.Lock()
	e.sessions[sess.id] = sess
	e.mu.Unlock()

	if e.countdown != nil {
		err := e.countdown.Register(sess.id, e.opts.TickInterval, func() {
			if _, _, err := e.Tick(sess); err != nil {
				e.log.Error("auto-submitting quiz", "user", userID, "course", courseID, "err", err)
			}
		})
		if err != nil {
			e.forget(sess)
			return nil, errors.Wrap(err, "starting quiz countdown")
		}
	}
	e.log.Debug("quiz started", "user", userID, "course", courseID, "session", sess.id)
	return sess, nil
}

// Session returns a running session by id.
func (e *Engine) Session(id string) (*Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, ok := e.sessions[id]
	return sess, ok
}

// Submit scores the session and records the result. Submitting again returns the recorded outcome.
func (e *Engine) Submit(sess *Session) (Outcome, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return e.submit(sess, false)
}

// Tick runs the countdown down by one tick interval and auto-submits when time is up.
// It reports whether this tick submitted the session.
func (e *Engine) Tick(sess *Session) (Outcome, bool, error) {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.state != InProgress {
		return Outcome{}, false, nil
	}
	sess.remaining -= e.opts.TickInterval
	if sess.remaining > 0 {
		return Outcome{}, false, nil
	}
	sess.remaining = 0
	out, err := e.submit(sess, true)
	return out, true, err
}

// Abandon drops the session without recording anything.
func (e *Engine) Abandon(sess *Session) {
	sess.mu.Lock()
	if sess.state == InProgress {
		sess.state = Abandoned
	}
	sess.mu.Unlock()
	e.forget(sess)
}

func (e *Engine) forget(sess *Session) {
	if e.countdown != nil {
		e.countdown.Unregister(sess.id)
	}
	e.mu.Lock()
	delete(e.sessions, sess.id)
	e.mu.Unlock()
}

// submit requires sess.mu to be held.
func (e *Engine) submit(sess *Session, auto bool) (Outcome, error) {
	switch sess.state {
	case Submitted:
		return *sess.outcome, nil
	case InProgress:
	default:
		return Outcome{}, ErrSessionClosed
	}

	now := core.NowFunc()
	res := score(sess, now)
	res.AutoSubmitted = auto
	out := Outcome{Result: res}

	// the certificate copies the course as currently listed
	course, ok := e.catalog.GetCourse(sess.course.ID)
	if !ok {
		course = sess.course
	}
	_, err := e.users.Mutate(sess.userID, func(usr *user.User) error {
		usr.QuizResults[res.CourseID] = res
		if !res.Passed {
			return nil
		}
		enrollment.MarkCompleted(usr, res.CourseID, now)
		if e.opts.DedupCertificates && certificate.Has(*usr, res.CourseID) {
			return nil
		}
		cert := certificate.New(*usr, course, res.Score, now)
		usr.Certificates = append(usr.Certificates, cert)
		out.Certificate = &cert
		return nil
	})
	if err != nil && !core.IsStorageFailure(err) {
		// the result has nowhere to go; stop the countdown
		sess.state = Abandoned
		e.forget(sess)
		e.log.Warn("quiz closed without a result", "user", sess.userID, "course", res.CourseID, "err", err)
		return Outcome{}, err
	}

	sess.state = Submitted
	sess.outcome = &out
	e.forget(sess)
	e.log.Info("quiz submitted", "user", sess.userID, "course", res.CourseID, "score", res.Score, "passed", res.Passed, "auto", auto)
	return out, err
}

func score(sess *Session, now time.Time) user.QuizResult {
	questions := sess.quiz.Questions
	breakdown := make([]user.AnswerBreakdown, 0, len(questions))
	var correct int
	for i, q := range questions {
		ok := sess.answers[i] == q.CorrectOptionIndex
		if ok {
			correct++
		}
		breakdown = append(breakdown, user.AnswerBreakdown{
			QuestionIndex: i,
			Chosen:        sess.answers[i],
			Correct:       q.CorrectOptionIndex,
			IsCorrect:     ok,
		})
	}

	var pct int
	if len(questions) > 0 {
		pct = int(math.Round(100 * float64(correct) / float64(len(questions))))
	}
	return user.QuizResult{
		CourseID:         sess.course.ID,
		QuizID:           sess.quiz.ID,
		Score:            pct,
		CorrectCount:     correct,
		TotalQuestions:   len(questions),
		Passed:           pct >= sess.passingScore,
		PassingScore:     sess.passingScore,
		TimeSpentMinutes: int(math.Round(now.Sub(sess.startedAt).Minutes())),
		CompletedAt:      now,
		Breakdown:        breakdown,
	}
}
