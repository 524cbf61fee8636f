package quiz_test

import (
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/catalog"
	"github.com/trezcool/lms/core/enrollment"
	"github.com/trezcool/lms/core/quiz"
	"github.com/trezcool/lms/core/user"
	"github.com/trezcool/lms/services/countdown"
	logsvc "github.com/trezcool/lms/services/logger"
	"github.com/trezcool/lms/storage/database/kvstore"
	"github.com/trezcool/lms/storage/kv"
)

// answers: 0, 1, 2
func testCatalog() *catalog.StaticCatalog {
	opts := []string{"a", "b", "c"}
	return catalog.NewStatic(
		catalog.Course{
			ID:         "intro",
			Title:      "Intro",
			Instructor: "Grace",
			Lessons:    []catalog.Lesson{{ID: "l1"}, {ID: "l2"}},
			Quiz: &catalog.Quiz{
				ID:               "intro-quiz",
				TimeLimitMinutes: 1,
				Questions: []catalog.Question{
					{Text: "q1", Options: opts, CorrectOptionIndex: 0},
					{Text: "q2", Options: opts, CorrectOptionIndex: 1},
					{Text: "q3", Options: opts, CorrectOptionIndex: 2},
				},
			},
		},
		catalog.Course{
			ID:      "fast",
			Title:   "Fast",
			Lessons: []catalog.Lesson{{ID: "f1"}},
			Quiz:    &catalog.Quiz{ID: "fast-quiz", Questions: []catalog.Question{{Text: "q", Options: []string{"x", "y"}}}},
		},
		catalog.Course{ID: "no-quiz", Title: "No Quiz", Lessons: []catalog.Lesson{{ID: "n1"}}},
	)
}

type fixture struct {
	users   *user.Service
	ledger  *enrollment.Service
	catalog *catalog.StaticCatalog
	userID  string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := kv.Open(kv.NewMemoryBackend(0), kv.Options{Prefix: "lms_", Version: kvrepos.SchemaVersion, Log: logsvc.NewNop()})
	require.NoError(t, err)

	conf := &core.Config{}
	conf.Session.Timeout = 24 * time.Hour
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	f := &fixture{catalog: testCatalog()}
	f.users = user.NewService(kvrepos.NewUserRepository(store), validate, translator, conf, logsvc.NewNop())
	f.ledger = enrollment.NewService(f.users, f.catalog, logsvc.NewNop())
	usr, err := f.users.Register(user.NewUser{Name: "Ada", Email: "ada@example.com", Password: "secret1"})
	require.NoError(t, err)
	f.userID = usr.ID
	return f
}

// ready enrolls the user and completes every lesson of the course.
func (f *fixture) ready(t *testing.T, courseID string) {
	t.Helper()
	rec, err := f.ledger.Enroll(f.userID, courseID)
	require.NoError(t, err)
	for _, l := range rec.LessonIDs {
		_, err = f.ledger.CompleteLesson(f.userID, courseID, l)
		require.NoError(t, err)
	}
}

func (f *fixture) engine(opts quiz.Options, cd quiz.Countdown) *quiz.Engine {
	return quiz.NewEngine(f.users, f.catalog, cd, opts, logsvc.NewNop())
}

func defaultOptions() quiz.Options {
	return quiz.Options{DefaultPassingScore: 70, DefaultTimeLimit: 15 * time.Minute, TickInterval: time.Second}
}

func answer(t *testing.T, sess *quiz.Session, answers ...int) {
	t.Helper()
	for i, a := range answers {
		if a == quiz.Unanswered {
			continue
		}
		require.NoError(t, sess.SelectAnswer(i, a))
	}
}

func TestBegin(t *testing.T) {
	f := newFixture(t)
	e := f.engine(defaultOptions(), nil)

	_, err := e.Begin(f.userID, "intro")
	assert.True(t, core.Is(err, core.ErrNotEnrolled))

	_, err = f.ledger.Enroll(f.userID, "intro")
	require.NoError(t, err)
	_, err = f.ledger.CompleteLesson(f.userID, "intro", "l1")
	require.NoError(t, err)
	_, err = e.Begin(f.userID, "intro")
	assert.True(t, core.Is(err, core.ErrLessonsIncomplete))

	_, err = f.ledger.CompleteLesson(f.userID, "intro", "l2")
	require.NoError(t, err)
	sess, err := e.Begin(f.userID, "intro")
	require.NoError(t, err)
	assert.Equal(t, quiz.InProgress, sess.State())
	assert.Equal(t, []int{-1, -1, -1}, sess.Answers())
	assert.Equal(t, time.Minute, sess.Remaining())
	assert.Equal(t, 70, sess.PassingScore())
	got, ok := e.Session(sess.ID())
	assert.True(t, ok)
	assert.Same(t, sess, got)

	f.ready(t, "no-quiz")
	_, err = e.Begin(f.userID, "no-quiz")
	assert.True(t, core.Is(err, core.ErrNotFound))

	_, err = e.Begin("user_nobody", "intro")
	assert.True(t, core.Is(err, core.ErrNotFound))
}

func TestSubmit_Scoring(t *testing.T) {
	tests := []struct {
		name        string
		answers     []int
		wantScore   int
		wantCorrect int
		wantPassed  bool
	}{
		{name: "two of three", answers: []int{0, 1, 0}, wantScore: 67, wantCorrect: 2},
		{name: "all correct", answers: []int{0, 1, 2}, wantScore: 100, wantCorrect: 3, wantPassed: true},
		{name: "unanswered count as wrong", answers: []int{0, quiz.Unanswered, quiz.Unanswered}, wantScore: 33, wantCorrect: 1},
		{name: "nothing answered", answers: nil, wantScore: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.ready(t, "intro")
			e := f.engine(defaultOptions(), nil)

			sess, err := e.Begin(f.userID, "intro")
			require.NoError(t, err)
			answer(t, sess, tt.answers...)

			out, err := e.Submit(sess)
			require.NoError(t, err)
			assert.Equal(t, tt.wantScore, out.Result.Score)
			assert.Equal(t, tt.wantCorrect, out.Result.CorrectCount)
			assert.Equal(t, 3, out.Result.TotalQuestions)
			assert.Equal(t, tt.wantPassed, out.Result.Passed)
			assert.Equal(t, tt.wantPassed, out.Certificate != nil)
			assert.False(t, out.Result.AutoSubmitted)
			require.Len(t, out.Result.Breakdown, 3)

			usr, err := f.users.Get(f.userID)
			require.NoError(t, err)
			assert.Equal(t, out.Result.Score, usr.QuizResults["intro"].Score)
			assert.Equal(t, tt.wantPassed, usr.HasCompleted("intro"))
			assert.Equal(t, tt.wantPassed, len(usr.Certificates) == 1)
		})
	}
}

func TestSubmit_PassCompletesCourse(t *testing.T) {
	f := newFixture(t)
	f.ready(t, "intro")
	e := f.engine(defaultOptions(), nil)

	sess, err := e.Begin(f.userID, "intro")
	require.NoError(t, err)
	answer(t, sess, 0, 1, 2)
	out, err := e.Submit(sess)
	require.NoError(t, err)
	require.NotNil(t, out.Certificate)
	assert.Equal(t, "Intro", out.Certificate.CourseTitle)
	assert.Equal(t, "Ada", out.Certificate.StudentName)
	assert.Equal(t, "Grace", out.Certificate.Instructor)
	assert.Equal(t, 100, out.Certificate.Score)

	completed, err := f.ledger.ListCompleted(f.userID)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	rec, _, _ := f.ledger.GetProgress(f.userID, "intro")
	assert.NotNil(t, rec.CompletedAt)

	// submitting again returns the recorded outcome and writes nothing
	again, err := e.Submit(sess)
	require.NoError(t, err)
	assert.Equal(t, out, again)
	usr, _ := f.users.Get(f.userID)
	assert.Len(t, usr.Certificates, 1)
	_, ok := e.Session(sess.ID())
	assert.False(t, ok)

	// later title changes leave the issued certificate alone
	course, _ := f.catalog.GetCourse("intro")
	course.Title = "Intro 2"
	f.catalog.Put(course)
	usr, _ = f.users.Get(f.userID)
	assert.Equal(t, "Intro", usr.Certificates[0].CourseTitle)
}

func TestSubmit_Retake(t *testing.T) {
	tests := []struct {
		name      string
		dedup     bool
		wantCerts int
	}{
		{name: "one certificate per pass", dedup: false, wantCerts: 2},
		{name: "dedup", dedup: true, wantCerts: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.ready(t, "intro")
			opts := defaultOptions()
			opts.DedupCertificates = tt.dedup
			e := f.engine(opts, nil)

			for _, answers := range [][]int{{0, 1, 2}, {0, 0, 0}, {0, 1, 2}} {
				sess, err := e.Begin(f.userID, "intro")
				require.NoError(t, err)
				answer(t, sess, answers...)
				_, err = e.Submit(sess)
				require.NoError(t, err)
			}

			usr, err := f.users.Get(f.userID)
			require.NoError(t, err)
			assert.Len(t, usr.Certificates, tt.wantCerts)
			assert.Len(t, usr.QuizResults, 1, "only the latest attempt is kept")
			assert.Equal(t, 100, usr.QuizResults["intro"].Score)
			assert.Equal(t, []string{"intro"}, usr.CompletedCourseIDs)
		})
	}
}

func TestTick_AutoSubmit(t *testing.T) {
	f := newFixture(t)
	f.ready(t, "intro")
	e := f.engine(defaultOptions(), nil)

	sess, err := e.Begin(f.userID, "intro")
	require.NoError(t, err)
	answer(t, sess, 0, 1)

	for i := 0; i < 59; i++ {
		_, fired, err := e.Tick(sess)
		require.NoError(t, err)
		require.False(t, fired)
	}
	assert.Equal(t, time.Second, sess.Remaining())

	out, fired, err := e.Tick(sess)
	require.NoError(t, err)
	assert.True(t, fired)
	assert.True(t, out.Result.AutoSubmitted)
	assert.Equal(t, 67, out.Result.Score)
	assert.Equal(t, quiz.Unanswered, out.Result.Breakdown[2].Chosen)
	assert.Equal(t, quiz.Submitted, sess.State())

	// nothing more happens once submitted
	_, fired, err = e.Tick(sess)
	require.NoError(t, err)
	assert.False(t, fired)
	again, err := e.Submit(sess)
	require.NoError(t, err)
	assert.Equal(t, out, again)
	assert.ErrorIs(t, sess.SelectAnswer(2, 2), quiz.ErrSessionClosed)
}

func TestSubmit_RacesTick(t *testing.T) {
	f := newFixture(t)
	f.ready(t, "intro")
	opts := defaultOptions()
	e := f.engine(opts, nil)

	sess, err := e.Begin(f.userID, "intro")
	require.NoError(t, err)
	answer(t, sess, 0, 1, 2)

	var wg sync.WaitGroup
	outcomes := make([]quiz.Outcome, 2)
	wg.Add(2)
	go func() {
		defer wg.Done()
		for {
			out, fired, _ := e.Tick(sess)
			if fired || sess.State() != quiz.InProgress {
				outcomes[0] = out
				return
			}
		}
	}()
	go func() {
		defer wg.Done()
		outcomes[1], _ = e.Submit(sess)
	}()
	wg.Wait()

	usr, err := f.users.Get(f.userID)
	require.NoError(t, err)
	assert.Len(t, usr.Certificates, 1, "exactly one submission is recorded")
	assert.Equal(t, 100, usr.QuizResults["intro"].Score)
}

func TestAbandon(t *testing.T) {
	f := newFixture(t)
	f.ready(t, "intro")
	e := f.engine(defaultOptions(), nil)

	sess, err := e.Begin(f.userID, "intro")
	require.NoError(t, err)
	answer(t, sess, 0, 1, 2)
	e.Abandon(sess)

	assert.Equal(t, quiz.Abandoned, sess.State())
	_, err = e.Submit(sess)
	assert.ErrorIs(t, err, quiz.ErrSessionClosed)
	_, fired, err := e.Tick(sess)
	assert.NoError(t, err)
	assert.False(t, fired)

	usr, err := f.users.Get(f.userID)
	require.NoError(t, err)
	assert.Empty(t, usr.QuizResults)
	assert.Empty(t, usr.Certificates)
}

func TestSession_Navigation(t *testing.T) {
	f := newFixture(t)
	f.ready(t, "intro")
	e := f.engine(defaultOptions(), nil)
	sess, err := e.Begin(f.userID, "intro")
	require.NoError(t, err)

	assert.Equal(t, 0, sess.Retreat())
	assert.Equal(t, 1, sess.Advance())
	assert.Equal(t, "q2", sess.Question().Text)
	assert.Equal(t, 2, sess.Advance())
	assert.True(t, sess.IsLast())
	assert.Equal(t, 2, sess.Advance())
	assert.Equal(t, 1, sess.Retreat())

	tests := []struct {
		name     string
		question int
		option   int
		field    string
	}{
		{name: "question too low", question: -1, option: 0, field: "question"},
		{name: "question too high", question: 3, option: 0, field: "question"},
		{name: "option too high", question: 0, option: 3, field: "option"},
		{name: "option too low", question: 0, option: -1, field: "option"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sess.SelectAnswer(tt.question, tt.option)
			require.Error(t, err)
			vErr, ok := err.(*core.ValidationError)
			require.True(t, ok)
			assert.Equal(t, tt.field, vErr.Fields[0].Field)
		})
	}

	// answers can be changed, in any order
	require.NoError(t, sess.SelectAnswer(2, 0))
	require.NoError(t, sess.SelectAnswer(2, 2))
	assert.Equal(t, []int{-1, -1, 2}, sess.Answers())
}

func TestSubmit_TimeSpent(t *testing.T) {
	orig := core.NowFunc
	defer func() { core.NowFunc = orig }()
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	core.NowFunc = func() time.Time { return now }

	f := newFixture(t)
	f.ready(t, "intro")
	e := f.engine(defaultOptions(), nil)
	sess, err := e.Begin(f.userID, "intro")
	require.NoError(t, err)

	now = now.Add(4*time.Minute + 40*time.Second)
	out, err := e.Submit(sess)
	require.NoError(t, err)
	assert.Equal(t, 5, out.Result.TimeSpentMinutes)
	assert.Equal(t, now, out.Result.CompletedAt)
}

func TestCountdown_AutoSubmits(t *testing.T) {
	f := newFixture(t)
	f.ready(t, "fast")

	cd := countdown.New(logsvc.NewNop())
	cd.Start()
	defer cd.Stop()

	opts := defaultOptions()
	opts.DefaultTimeLimit = 50 * time.Millisecond
	opts.TickInterval = 10 * time.Millisecond
	e := f.engine(opts, cd)

	sess, err := e.Begin(f.userID, "fast")
	require.NoError(t, err)
	assert.Equal(t, 1, cd.Len())
	require.NoError(t, sess.SelectAnswer(0, 0))

	assert.Eventually(t, func() bool { return sess.State() == quiz.Submitted }, 5*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return cd.Len() == 0 }, time.Second, 10*time.Millisecond)

	usr, err := f.users.Get(f.userID)
	require.NoError(t, err)
	res := usr.QuizResults["fast"]
	assert.True(t, res.AutoSubmitted)
	assert.True(t, res.Passed)
	assert.Len(t, usr.Certificates, 1)
}

func TestCountdown_StopsWhenUserIsGone(t *testing.T) {
	f := newFixture(t)
	f.ready(t, "fast")

	cd := countdown.New(logsvc.NewNop())
	opts := defaultOptions()
	opts.DefaultTimeLimit = 20 * time.Millisecond
	opts.TickInterval = 10 * time.Millisecond
	e := f.engine(opts, cd)

	sess, err := e.Begin(f.userID, "fast")
	require.NoError(t, err)
	require.Equal(t, 1, cd.Len())
	require.NoError(t, f.users.Delete(f.userID))

	_, fired, err := e.Tick(sess)
	assert.NoError(t, err)
	assert.False(t, fired)
	_, fired, err = e.Tick(sess)
	assert.True(t, fired)
	assert.True(t, core.Is(err, core.ErrNotFound))

	assert.Equal(t, quiz.Abandoned, sess.State())
	assert.Equal(t, 0, cd.Len(), "the countdown is unregistered")
	_, ok := e.Session(sess.ID())
	assert.False(t, ok)

	_, fired, err = e.Tick(sess)
	assert.NoError(t, err)
	assert.False(t, fired)
	_, err = e.Submit(sess)
	assert.ErrorIs(t, err, quiz.ErrSessionClosed)
}
