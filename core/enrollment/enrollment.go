// Package enrollment tracks which courses a user follows and how far they got.
package enrollment

import (
	"math"

	"github.com/kat-co/vala"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/catalog"
	"github.com/trezcool/lms/core/user"
)

type Service struct {
	users   *user.Service
	catalog catalog.Catalog
	log     core.Logger
}

func NewService(users *user.Service, cat catalog.Catalog, log core.Logger) *Service {
	vala.BeginValidation().Validate(
		vala.IsNotNil(users, "users"),
		vala.IsNotNil(cat, "cat"),
		vala.IsNotNil(log, "log"),
	).CheckAndPanic()
	return &Service{users: users, catalog: cat, log: log}
}

func courseNotFound(id string) error {
	return core.NewError(core.ErrNotFound, "course "+id+" not found")
}

func notEnrolled(id string) error {
	return core.NewError(core.ErrNotEnrolled, "not enrolled in course "+id)
}

// Enroll adds the course to the user's enrollments together with a fresh progress record.
// Enrolling twice fails with core.ErrAlreadyEnrolled and returns the existing record.
func (svc *Service) Enroll(userID, courseID string) (user.ProgressRecord, error) {
	course, ok := svc.catalog.GetCourse(courseID)
	if !ok {
		return user.ProgressRecord{}, courseNotFound(courseID)
	}

	var (
		rec     user.ProgressRecord
		already bool
	)
	_, err := svc.users.Mutate(userID, func(usr *user.User) error {
		if existing, ok := usr.Progress[courseID]; ok && usr.IsEnrolled(courseID) {
			rec, already = existing, true
			return user.ErrUnchanged
		}
		now := core.NowFunc()
		lessonIDs := course.LessonIDs()
		rec = user.ProgressRecord{
			CourseID:           courseID,
			LessonIDs:          lessonIDs,
			TotalLessons:       len(lessonIDs),
			QuizRequired:       course.HasQuiz(),
			CompletedLessonIDs: []string{},
			EnrolledAt:         now,
			LastAccessedAt:     now,
		}
		if !usr.IsEnrolled(courseID) {
			usr.EnrolledCourseIDs = append(usr.EnrolledCourseIDs, courseID)
		}
		usr.Progress[courseID] = rec
		return nil
	})
	if err != nil {
		return rec, err
	}
	if already {
		return rec, core.NewError(core.ErrAlreadyEnrolled, "already enrolled in "+course.Title)
	}
	svc.log.Info("enrolled", "user", userID, "course", courseID)
	return rec, nil
}

// CompleteLesson marks a lesson of the enrollment done. Completing a lesson twice changes nothing.
// Once every lesson is done, a course without quiz is marked completed.
func (svc *Service) CompleteLesson(userID, courseID, lessonID string) (user.ProgressRecord, error) {
	var rec user.ProgressRecord
	_, err := svc.users.Mutate(userID, func(usr *user.User) error {
		var ok bool
		if rec, ok = usr.Progress[courseID]; !ok {
			return notEnrolled(courseID)
		}
		if !rec.HasLesson(lessonID) {
			return core.NewError(core.ErrNotFound, "lesson "+lessonID+" is not part of course "+courseID)
		}
		if rec.HasCompletedLesson(lessonID) {
			return user.ErrUnchanged
		}

		now := core.NowFunc()
		rec.CompletedLessonIDs = append(append([]string{}, rec.CompletedLessonIDs...), lessonID)
		rec.LastAccessedAt = now
		if rec.AllLessonsDone() && !rec.QuizRequired {
			markCompleted(usr, &rec, now)
		}
		usr.Progress[courseID] = rec
		return nil
	})
	if err != nil {
		if core.IsStorageFailure(err) {
			return rec, err
		}
		return user.ProgressRecord{}, err
	}
	return rec, nil
}

// GetProgress returns the user's progress record for the course, and whether the user is enrolled.
func (svc *Service) GetProgress(userID, courseID string) (user.ProgressRecord, bool, error) {
	usr, err := svc.users.Get(userID)
	if err != nil {
		return user.ProgressRecord{}, false, err
	}
	rec, ok := usr.Progress[courseID]
	return rec, ok, nil
}

// ListEnrolled returns the enrolled courses in enrollment order. Courses gone from the catalog are skipped.
func (svc *Service) ListEnrolled(userID string) ([]catalog.Course, error) {
	usr, err := svc.users.Get(userID)
	if err != nil {
		return nil, err
	}
	return svc.join(usr.EnrolledCourseIDs), nil
}

// ListCompleted returns the completed courses in completion order.
func (svc *Service) ListCompleted(userID string) ([]catalog.Course, error) {
	usr, err := svc.users.Get(userID)
	if err != nil {
		return nil, err
	}
	return svc.join(usr.CompletedCourseIDs), nil
}

func (svc *Service) join(ids []string) []catalog.Course {
	courses := make([]catalog.Course, 0, len(ids))
	for _, id := range ids {
		if c, ok := svc.catalog.GetCourse(id); ok {
			courses = append(courses, c)
		}
	}
	return courses
}

// NextLesson returns the first lesson of the enrollment not completed yet; false once all are done.
func (svc *Service) NextLesson(userID, courseID string) (catalog.Lesson, bool, error) {
	rec, ok, err := svc.GetProgress(userID, courseID)
	if err != nil {
		return catalog.Lesson{}, false, err
	}
	if !ok {
		return catalog.Lesson{}, false, notEnrolled(courseID)
	}
	course, _ := svc.catalog.GetCourse(courseID)
	for _, id := range rec.LessonIDs {
		if rec.HasCompletedLesson(id) {
			continue
		}
		if l, ok := course.Lesson(id); ok {
			return l, true, nil
		}
		return catalog.Lesson{ID: id}, true, nil
	}
	return catalog.Lesson{}, false, nil
}

// Summary is the dashboard view of a user's learning.
type Summary struct {
	Enrolled         int `json:"enrolled"`
	Completed        int `json:"completed"`
	InProgress       int `json:"inProgress"`
	Certificates     int `json:"certificates"`
	QuizzesTaken     int `json:"quizzesTaken"`
	AverageScore     int `json:"averageScore"`
	LessonsCompleted int `json:"lessonsCompleted"`
	LessonsTotal     int `json:"lessonsTotal"`
	OverallPercent   int `json:"overallPercent"`
}

func (svc *Service) Summary(userID string) (Summary, error) {
	usr, err := svc.users.Get(userID)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Enrolled:     len(usr.EnrolledCourseIDs),
		Completed:    len(usr.CompletedCourseIDs),
		Certificates: len(usr.Certificates),
		QuizzesTaken: len(usr.QuizResults),
	}
	for _, id := range usr.EnrolledCourseIDs {
		if !usr.HasCompleted(id) {
			sum.InProgress++
		}
		rec := usr.Progress[id]
		sum.LessonsCompleted += len(rec.CompletedLessonIDs)
		sum.LessonsTotal += rec.TotalLessons
	}
	if sum.LessonsTotal > 0 {
		sum.OverallPercent = int(math.Round(100 * float64(sum.LessonsCompleted) / float64(sum.LessonsTotal)))
	}
	if len(usr.QuizResults) > 0 {
		var total int
		for _, res := range usr.QuizResults {
			total += res.Score
		}
		sum.AverageScore = int(math.Round(float64(total) / float64(len(usr.QuizResults))))
	}
	return sum, nil
}
