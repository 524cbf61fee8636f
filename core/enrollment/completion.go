package enrollment

import (
	"time"

	"github.com/trezcool/lms/core/user"
)

// markCompleted records the course as completed once; later calls keep the first completion time.
func markCompleted(usr *user.User, rec *user.ProgressRecord, at time.Time) {
	if rec.CompletedAt == nil {
		rec.CompletedAt = &at
	}
	if !usr.HasCompleted(rec.CourseID) {
		usr.CompletedCourseIDs = append(usr.CompletedCourseIDs, rec.CourseID)
	}
}

// MarkCompleted is markCompleted for callers outside the ledger (a passed quiz). The caller holds the user's lock.
func MarkCompleted(usr *user.User, courseID string, at time.Time) {
	rec, ok := usr.Progress[courseID]
	if !ok {
		return
	}
	markCompleted(usr, &rec, at)
	usr.Progress[courseID] = rec
}
