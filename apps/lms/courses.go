package main

import (
	"fmt"
	"strings"

	"github.com/trezcool/lms/core"
	"github.com/trezcool/lms/core/catalog"
	"github.com/trezcool/lms/core/user"
)

func (cli *commandLine) courses(args []string) error {
	fs := cli.newFlagSet("courses")
	id := fs.String("id", "", "Show the details of this course.")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *id == "" {
		cli.printCourses(cli.Catalog.ListCourses())
		return nil
	}

	course, ok := cli.Catalog.GetCourse(*id)
	if !ok {
		return cli.courseNotFound(*id)
	}
	fmt.Fprintf(cli.out, "%s (%s)\n", course.Title, course.ID)
	if course.Description != "" {
		fmt.Fprintf(cli.out, "  %s\n", course.Description)
	}
	fmt.Fprintf(cli.out, "  %s | %s | %s | by %s\n", course.Category, course.Level, course.Duration, course.Instructor)
	if course.Prerequisites != "" {
		fmt.Fprintf(cli.out, "  prerequisites: %s\n", course.Prerequisites)
	}
	for _, obj := range course.Objectives {
		fmt.Fprintf(cli.out, "  - %s\n", obj)
	}

	// progress marks are shown when someone is logged in
	var rec user.ProgressRecord
	var enrolled bool
	if usr, err := cli.Users.CurrentSession(); err == nil {
		rec, enrolled = usr.Progress[course.ID]
	}
	fmt.Fprintln(cli.out, "Lessons:")
	for i, l := range course.Lessons {
		mark := " "
		if enrolled && rec.HasCompletedLesson(l.ID) {
			mark = "x"
		}
		fmt.Fprintf(cli.out, "  [%s] %d. %s (%s, %s) [%s]\n", mark, i+1, l.Title, l.Type, l.Duration, l.ID)
	}
	if course.HasQuiz() {
		q := course.Quiz
		fmt.Fprintf(cli.out, "Quiz: %d questions, pass at %d%%, %s\n",
			len(q.Questions), q.Passing(cli.Conf.Quiz.DefaultPassingScore), q.TimeLimit(cli.Conf.Quiz.DefaultTimeLimit))
	}
	if enrolled {
		fmt.Fprintf(cli.out, "Progress: %d%%\n", rec.Percent())
	}
	return nil
}

func (cli *commandLine) printCourses(courses []catalog.Course) {
	for _, c := range courses {
		fmt.Fprintf(cli.out, "%-22s %s [%s, %s, %s]\n", c.ID, c.Title, c.Category, c.Level, c.Duration)
	}
}

// courseNotFound suggests close matches for a mistyped course id.
func (cli *commandLine) courseNotFound(id string) error {
	msg := "course " + id + " not found"
	if similar := catalog.Suggest(cli.Catalog, id, 3); len(similar) > 0 {
		ids := make([]string, 0, len(similar))
		for _, c := range similar {
			ids = append(ids, c.ID)
		}
		msg += "; did you mean " + strings.Join(ids, ", ") + "?"
	}
	return core.NewError(core.ErrNotFound, msg)
}

func (cli *commandLine) search(args []string) error {
	fs := cli.newFlagSet("search")
	var q catalog.Query
	fs.StringVar(&q.Text, "q", "", "Text to look for in titles, descriptions, categories, instructors and lessons.")
	fs.StringVar(&q.Category, "category", "", "Only courses of this category.")
	fs.StringVar(&q.Level, "level", "", "Only courses of this level.")
	fs.StringVar(&q.Instructor, "instructor", "", "Only courses by this instructor.")
	fs.StringVar(&q.Duration, "duration", "", "Only short (<5h), medium (5-10h) or long (>10h) courses.")
	fs.StringVar(&q.SortBy, "sort", "", "Sort by relevance, title, level or duration.")
	if err := parse(fs, args); err != nil {
		return err
	}

	found := catalog.Search(cli.Catalog, q)
	if len(found) > 0 {
		cli.printCourses(found)
		return nil
	}
	fmt.Fprintln(cli.out, "No courses found.")
	if q.Text != "" {
		if similar := catalog.Suggest(cli.Catalog, q.Text, 3); len(similar) > 0 {
			fmt.Fprintln(cli.out, "Did you mean:")
			cli.printCourses(similar)
		}
	}
	return nil
}

func (cli *commandLine) enroll(args []string) error {
	fs := cli.newFlagSet("enroll")
	courseID := fs.String("course", "", "The course to enroll in.")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *courseID == "" {
		fs.Usage()
		return errHelp
	}
	usr, err := cli.currentUser()
	if err != nil {
		return err
	}
	if _, ok := cli.Catalog.GetCourse(*courseID); !ok {
		return cli.courseNotFound(*courseID)
	}

	rec, err := cli.Ledger.Enroll(usr.ID, *courseID)
	if core.Is(err, core.ErrAlreadyEnrolled) {
		fmt.Fprintf(cli.out, "You are already enrolled (%d%% complete).\n", rec.Percent())
		return nil
	}
	if err = cli.warnStorage(err); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Enrolled in %s: %d lessons to go.\n", *courseID, rec.TotalLessons)
	return nil
}

func (cli *commandLine) complete(args []string) error {
	fs := cli.newFlagSet("complete")
	courseID := fs.String("course", "", "The course of the lesson.")
	lessonID := fs.String("lesson", "", "The lesson to mark completed. Defaults to the next one.")
	if err := parse(fs, args); err != nil {
		return err
	}
	if *courseID == "" {
		fs.Usage()
		return errHelp
	}
	usr, err := cli.currentUser()
	if err != nil {
		return err
	}

	if *lessonID == "" {
		next, ok, err := cli.Ledger.NextLesson(usr.ID, *courseID)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(cli.out, "Every lesson of this course is completed.")
			return nil
		}
		*lessonID = next.ID
	}

	rec, err := cli.Ledger.CompleteLesson(usr.ID, *courseID, *lessonID)
	if err = cli.warnStorage(err); err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Lesson %s completed. Progress: %d%%\n", *lessonID, rec.Percent())
	switch {
	case rec.CompletedAt != nil:
		fmt.Fprintln(cli.out, "Course completed!")
	case rec.AllLessonsDone() && rec.QuizRequired:
		fmt.Fprintf(cli.out, "All lessons done. Take the quiz: lms quiz -course %s\n", *courseID)
	}
	return nil
}

func (cli *commandLine) progress(args []string) error {
	fs := cli.newFlagSet("progress")
	courseID := fs.String("course", "", "Only this course.")
	if err := parse(fs, args); err != nil {
		return err
	}
	usr, err := cli.currentUser()
	if err != nil {
		return err
	}

	ids := usr.EnrolledCourseIDs
	if *courseID != "" {
		ids = []string{*courseID}
	}
	if len(ids) == 0 {
		fmt.Fprintln(cli.out, "You are not enrolled in any course yet.")
		return nil
	}
	for _, id := range ids {
		rec, ok := usr.Progress[id]
		if !ok {
			return core.NewError(core.ErrNotEnrolled, "not enrolled in course "+id)
		}
		title := id
		if course, ok := cli.Catalog.GetCourse(id); ok {
			title = course.Title
		}
		status := "in progress"
		if rec.CompletedAt != nil {
			status = "completed " + rec.CompletedAt.Format("2006-01-02")
		}
		fmt.Fprintf(cli.out, "%-30s %3d%% (%d/%d lessons) %s\n",
			title, rec.Percent(), len(rec.CompletedLessonIDs), rec.TotalLessons, status)
		if res, ok := usr.QuizResults[id]; ok {
			fmt.Fprintf(cli.out, "%-30s quiz: %d%% (%s)\n", "", res.Score, passFail(res.Passed))
		}
	}
	return nil
}

func (cli *commandLine) dashboard() error {
	usr, err := cli.currentUser()
	if err != nil {
		return err
	}
	sum, err := cli.Ledger.Summary(usr.ID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "Hello, %s\n", usr.Name)
	fmt.Fprintf(cli.out, "  enrolled:      %d (%d in progress, %d completed)\n", sum.Enrolled, sum.InProgress, sum.Completed)
	fmt.Fprintf(cli.out, "  lessons:       %d/%d (%d%%)\n", sum.LessonsCompleted, sum.LessonsTotal, sum.OverallPercent)
	fmt.Fprintf(cli.out, "  quizzes taken: %d (average %d%%)\n", sum.QuizzesTaken, sum.AverageScore)
	fmt.Fprintf(cli.out, "  certificates:  %d\n", sum.Certificates)

	for _, id := range usr.EnrolledCourseIDs {
		next, ok, err := cli.Ledger.NextLesson(usr.ID, id)
		if err != nil || !ok {
			continue
		}
		fmt.Fprintf(cli.out, "Continue with %q: lms complete -course %s -lesson %s\n", next.Title, id, next.ID)
		break
	}
	return nil
}

func passFail(passed bool) string {
	if passed {
		return "passed"
	}
	return "failed"
}
