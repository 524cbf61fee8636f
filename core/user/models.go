package user

import (
	"math"
	"strings"
	"time"

	"github.com/trezcool/lms/core"
)

// Roles
const (
	RoleAdmin   = "admin:"
	RoleTeacher = "teacher:"
	RoleStudent = "student:"
)

var (
	AllRoles = []string{RoleAdmin, RoleTeacher, RoleStudent}

	rolePriorities = map[string]int{
		RoleAdmin:   30,
		RoleTeacher: 20,
		RoleStudent: 10,
	}

	Roles = []Role{
		{Name: "Student", Value: RoleStudent},
		{Name: "Teacher", Value: RoleTeacher},
		{Name: "Admin", Value: RoleAdmin},
	}
)

func RolePriority(role string) int {
	return rolePriorities[role]
}

func MaxRolePriority(roles []string) int {
	var max int
	for _, role := range roles {
		if RolePriority(role) > max {
			max = RolePriority(role)
		}
	}
	return max
}

type Role struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// User is the learner record. The credential lives in the credential index, never here.
type User struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Roles         []string  `json:"roles"`
	IsDemo        bool      `json:"isDemo,omitempty"`
	OAuthProvider string    `json:"oauthProvider,omitempty"`
	OAuthID       string    `json:"oauthId,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`   // UTC
	UpdatedAt     time.Time `json:"updatedAt"`   // UTC
	LastLoginAt   time.Time `json:"lastLoginAt"` // UTC

	Profile     Profile     `json:"profile"`
	Preferences Preferences `json:"preferences"`

	EnrolledCourseIDs  []string                  `json:"enrolledCourses"`
	CompletedCourseIDs []string                  `json:"completedCourses"`
	Progress           map[string]ProgressRecord `json:"progress"`
	Certificates       []Certificate             `json:"certificates"`
	QuizResults        map[string]QuizResult     `json:"quizResults"` // latest attempt per course
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

func (u *User) IsTeacher() bool {
	return u.RoleStartsWith(RoleTeacher)
}

func (u *User) IsStudent() bool {
	return u.RoleStartsWith(RoleStudent)
}

func (u *User) IsEnrolled(courseID string) bool {
	return contains(u.EnrolledCourseIDs, courseID)
}

func (u *User) HasCompleted(courseID string) bool {
	return contains(u.CompletedCourseIDs, courseID)
}

// Normalize replaces nil collections with empty ones and fills default preferences.
func (u *User) Normalize() {
	if u.Roles == nil {
		u.Roles = []string{RoleStudent}
	}
	if u.EnrolledCourseIDs == nil {
		u.EnrolledCourseIDs = []string{}
	}
	if u.CompletedCourseIDs == nil {
		u.CompletedCourseIDs = []string{}
	}
	if u.Progress == nil {
		u.Progress = make(map[string]ProgressRecord)
	}
	if u.Certificates == nil {
		u.Certificates = []Certificate{}
	}
	if u.QuizResults == nil {
		u.QuizResults = make(map[string]QuizResult)
	}
	for id, rec := range u.Progress {
		if rec.CompletedLessonIDs == nil {
			rec.CompletedLessonIDs = []string{}
			u.Progress[id] = rec
		}
	}
	u.Preferences.fillDefaults()
}

type Profile struct {
	Avatar    string `json:"avatar"`
	Bio       string `json:"bio"`
	Phone     string `json:"phone"`
	Education string `json:"education"`
	Goals     string `json:"goals"`
}

type Preferences struct {
	Theme         string `json:"theme"`
	Notifications bool   `json:"notifications"`
	Autoplay      bool   `json:"autoplay"`
	Language      string `json:"language"`
}

func DefaultPreferences() Preferences {
	return Preferences{Theme: "light", Notifications: true, Autoplay: true, Language: "en"}
}

func (p *Preferences) fillDefaults() {
	def := DefaultPreferences()
	if p.Theme == "" {
		p.Theme = def.Theme
	}
	if p.Language == "" {
		p.Language = def.Language
		// never stored before: take every default
		p.Notifications = def.Notifications
		p.Autoplay = def.Autoplay
	}
}

// ProgressRecord tracks one enrollment. LessonIDs and QuizRequired are snapshots taken at enrollment.
type ProgressRecord struct {
	CourseID           string     `json:"courseId"`
	LessonIDs          []string   `json:"lessonIds"`
	TotalLessons       int        `json:"totalLessons"`
	QuizRequired       bool       `json:"quizRequired"`
	CompletedLessonIDs []string   `json:"completedLessons"`
	EnrolledAt         time.Time  `json:"enrolledAt"`
	LastAccessedAt     time.Time  `json:"lastAccessed"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
}

// CompletionRatio is |completed| / total, 0 for a course without lessons.
func (p ProgressRecord) CompletionRatio() float64 {
	if p.TotalLessons == 0 {
		return 0
	}
	return float64(len(p.CompletedLessonIDs)) / float64(p.TotalLessons)
}

func (p ProgressRecord) Percent() int {
	return int(math.Round(100 * p.CompletionRatio()))
}

func (p ProgressRecord) HasCompletedLesson(lessonID string) bool {
	return contains(p.CompletedLessonIDs, lessonID)
}

func (p ProgressRecord) HasLesson(lessonID string) bool {
	return contains(p.LessonIDs, lessonID)
}

func (p ProgressRecord) AllLessonsDone() bool {
	return p.TotalLessons > 0 && len(p.CompletedLessonIDs) >= p.TotalLessons
}

type QuizResult struct {
	CourseID         string            `json:"courseId"`
	QuizID           string            `json:"quizId"`
	Score            int               `json:"score"`
	CorrectCount     int               `json:"correctAnswers"`
	TotalQuestions   int               `json:"totalQuestions"`
	Passed           bool              `json:"passed"`
	PassingScore     int               `json:"passingScore"`
	TimeSpentMinutes int               `json:"timeSpent"`
	AutoSubmitted    bool              `json:"autoSubmitted,omitempty"`
	CompletedAt      time.Time         `json:"completedAt"`
	Breakdown        []AnswerBreakdown `json:"results"`
}

// AnswerBreakdown reports one question of a submitted attempt. Chosen is -1 when unanswered.
type AnswerBreakdown struct {
	QuestionIndex int  `json:"questionIndex"`
	Chosen        int  `json:"userAnswer"`
	Correct       int  `json:"correctAnswer"`
	IsCorrect     bool `json:"isCorrect"`
}

type Certificate struct {
	ID                string    `json:"id"`
	CourseID          string    `json:"courseId"`
	CourseTitle       string    `json:"courseTitle"`
	StudentName       string    `json:"studentName"`
	Instructor        string    `json:"instructor"`
	Score             int       `json:"score"`
	IssuedAt          time.Time `json:"issuedAt"`
	VerificationToken string    `json:"verificationCode"`
}

// NewUser contains information needed to register a new User.
type NewUser struct {
	Name     string `json:"name" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,pwdminlen"`
}

func (nu *NewUser) Clean() {
	nu.Name = CleanName(nu.Name)
	nu.Email = CleanEmail(nu.Email)
}

// ProfileUpdate holds the fields to merge into the current user. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name      *string `json:"name" validate:"omitempty,min=2"`
	Avatar    *string `json:"avatar"`
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
	Phone     *string `json:"phone" validate:"omitempty,max=32"`
	Education *string `json:"education"`
	Goals     *string `json:"goals"`
	Theme     *string `json:"theme" validate:"omitempty,oneof=light dark"`
	Language  *string `json:"language" validate:"omitempty,min=2"`
	Notify    *bool   `json:"notifications"`
	Autoplay  *bool   `json:"autoplay"`
}

func (pu *ProfileUpdate) Clean() {
	for _, fld := range []*string{pu.Name, pu.Avatar, pu.Bio, pu.Phone, pu.Education, pu.Goals, pu.Theme, pu.Language} {
		if fld != nil {
			*fld = strings.TrimSpace(*fld)
		}
	}
}

func (pu ProfileUpdate) IsEmpty() bool {
	return pu.Name == nil && pu.Avatar == nil && pu.Bio == nil && pu.Phone == nil && pu.Education == nil &&
		pu.Goals == nil && pu.Theme == nil && pu.Language == nil && pu.Notify == nil && pu.Autoplay == nil
}

func (pu ProfileUpdate) apply(u *User) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&u.Name, pu.Name)
	set(&u.Profile.Avatar, pu.Avatar)
	set(&u.Profile.Bio, pu.Bio)
	set(&u.Profile.Phone, pu.Phone)
	set(&u.Profile.Education, pu.Education)
	set(&u.Profile.Goals, pu.Goals)
	set(&u.Preferences.Theme, pu.Theme)
	set(&u.Preferences.Language, pu.Language)
	if pu.Notify != nil {
		u.Preferences.Notifications = *pu.Notify
	}
	if pu.Autoplay != nil {
		u.Preferences.Autoplay = *pu.Autoplay
	}
}

// ExternalIdentity is what an OAuth provider hands back after a successful sign-in.
type ExternalIdentity struct {
	Provider string `json:"provider" validate:"required"`
	Subject  string `json:"id"`
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Picture  string `json:"picture"`
}

// Session points at the logged-in user.
type Session struct {
	UserID     string    `json:"userId"`
	LoggedInAt time.Time `json:"loggedInAt"`
}

// Credential is one entry of the credential index.
type Credential struct {
	UserID string `json:"id"`
	Email  string `json:"email"`
	Hash   string `json:"hashedPassword"`
}

// Backup is a portable copy of one user's data, credential excluded.
type Backup struct {
	Version    int       `json:"version"`
	ExportedAt time.Time `json:"exportDate"`
	User       User      `json:"user"`
}

func CleanName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

func CleanEmail(email string) string {
	return core.CleanString(email, true /* lower */)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
