package catalog

import "time"

// Quiz defaults applied when a catalog entry leaves them out.
const (
	DefaultPassingScore = 70
	DefaultTimeLimit    = 15 // minutes
)

// Lesson types
const (
	LessonVideo       = "video"
	LessonReading     = "reading"
	LessonInteractive = "interactive"
)

type Course struct {
	ID            string   `json:"id" yaml:"id"`
	Title         string   `json:"title" yaml:"title"`
	Description   string   `json:"description" yaml:"description"`
	Category      string   `json:"category" yaml:"category"`
	Level         string   `json:"level" yaml:"level"`
	Instructor    string   `json:"instructor" yaml:"instructor"`
	Duration      string   `json:"duration" yaml:"duration"`
	Prerequisites string   `json:"prerequisites,omitempty" yaml:"prerequisites"`
	Objectives    []string `json:"objectives,omitempty" yaml:"objectives"`
	Lessons       []Lesson `json:"lessons" yaml:"lessons"`
	Quiz          *Quiz    `json:"quiz,omitempty" yaml:"quiz"`
}

// LessonIDs returns the course's lesson ids in catalog order.
func (c Course) LessonIDs() []string {
	ids := make([]string, 0, len(c.Lessons))
	for _, l := range c.Lessons {
		ids = append(ids, l.ID)
	}
	return ids
}

func (c Course) Lesson(id string) (Lesson, bool) {
	for _, l := range c.Lessons {
		if l.ID == id {
			return l, true
		}
	}
	return Lesson{}, false
}

func (c Course) HasQuiz() bool {
	return c.Quiz != nil && len(c.Quiz.Questions) > 0
}

// Hours parses Duration ("4 hours", "30 min") into hours. Unparsable durations yield 0.
func (c Course) Hours() float64 {
	return parseHours(c.Duration)
}

type Lesson struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Type     string `json:"type" yaml:"type"`
	Duration string `json:"duration" yaml:"duration"`
}

type Quiz struct {
	ID               string     `json:"id" yaml:"id"`
	Questions        []Question `json:"questions" yaml:"questions"`
	PassingScore     int        `json:"passingScore" yaml:"passingScore"`
	TimeLimitMinutes int        `json:"timeLimitMinutes" yaml:"timeLimitMinutes"`
}

// TimeLimit returns the quiz time limit, falling back to fallback when unset.
func (q Quiz) TimeLimit(fallback time.Duration) time.Duration {
	if q.TimeLimitMinutes > 0 {
		return time.Duration(q.TimeLimitMinutes) * time.Minute
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultTimeLimit * time.Minute
}

// Passing returns the passing score, falling back to fallback when unset.
func (q Quiz) Passing(fallback int) int {
	if q.PassingScore > 0 {
		return q.PassingScore
	}
	if fallback > 0 {
		return fallback
	}
	return DefaultPassingScore
}

type Question struct {
	Text               string   `json:"text" yaml:"text"`
	Options            []string `json:"options" yaml:"options"`
	CorrectOptionIndex int      `json:"correctOptionIndex" yaml:"correctOptionIndex"`
}
