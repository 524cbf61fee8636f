package catalog

import (
	_ "embed"
	"os"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed data/courses.yaml
var defaultCourses []byte

// Catalog is the read-only course source the ledger works against.
type Catalog interface {
	GetCourse(id string) (Course, bool)
	ListCourses() []Course
}

// StaticCatalog is an in-memory Catalog. Courses are listed in insertion order.
type StaticCatalog struct {
	mu      sync.RWMutex
	order   []string
	courses map[string]Course
}

var _ Catalog = (*StaticCatalog)(nil)

func NewStatic(courses ...Course) *StaticCatalog {
	cat := &StaticCatalog{courses: make(map[string]Course, len(courses))}
	for _, c := range courses {
		cat.Put(c)
	}
	return cat
}

// Default returns the catalog embedded in the binary.
func Default() (*StaticCatalog, error) {
	return Parse(defaultCourses)
}

// Load reads a YAML course list from path. An empty path loads the embedded default.
func Load(path string) (*StaticCatalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading catalog")
	}
	return Parse(data)
}

// Parse decodes a YAML course list.
func Parse(data []byte) (*StaticCatalog, error) {
	var courses []Course
	if err := yaml.Unmarshal(data, &courses); err != nil {
		return nil, errors.Wrap(err, "decoding catalog")
	}
	for _, c := range courses {
		if err := check(c); err != nil {
			return nil, err
		}
	}
	return NewStatic(courses...), nil
}

func check(c Course) error {
	if c.ID == "" {
		return errors.Errorf("catalog: course %q has no id", c.Title)
	}
	seen := make(map[string]bool, len(c.Lessons))
	for _, l := range c.Lessons {
		if l.ID == "" || seen[l.ID] {
			return errors.Errorf("catalog: course %s has a missing or duplicate lesson id %q", c.ID, l.ID)
		}
		seen[l.ID] = true
	}
	if c.Quiz != nil {
		for i, q := range c.Quiz.Questions {
			if q.CorrectOptionIndex < 0 || q.CorrectOptionIndex >= len(q.Options) {
				return errors.Errorf("catalog: course %s question %d has an out of range answer", c.ID, i)
			}
		}
	}
	return nil
}

func (cat *StaticCatalog) GetCourse(id string) (Course, bool) {
	cat.mu.RLock()
	defer cat.mu.RUnlock()
	c, ok := cat.courses[id]
	return c, ok
}

func (cat *StaticCatalog) ListCourses() []Course {
	cat.mu.RLock()
	defer cat.mu.RUnlock()
	list := make([]Course, 0, len(cat.order))
	for _, id := range cat.order {
		list = append(list, cat.courses[id])
	}
	return list
}

// Put adds or replaces a course. Catalog maintenance only; enrollments keep their own lesson snapshot.
func (cat *StaticCatalog) Put(c Course) {
	cat.mu.Lock()
	defer cat.mu.Unlock()
	if _, ok := cat.courses[c.ID]; !ok {
		cat.order = append(cat.order, c.ID)
	}
	cat.courses[c.ID] = c
}

// Categories returns the distinct course categories, sorted.
func Categories(cat Catalog) []string {
	return distinct(cat, func(c Course) string { return c.Category })
}

// Instructors returns the distinct course instructors, sorted.
func Instructors(cat Catalog) []string {
	return distinct(cat, func(c Course) string { return c.Instructor })
}

func distinct(cat Catalog, field func(Course) string) []string {
	set := make(map[string]bool)
	for _, c := range cat.ListCourses() {
		if v := field(c); v != "" {
			set[v] = true
		}
	}
	vals := make([]string, 0, len(set))
	for v := range set {
		vals = append(vals, v)
	}
	sort.Strings(vals)
	return vals
}
