package lms

import (
	"time"

	"github.com/dailyyoga/offlinekit/remote"
	"github.com/shopspring/decimal"
)

// Percent is a percentage in [0, 100] encoded as a JSON number
type Percent struct {
	decimal.Decimal
}

// NewPercent parses s, e.g. "87.5"
func NewPercent(s string) (Percent, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Percent{}, err
	}
	return Percent{d}, nil
}

// PercentFromInt returns n percent
func PercentFromInt(n int64) Percent {
	return Percent{decimal.NewFromInt(n)}
}

// MarshalJSON encodes p as a bare number
func (p Percent) MarshalJSON() ([]byte, error) {
	return []byte(p.Decimal.String()), nil
}

// UnmarshalJSON accepts numbers and quoted numbers
func (p *Percent) UnmarshalJSON(b []byte) error {
	return p.Decimal.UnmarshalJSON(b)
}

// Valid reports whether p lies within [0, 100]
func (p Percent) Valid() bool {
	return !p.Decimal.IsNegative() && p.Decimal.LessThanOrEqual(decimal.NewFromInt(100))
}

// Lesson within a module
type Lesson struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Position int    `json:"position"`
}

// Module groups lessons of a course
type Module struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Lessons []Lesson `json:"lessons"`
}

// Course with its modules
type Course struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Modules     []Module `json:"modules"`
}

// Enrollment of the current user in a course
type Enrollment struct {
	CourseID   string    `json:"course_id"`
	Title      string    `json:"title"`
	Progress   Percent   `json:"progress"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// DashboardStats summarizes the current user's activity
type DashboardStats struct {
	EnrolledCourses    int     `json:"enrolled_courses"`
	CompletedCourses   int     `json:"completed_courses"`
	PendingAssignments int     `json:"pending_assignments"`
	AverageProgress    Percent `json:"average_progress"`
}

// LessonProgress is the user's progress on one lesson
type LessonProgress struct {
	Progress  Percent `json:"progress"`
	Completed bool    `json:"completed"`
	// TimeSpent in seconds
	TimeSpent int64     `json:"time_spent,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuizAttempt is an in-progress or finished quiz attempt
type QuizAttempt struct {
	ID          string            `json:"id"`
	QuizID      string            `json:"quiz_id"`
	Answers     map[string]string `json:"answers"`
	Score       *Percent          `json:"score,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	SubmittedAt *time.Time        `json:"submitted_at,omitempty"`
}

// AssignmentSubmission is the text and files handed in for an assignment
type AssignmentSubmission struct {
	AssignmentID string              `json:"assignment_id"`
	Text         string              `json:"submission_text,omitempty"`
	Files        []remote.Attachment `json:"files,omitempty"`
}
