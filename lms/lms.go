// Package lms wraps the Aula Virtual API with offline support.
//
// Reads go through the offline cache with per-resource lifetimes; writes are
// cached locally and queued for delivery when they cannot reach the API.
package lms

import (
	"context"
	"fmt"

	"github.com/dailyyoga/offlinekit/logger"
	"github.com/dailyyoga/offlinekit/offline"
	"github.com/dailyyoga/offlinekit/remote"
	"go.uber.org/zap"
)

// API is the online side of the LMS
type API interface {
	CourseWithModules(ctx context.Context, courseID string) (Course, error)
	UserEnrollments(ctx context.Context) ([]Enrollment, error)
	UserDashboardStats(ctx context.Context) (DashboardStats, error)
	UpdateLessonProgress(ctx context.Context, lessonID string, progress LessonProgress) (LessonProgress, error)
	CreateAssignmentSubmission(ctx context.Context, submission AssignmentSubmission) (AssignmentSubmission, error)
}

// Cache keys
const (
	UserCoursesKey    = "user_courses"
	DashboardStatsKey = "dashboard_stats"
)

// CourseKey is the cache key of a course
func CourseKey(courseID string) string { return "course_" + courseID }

// LessonProgressKey is the cache key of a lesson's progress
func LessonProgressKey(lessonID string) string { return "lesson_progress_" + lessonID }

// QuizAttemptKey is the cache key of a quiz attempt
func QuizAttemptKey(attemptID string) string { return "quiz_attempt_" + attemptID }

// AssignmentSubmissionKey is the cache key of a pending assignment submission
func AssignmentSubmissionKey(assignmentID string) string {
	return "assignment_submission_" + assignmentID
}

const assignmentSubmissionsEndpoint = "/assignment-submissions"

func lessonProgressEndpoint(lessonID string) string {
	return fmt.Sprintf("/lessons/%s/progress", lessonID)
}

// Client is the offline-aware LMS client
type Client struct {
	cfg    *Config
	logger logger.Logger
	m      *offline.Manager
	api    API
}

// NewClient creates a client on top of m and api
func NewClient(log logger.Logger, cfg *Config, m *offline.Manager, api API) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, ErrNilManager
	}
	if api == nil {
		return nil, ErrNilAPI
	}
	return &Client{cfg: cfg, logger: logger.Named(log, "lms"), m: m, api: api}, nil
}

// Course returns a course with its modules
func (c *Client) Course(ctx context.Context, courseID string) (Course, error) {
	return offline.GetCachedOrFetch(ctx, c.m, CourseKey(courseID), func(ctx context.Context) (Course, error) {
		return c.api.CourseWithModules(ctx, courseID)
	}, c.cfg.CourseTTL)
}

// UserCourses returns the current user's enrollments
func (c *Client) UserCourses(ctx context.Context) ([]Enrollment, error) {
	return offline.GetCachedOrFetch(ctx, c.m, UserCoursesKey, c.api.UserEnrollments, c.cfg.UserCoursesTTL)
}

// DashboardStats returns the current user's dashboard figures
func (c *Client) DashboardStats(ctx context.Context) (DashboardStats, error) {
	return offline.GetCachedOrFetch(ctx, c.m, DashboardStatsKey, c.api.UserDashboardStats, c.cfg.DashboardTTL)
}

// SaveProgressOffline caches the progress of a lesson and queues it for
// delivery
func (c *Client) SaveProgressOffline(lessonID string, progress LessonProgress) error {
	if !progress.Progress.Valid() {
		return ErrInvalidProgress(lessonID, progress.Progress)
	}
	if err := c.m.SetCache(LessonProgressKey(lessonID), progress, 0); err != nil {
		return err
	}
	_, err := c.m.QueueForSync(lessonProgressEndpoint(lessonID), "PUT", progress)
	return err
}

// OfflineProgress returns the locally saved progress of a lesson
func (c *Client) OfflineProgress(lessonID string) (LessonProgress, bool, error) {
	return offline.Get[LessonProgress](c.m, LessonProgressKey(lessonID))
}

// UpdateLessonProgress saves progress locally and sends it to the API when
// online. When offline, or when the API call fails, the update is queued and
// progress is returned as an optimistic result.
func (c *Client) UpdateLessonProgress(ctx context.Context, lessonID string, progress LessonProgress) (LessonProgress, error) {
	if !progress.Progress.Valid() {
		return LessonProgress{}, ErrInvalidProgress(lessonID, progress.Progress)
	}
	if err := c.m.SetCache(LessonProgressKey(lessonID), progress, 0); err != nil {
		return LessonProgress{}, err
	}

	if !c.m.IsOffline() {
		saved, err := c.api.UpdateLessonProgress(ctx, lessonID, progress)
		if err == nil {
			return saved, nil
		}
		c.logger.Warn("progress update failed, queueing",
			zap.String("lesson_id", lessonID),
			zap.Error(err),
		)
	}

	if _, err := c.m.QueueForSync(lessonProgressEndpoint(lessonID), "PUT", progress); err != nil {
		return LessonProgress{}, err
	}
	return progress, nil
}

// SaveQuizAttemptOffline caches a quiz attempt locally
func (c *Client) SaveQuizAttemptOffline(attempt QuizAttempt) error {
	return c.m.SetCache(QuizAttemptKey(attempt.ID), attempt, 0)
}

// QuizAttempt returns a locally saved quiz attempt
func (c *Client) QuizAttempt(attemptID string) (QuizAttempt, bool, error) {
	return offline.Get[QuizAttempt](c.m, QuizAttemptKey(attemptID))
}

// SubmitAssignment hands in an assignment. When offline the submission is
// saved and queued and returned as is. When the API call fails the
// submission is saved and queued as well and the API error is returned.
func (c *Client) SubmitAssignment(ctx context.Context, assignmentID, text string, files ...remote.Attachment) (AssignmentSubmission, error) {
	submission := AssignmentSubmission{AssignmentID: assignmentID, Text: text, Files: files}

	if c.m.IsOffline() {
		if err := c.saveSubmission(submission); err != nil {
			return AssignmentSubmission{}, err
		}
		return submission, nil
	}

	created, err := c.api.CreateAssignmentSubmission(ctx, submission)
	if err == nil {
		return created, nil
	}
	c.logger.Warn("assignment submission failed, queueing",
		zap.String("assignment_id", assignmentID),
		zap.Int("files", len(files)),
		zap.Error(err),
	)
	if qerr := c.saveSubmission(submission); qerr != nil {
		c.logger.Error("failed to queue assignment submission", zap.String("assignment_id", assignmentID), zap.Error(qerr))
	}
	return AssignmentSubmission{}, err
}

// PendingSubmission returns a submission saved while it could not be sent
func (c *Client) PendingSubmission(assignmentID string) (AssignmentSubmission, bool, error) {
	return offline.Get[AssignmentSubmission](c.m, AssignmentSubmissionKey(assignmentID))
}

func (c *Client) saveSubmission(s AssignmentSubmission) error {
	if err := c.m.SetCache(AssignmentSubmissionKey(s.AssignmentID), s, 0); err != nil {
		return err
	}
	payload := struct {
		AssignmentID string `json:"assignment_id"`
		Text         string `json:"submission_text,omitempty"`
	}{s.AssignmentID, s.Text}
	_, err := c.m.QueueForSync(assignmentSubmissionsEndpoint, "POST", payload, s.Files...)
	return err
}

// Logout drops every cached resource and every queued change
func (c *Client) Logout() {
	c.m.ClearAll()
}
