package lms

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/dailyyoga/offlinekit/offline"
	"github.com/dailyyoga/offlinekit/remote"
	"go.uber.org/zap"
)

type fakeAPI struct {
	courseCalls int
	err         error
	progress    []LessonProgress
	submissions []AssignmentSubmission
}

func (f *fakeAPI) CourseWithModules(_ context.Context, courseID string) (Course, error) {
	f.courseCalls++
	if f.err != nil {
		return Course{}, f.err
	}
	return Course{ID: courseID, Title: "Programación en Go", Modules: []Module{{ID: "m1", Lessons: []Lesson{{ID: "l1"}}}}}, nil
}

func (f *fakeAPI) UserEnrollments(context.Context) ([]Enrollment, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []Enrollment{{CourseID: "c1", Progress: PercentFromInt(40)}}, nil
}

func (f *fakeAPI) UserDashboardStats(context.Context) (DashboardStats, error) {
	if f.err != nil {
		return DashboardStats{}, f.err
	}
	return DashboardStats{EnrolledCourses: 2, AverageProgress: PercentFromInt(55)}, nil
}

func (f *fakeAPI) UpdateLessonProgress(_ context.Context, _ string, p LessonProgress) (LessonProgress, error) {
	if f.err != nil {
		return LessonProgress{}, f.err
	}
	f.progress = append(f.progress, p)
	return p, nil
}

func (f *fakeAPI) CreateAssignmentSubmission(_ context.Context, s AssignmentSubmission) (AssignmentSubmission, error) {
	if f.err != nil {
		return AssignmentSubmission{}, f.err
	}
	f.submissions = append(f.submissions, s)
	return s, nil
}

// newTestClient returns a client whose queued operations are never
// delivered, so the queue can be inspected
func newTestClient(t *testing.T, offlineMode bool) (*Client, *offline.Manager, *fakeAPI) {
	t.Helper()
	sender := remote.SenderFunc(func(context.Context, remote.Request) error {
		return errors.New("unreachable")
	})
	m, err := offline.New(&offline.Config{MaxRetries: 100}, offline.Options{Logger: zap.NewNop(), Sender: sender, Offline: offlineMode})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { m.Close() })
	api := &fakeAPI{}
	c, err := NewClient(zap.NewNop(), nil, m, api)
	if err != nil {
		t.Fatal(err)
	}
	return c, m, api
}

func TestNewClient(t *testing.T) {
	if _, err := NewClient(nil, nil, nil, &fakeAPI{}); !errors.Is(err, ErrNilManager) {
		t.Errorf("expected ErrNilManager, got %v", err)
	}
	m, _ := offline.New(nil, offline.Options{Sender: remote.SenderFunc(func(context.Context, remote.Request) error { return nil })})
	defer m.Close()
	if _, err := NewClient(nil, nil, m, nil); !errors.Is(err, ErrNilAPI) {
		t.Errorf("expected ErrNilAPI, got %v", err)
	}
}

func TestPercent_JSON(t *testing.T) {
	p, err := NewPercent("87.5")
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(LessonProgress{Progress: p})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"progress":87.5,"completed":false,"updated_at":"0001-01-01T00:00:00Z"}` {
		t.Errorf("unexpected encoding %s", b)
	}

	var got LessonProgress
	if err := json.Unmarshal([]byte(`{"progress":80}`), &got); err != nil {
		t.Fatal(err)
	}
	if !got.Progress.Equal(PercentFromInt(80).Decimal) {
		t.Errorf("expected 80, got %s", got.Progress)
	}
}

func TestPercent_Valid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"0", true},
		{"100", true},
		{"55.25", true},
		{"-1", false},
		{"100.01", false},
	}
	for _, tt := range tests {
		p, err := NewPercent(tt.in)
		if err != nil {
			t.Fatal(err)
		}
		if p.Valid() != tt.want {
			t.Errorf("Percent(%s).Valid() = %v, want %v", tt.in, p.Valid(), tt.want)
		}
	}
}

func TestClient_CourseIsCached(t *testing.T) {
	c, m, api := newTestClient(t, false)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		course, err := c.Course(ctx, "c1")
		if err != nil || course.ID != "c1" {
			t.Fatalf("Course = %+v %v", course, err)
		}
	}
	if api.courseCalls != 1 {
		t.Errorf("expected a single API call, got %d", api.courseCalls)
	}
	if _, ok := m.GetCache("course_c1"); !ok {
		t.Error("expected course_c1 to be cached")
	}
}

func TestClient_ReadsOfflineWithoutCache(t *testing.T) {
	c, _, _ := newTestClient(t, true)
	ctx := context.Background()

	if _, err := c.UserCourses(ctx); !errors.Is(err, offline.ErrOfflineNoCache) {
		t.Errorf("UserCourses: expected ErrOfflineNoCache, got %v", err)
	}
	if _, err := c.DashboardStats(ctx); !errors.Is(err, offline.ErrOfflineNoCache) {
		t.Errorf("DashboardStats: expected ErrOfflineNoCache, got %v", err)
	}
}

func TestClient_DashboardStats(t *testing.T) {
	c, m, _ := newTestClient(t, false)
	stats, err := c.DashboardStats(context.Background())
	if err != nil || stats.EnrolledCourses != 2 {
		t.Fatalf("DashboardStats = %+v %v", stats, err)
	}
	if _, ok := m.GetCache(DashboardStatsKey); !ok {
		t.Error("expected dashboard stats to be cached")
	}
}

func TestClient_SaveProgressOffline(t *testing.T) {
	c, m, _ := newTestClient(t, true)
	progress := LessonProgress{Progress: PercentFromInt(80)}

	if err := c.SaveProgressOffline("l1", progress); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.OfflineProgress("l1")
	if err != nil || !ok || !got.Progress.Equal(progress.Progress.Decimal) {
		t.Fatalf("OfflineProgress = %+v %v %v", got, ok, err)
	}
	ops := m.PendingOperations()
	if len(ops) != 1 || ops[0].Endpoint != "/lessons/l1/progress" || ops[0].Method != "PUT" {
		t.Fatalf("unexpected queue %+v", ops)
	}

	if err := c.SaveProgressOffline("l1", LessonProgress{Progress: PercentFromInt(120)}); err == nil {
		t.Error("expected out of range progress to be rejected")
	}
}

func TestClient_UpdateLessonProgress(t *testing.T) {
	tests := []struct {
		name        string
		offline     bool
		apiErr      error
		wantQueued  int
		wantAPICall int
	}{
		{"online", false, nil, 0, 1},
		{"offline", true, nil, 1, 0},
		{"api failure", false, errors.New("502"), 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, m, api := newTestClient(t, tt.offline)
			api.err = tt.apiErr
			progress := LessonProgress{Progress: PercentFromInt(60)}

			got, err := c.UpdateLessonProgress(context.Background(), "l2", progress)
			if err != nil {
				t.Fatalf("UpdateLessonProgress failed: %v", err)
			}
			if !got.Progress.Equal(progress.Progress.Decimal) {
				t.Errorf("unexpected result %+v", got)
			}
			if n := m.PendingSyncCount(); n != tt.wantQueued {
				t.Errorf("expected %d queued, got %d", tt.wantQueued, n)
			}
			if len(api.progress) != tt.wantAPICall {
				t.Errorf("expected %d api calls, got %d", tt.wantAPICall, len(api.progress))
			}
			if _, ok := m.GetCache(LessonProgressKey("l2")); !ok {
				t.Error("progress must always be cached")
			}
		})
	}
}

func TestClient_QuizAttempt(t *testing.T) {
	c, _, _ := newTestClient(t, true)
	attempt := QuizAttempt{ID: "qa1", QuizID: "q1", Answers: map[string]string{"1": "b"}}
	if err := c.SaveQuizAttemptOffline(attempt); err != nil {
		t.Fatal(err)
	}
	got, ok, err := c.QuizAttempt("qa1")
	if err != nil || !ok || got.Answers["1"] != "b" {
		t.Errorf("QuizAttempt = %+v %v %v", got, ok, err)
	}
}

func TestClient_SubmitAssignmentOffline(t *testing.T) {
	c, m, api := newTestClient(t, true)
	file := remote.Attachment{Filename: "tarea.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}

	got, err := c.SubmitAssignment(context.Background(), "a1", "mi respuesta", file)
	if err != nil {
		t.Fatal(err)
	}
	if got.AssignmentID != "a1" || len(api.submissions) != 0 {
		t.Errorf("unexpected result %+v", got)
	}

	ops := m.PendingOperations()
	if len(ops) != 1 || ops[0].Endpoint != "/assignment-submissions" || ops[0].Method != "POST" {
		t.Fatalf("unexpected queue %+v", ops)
	}
	if len(ops[0].Attachments) != 1 || ops[0].Attachments[0].Filename != "tarea.pdf" {
		t.Errorf("expected file to travel as attachment, got %+v", ops[0].Attachments)
	}
	if string(ops[0].Payload) != `{"assignment_id":"a1","submission_text":"mi respuesta"}` {
		t.Errorf("unexpected payload %s", ops[0].Payload)
	}
	if _, ok, _ := c.PendingSubmission("a1"); !ok {
		t.Error("expected submission to be cached")
	}
}

func TestClient_SubmitAssignmentAPIFailure(t *testing.T) {
	c, m, api := newTestClient(t, false)
	boom := errors.New("413 payload too large")
	api.err = boom

	if _, err := c.SubmitAssignment(context.Background(), "a2", "texto"); !errors.Is(err, boom) {
		t.Errorf("expected api error, got %v", err)
	}
	if m.PendingSyncCount() != 1 {
		t.Errorf("expected failed submission to be queued")
	}
}

func TestClient_Logout(t *testing.T) {
	c, m, _ := newTestClient(t, true)
	c.SaveProgressOffline("l1", LessonProgress{Progress: PercentFromInt(10)})
	c.Logout()
	if m.HasPendingSyncs() {
		t.Error("expected empty queue after logout")
	}
	if _, ok, _ := c.OfflineProgress("l1"); ok {
		t.Error("expected empty cache after logout")
	}
}
