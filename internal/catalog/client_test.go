package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakfit/coursecast/internal/cache"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(ClientConfig{
		BaseURL:  srv.URL,
		Timeout:  2 * time.Second,
		CacheTTL: time.Minute,
	}, cache.NewMemoryCache(time.Minute))
	require.NoError(t, err)
	return c, srv
}

func TestNewClientRejectsRelativeURL(t *testing.T) {
	_, err := NewClient(ClientConfig{BaseURL: "/not/absolute"}, nil)
	require.Error(t, err)
}

func TestPurchasesByUser(t *testing.T) {
	start := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/users/u1/purchases", r.URL.Path)
		_ = json.NewEncoder(w).Encode([]Purchase{{
			ID:                 "p1",
			UserID:             "u1",
			CourseID:           "c1",
			StartDate:          &start,
			CompletedLessonIDs: []LessonID{"l1"},
			Active:             true,
		}})
	}))

	purchases, err := c.PurchasesByUser(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, purchases, 1)
	assert.Equal(t, PurchaseID("p1"), purchases[0].ID)
	assert.Equal(t, []LessonID{"l1"}, purchases[0].CompletedLessonIDs)
}

func TestCourseSortsAndCaches(t *testing.T) {
	var hits atomic.Int32
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.Equal(t, "/courses/c1", r.URL.Path)
		_ = json.NewEncoder(w).Encode(Course{
			ID: "c1",
			Lessons: []Lesson{
				{ID: "l2", Order: 20},
				{ID: "l1", Order: 10},
			},
		})
	}))

	course, err := c.Course(context.Background(), "c1")
	require.NoError(t, err)
	require.Len(t, course.Lessons, 2)
	assert.Equal(t, LessonID("l1"), course.Lessons[0].ID, "lessons must be sorted by order")

	_, err = c.Course(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "second read must come from cache")
}

func TestMarkCompleted(t *testing.T) {
	var gotBody map[string]any
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/purchases/p1/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusCreated)
	}))

	err := c.MarkCompleted(context.Background(), CompletionWrite{
		PurchaseID:             "p1",
		LessonID:               "l1",
		CourseID:               "c1",
		DurationWatchedMinutes: 18,
	})
	require.NoError(t, err)

	assert.Equal(t, "l1", gotBody["lesson_id"])
	assert.Equal(t, "c1", gotBody["course_id"])
	assert.Equal(t, float64(18), gotBody["duration_watched_minutes"])
	assert.NotContains(t, gotBody, "PurchaseID", "purchase id travels in the path, not the body")
}

func TestMarkCompletedErrorStatus(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	err := c.MarkCompleted(context.Background(), CompletionWrite{PurchaseID: "p1", LessonID: "l1"})
	require.Error(t, err)
}

func TestGetJSONErrorStatus(t *testing.T) {
	c, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))

	_, err := c.Course(context.Background(), "missing")
	require.Error(t, err)
}
