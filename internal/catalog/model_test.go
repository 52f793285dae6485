package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSortLessons(t *testing.T) {
	c := Course{Lessons: []Lesson{
		{ID: "b", Order: 20},
		{ID: "c", Order: 30},
		{ID: "a", Order: 10},
	}}

	c.SortLessons()

	require.Len(t, c.Lessons, 3)
	assert.Equal(t, LessonID("a"), c.Lessons[0].ID)
	assert.Equal(t, LessonID("b"), c.Lessons[1].ID)
	assert.Equal(t, LessonID("c"), c.Lessons[2].ID)
}

func TestLessonIndex(t *testing.T) {
	c := Course{Lessons: []Lesson{{ID: "a"}, {ID: "b"}}}

	idx, ok := c.LessonIndex("b")
	require.True(t, ok)
	assert.Equal(t, 1, idx)

	_, ok = c.LessonIndex("missing")
	assert.False(t, ok)
}

func TestEffectiveStart(t *testing.T) {
	explicit := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	created := time.Date(2025, time.May, 20, 14, 30, 0, 0, time.UTC)

	t.Run("explicit start date wins", func(t *testing.T) {
		p := Purchase{StartDate: &explicit, CreatedAt: created}
		got, ok := p.EffectiveStart()
		require.True(t, ok)
		assert.Equal(t, explicit, got)
	})

	t.Run("falls back to creation timestamp", func(t *testing.T) {
		p := Purchase{CreatedAt: created}
		got, ok := p.EffectiveStart()
		require.True(t, ok)
		assert.Equal(t, created, got)
	})

	t.Run("zero start date is ignored", func(t *testing.T) {
		var zero time.Time
		p := Purchase{StartDate: &zero, CreatedAt: created}
		got, ok := p.EffectiveStart()
		require.True(t, ok)
		assert.Equal(t, created, got)
	})

	t.Run("no usable anchor", func(t *testing.T) {
		_, ok := Purchase{}.EffectiveStart()
		assert.False(t, ok)
	})
}

func TestEffectivePurchase(t *testing.T) {
	t.Run("first active wins", func(t *testing.T) {
		got, ok := EffectivePurchase([]Purchase{
			{ID: "p1", Active: false},
			{ID: "p2", Active: true},
			{ID: "p3", Active: true},
		})
		require.True(t, ok)
		assert.Equal(t, PurchaseID("p2"), got.ID)
	})

	t.Run("no active purchase", func(t *testing.T) {
		_, ok := EffectivePurchase([]Purchase{{ID: "p1", Active: false}})
		assert.False(t, ok)
	})

	t.Run("empty list", func(t *testing.T) {
		_, ok := EffectivePurchase(nil)
		assert.False(t, ok)
	})
}
