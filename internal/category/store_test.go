package category

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWinnersTieSet(t *testing.T) {
	c := &Category{
		ID:      "c1",
		Options: []string{"A", "B", "C"},
		Results: map[string]int{"A": 3, "B": 3, "C": 1},
	}

	// 并列最高票全部算作获胜者，结果与遍历顺序无关
	assert.Equal(t, []string{"A", "B"}, c.Winners())
	// 计算是稳定的
	assert.Equal(t, []string{"A", "B"}, c.Winners())
}

func TestWinnersNoVotes(t *testing.T) {
	c := &Category{ID: "c1", Options: []string{"A", "B"}, Results: map[string]int{}}
	assert.Empty(t, c.Winners())
}

func TestLifecycleGuards(t *testing.T) {
	c := &Category{Status: StatusNotStarted}
	assert.True(t, c.CanStart())
	assert.False(t, c.CanStop())
	assert.False(t, c.CanReveal())

	c.Status = StatusActive
	assert.False(t, c.CanStart())
	assert.True(t, c.CanStop())
	assert.False(t, c.CanReveal())

	c.Status = StatusCompleted
	assert.False(t, c.CanStart())
	assert.False(t, c.CanStop())
	assert.True(t, c.CanReveal())

	// revealed 是终态
	c.Status = StatusRevealed
	assert.False(t, c.CanStart())
	assert.False(t, c.CanStop())
	assert.False(t, c.CanReveal())
}

func TestStoreAllRevealed(t *testing.T) {
	s := NewStore([]*Category{
		{ID: "c1", Status: StatusRevealed, Results: map[string]int{}},
		{ID: "c2", Status: StatusCompleted, Results: map[string]int{}},
	})
	assert.False(t, s.AllRevealed())

	c2, ok := s.Get("c2")
	require.True(t, ok)
	c2.Status = StatusRevealed
	assert.True(t, s.AllRevealed())
}

func TestStorePreservesOrder(t *testing.T) {
	s := NewStore([]*Category{
		{ID: "b", Results: map[string]int{}},
		{ID: "a", Results: map[string]int{}},
		{ID: "c", Results: map[string]int{}},
	})

	ids := make([]string, 0, s.Len())
	for _, c := range s.List() {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
}

func TestLoadSeedFileValidation(t *testing.T) {
	dir := t.TempDir()

	path := filepath.Join(dir, "ok.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":"c1","title":"T","options":["A","B"]}]`), 0o644))
	seeds, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, seeds, 1)
	assert.Equal(t, "c1", seeds[0].ID)

	missing := filepath.Join(dir, "missing-id.json")
	require.NoError(t, os.WriteFile(missing, []byte(`[{"title":"T","options":["A"]}]`), 0o644))
	_, err = LoadSeedFile(missing)
	assert.Error(t, err)

	empty := filepath.Join(dir, "no-options.json")
	require.NoError(t, os.WriteFile(empty, []byte(`[{"id":"c1","title":"T","options":[]}]`), 0o644))
	_, err = LoadSeedFile(empty)
	assert.Error(t, err)
}
