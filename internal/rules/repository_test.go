package rules

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "rules.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestRepositoryRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	lastApplied := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	rules := []Rule{
		{
			ID:      "a",
			Name:    "first",
			Enabled: true,
			Conditions: []Condition{
				{Field: FieldSubjectContains, Value: "invoice"},
				{Field: FieldSenderDomain, Value: "shop.example.com"},
			},
			Actions: []Action{
				{Type: ActionMarkAsRead},
				{Type: ActionMoveToFolder, Target: "Finance"},
			},
			TimesApplied: 3,
			LastApplied:  &lastApplied,
			CreatedAt:    time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:         "b",
			Name:       "second",
			Enabled:    false,
			Conditions: []Condition{{Field: FieldFrom, Value: "news@"}},
			Actions:    []Action{{Type: ActionDelete}},
			CreatedAt:  time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC),
		},
	}

	require.NoError(t, repo.SaveAll(ctx, rules))

	loaded, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)

	// Stored order is preserved, and condition/action order survives.
	require.Equal(t, "a", loaded[0].ID)
	require.Equal(t, rules[0].Conditions, loaded[0].Conditions)
	require.Equal(t, rules[0].Actions, loaded[0].Actions)
	require.Equal(t, 3, loaded[0].TimesApplied)
	require.NotNil(t, loaded[0].LastApplied)
	require.True(t, loaded[0].LastApplied.Equal(lastApplied))

	require.Equal(t, "b", loaded[1].ID)
	require.False(t, loaded[1].Enabled)
	require.Nil(t, loaded[1].LastApplied)
}

func TestRepositorySaveAllReplaces(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	first := []Rule{{
		ID: "a", Name: "first", Enabled: true,
		Conditions: []Condition{{Field: FieldFrom, Value: "x"}},
		Actions:    []Action{{Type: ActionMarkAsRead}},
		CreatedAt:  time.Now().UTC(),
	}}
	require.NoError(t, repo.SaveAll(ctx, first))

	second := []Rule{{
		ID: "b", Name: "second", Enabled: true,
		Conditions: []Condition{{Field: FieldFrom, Value: "y"}},
		Actions:    []Action{{Type: ActionMarkAsRead}},
		CreatedAt:  time.Now().UTC(),
	}}
	require.NoError(t, repo.SaveAll(ctx, second))

	loaded, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "b", loaded[0].ID)
}

func TestRepositoryEmpty(t *testing.T) {
	repo := newTestRepository(t)

	loaded, err := repo.LoadAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestRepositoryPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "rules.db")

	repo, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	require.NoError(t, repo.SaveAll(ctx, []Rule{{
		ID: "a", Name: "keep", Enabled: true,
		Conditions: []Condition{{Field: FieldFrom, Value: "x"}},
		Actions:    []Action{{Type: ActionMarkAsRead}},
		CreatedAt:  time.Now().UTC(),
	}}))
	require.NoError(t, repo.Close())

	reopened, err := NewSQLiteRepository(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	loaded, err := reopened.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	require.Equal(t, "keep", loaded[0].Name)
}
