package audit

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/telemetry-core/internal/infrastructure/config"
	"github.com/nerrad567/telemetry-core/internal/infrastructure/database"
	"github.com/nerrad567/telemetry-core/migrations"
)

func setupRepository(t *testing.T) *SQLiteRepository {
	t.Helper()

	db, err := database.Open(t.Context(), config.DatabaseConfig{
		Path:        filepath.Join(t.TempDir(), "audit.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	require.NoError(t, db.Migrate(t.Context(), migrations.FS))

	return NewSQLiteRepository(db.DB)
}

func TestCreate_FillsDefaults(t *testing.T) {
	repo := setupRepository(t)

	entry := &Entry{
		Action:  ActionRuleAdded,
		Watch:   "tempA",
		Do:      "fanA",
		Subject: "ops",
		Source:  SourceAPI,
		Details: json.RawMessage(`{"type":"bang-bang","threshold":80}`),
	}
	require.NoError(t, repo.Create(t.Context(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.CreatedAt.IsZero())

	result, err := repo.List(t.Context(), Filter{})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)

	got := result.Entries[0]
	assert.Equal(t, entry.ID, got.ID)
	assert.Equal(t, "ops", got.Subject)
	assert.Equal(t, SourceAPI, got.Source)
	assert.JSONEq(t, `{"type":"bang-bang","threshold":80}`, string(got.Details))
	assert.True(t, entry.CreatedAt.Equal(got.CreatedAt))
}

func TestCreate_RequiresRuleKey(t *testing.T) {
	repo := setupRepository(t)

	err := repo.Create(t.Context(), &Entry{Action: ActionRuleRemoved, Watch: "tempA", Source: SourceAPI})
	assert.Error(t, err)
}

func TestCreate_OptionalFieldsStayEmpty(t *testing.T) {
	repo := setupRepository(t)

	require.NoError(t, repo.Create(t.Context(), &Entry{
		Action: ActionRuleRemoved,
		Watch:  "tempA",
		Do:     "fanA",
		Source: SourceAPI,
	}))

	result, err := repo.List(t.Context(), Filter{})
	require.NoError(t, err)
	require.Len(t, result.Entries, 1)
	assert.Empty(t, result.Entries[0].Subject)
	assert.Nil(t, result.Entries[0].Details)
}

func TestList_FiltersAndOrder(t *testing.T) {
	repo := setupRepository(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	entries := []Entry{
		{Action: ActionRuleAdded, Watch: "tempA", Do: "fanA"},
		{Action: ActionRuleAdded, Watch: "level", Do: "pump"},
		{Action: ActionRuleRemoved, Watch: "tempA", Do: "fanA"},
	}
	for i := range entries {
		entries[i].Source = SourceAPI
		entries[i].CreatedAt = base.Add(time.Duration(i) * time.Minute)
		require.NoError(t, repo.Create(t.Context(), &entries[i]))
	}

	all, err := repo.List(t.Context(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Total)
	require.Len(t, all.Entries, 3)
	assert.Equal(t, ActionRuleRemoved, all.Entries[0].Action, "newest first")
	assert.Equal(t, "level", all.Entries[1].Watch)

	tests := []struct {
		name   string
		filter Filter
		want   int
	}{
		{"by action", Filter{Action: ActionRuleAdded}, 2},
		{"by watch", Filter{Watch: "tempA"}, 2},
		{"by do", Filter{Do: "pump"}, 1},
		{"combined", Filter{Action: ActionRuleRemoved, Watch: "tempA"}, 1},
		{"no match", Filter{Watch: "absent"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := repo.List(t.Context(), tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Total)
			assert.Len(t, result.Entries, tt.want)
		})
	}
}

func TestList_Paging(t *testing.T) {
	repo := setupRepository(t)
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	for i := range 5 {
		require.NoError(t, repo.Create(t.Context(), &Entry{
			Action:    ActionRuleAdded,
			Watch:     fmt.Sprintf("ch%d", i),
			Do:        "out",
			Source:    SourceAPI,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	page, err := repo.List(t.Context(), Filter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 2, page.Limit)
	assert.Equal(t, 1, page.Offset)
	require.Len(t, page.Entries, 2)
	assert.Equal(t, "ch3", page.Entries[0].Watch)
	assert.Equal(t, "ch2", page.Entries[1].Watch)

	clamped, err := repo.List(t.Context(), Filter{Limit: 1000, Offset: -3})
	require.NoError(t, err)
	assert.Equal(t, maxLimit, clamped.Limit)
	assert.Equal(t, 0, clamped.Offset)

	empty, err := repo.List(t.Context(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, defaultLimit, empty.Limit)
}
