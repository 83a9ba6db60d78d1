package postgres

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/fuad-rahat/school-website/internal/models"
	"github.com/fuad-rahat/school-website/internal/store"

	"github.com/AdguardTeam/golibs/testutil"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTimeout = 30 * time.Second

func setupTestStore(t *testing.T, ctx context.Context) *Store {
	t.Helper()

	dsn := os.Getenv("TEST_DB_DSN")
	if dsn == "" {
		t.Skip("TEST_DB_DSN not set")
	}

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	st := NewStore(pool)
	require.NoError(t, st.Migrate(ctx))

	return st
}

func TestAdmins(t *testing.T) {
	ctx := testutil.ContextWithTimeout(t, testTimeout)
	st := setupTestStore(t, ctx)

	username := "admin-" + uuid.NewString()
	created, err := st.CreateAdmin(ctx, models.Admin{Username: username, PasswordHash: "hash"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, created.Role)

	_, err = st.CreateAdmin(ctx, models.Admin{Username: username, PasswordHash: "hash"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)

	got, err := st.AdminByUsername(ctx, username)
	require.NoError(t, err)
	assert.Equal(t, created.AdminID, got.AdminID)
	assert.Equal(t, "hash", got.PasswordHash)

	_, err = st.AdminByUsername(ctx, "missing-"+uuid.NewString())
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDocuments(t *testing.T) {
	ctx := testutil.ContextWithTimeout(t, testTimeout)
	st := setupTestStore(t, ctx)

	// A random collection name keeps runs independent.
	collection := "test_" + uuid.NewString()

	for _, body := range []string{
		`{"title":"b","category":"exam","graduationYear":2019}`,
		`{"title":"a","category":"event","graduationYear":2021}`,
		`{"title":"c","category":"exam","graduationYear":2019}`,
	} {
		_, err := st.Insert(ctx, collection, []byte(body))
		require.NoError(t, err)
	}

	docs, err := st.Find(ctx, collection, store.Query{SortField: "title"})
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "a", title(t, docs[0]))
	assert.Equal(t, "c", title(t, docs[2]))

	docs, err = st.Find(ctx, collection, store.Query{
		Filter:    map[string]any{"category": "exam"},
		SortField: "title",
		SortDesc:  true,
		Limit:     1,
	})
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "c", title(t, docs[0]))

	years, err := st.Distinct(ctx, collection, "graduationYear")
	require.NoError(t, err)
	assert.Equal(t, []string{"2021", "2019"}, years)

	count, err := st.Count(ctx, collection)
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	id := docs[0].ID
	replaced, err := st.Replace(ctx, collection, id, []byte(`{"title":"z"}`))
	require.NoError(t, err)
	assert.False(t, replaced.UpdatedAt.Before(replaced.CreatedAt))

	got, err := st.FindOne(ctx, collection, id)
	require.NoError(t, err)
	assert.Equal(t, "z", title(t, got))

	require.NoError(t, st.Delete(ctx, collection, id))
	require.ErrorIs(t, st.Delete(ctx, collection, id), store.ErrNotFound)

	_, err = st.FindOne(ctx, collection, id)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = st.Replace(ctx, collection, id, []byte(`{}`))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func title(t *testing.T, doc store.Document) string {
	t.Helper()

	var v struct {
		Title string `json:"title"`
	}
	require.NoError(t, json.Unmarshal(doc.Body, &v))

	return v.Title
}
