package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theak/crm/internal/core"
)

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestOpenSQLiteSeedsUserEmail(t *testing.T) {
	db := testDB(t)
	settings := NewSettingsRepo(db)

	setting, err := settings.Get(context.Background(), core.SettingUserEmail)
	require.NoError(t, err)
	assert.Equal(t, "", setting.Value)
}

func TestCustomerUpsertInsert(t *testing.T) {
	db := testDB(t)
	customers := NewCustomersRepo(db)
	ctx := context.Background()

	res, err := customers.Upsert(ctx, "acme.com", core.StatusNeedToRespond)
	require.NoError(t, err)
	assert.True(t, res.Created)
	assert.False(t, res.Changed)

	c, err := customers.Get(ctx, "acme.com")
	require.NoError(t, err)
	assert.Equal(t, core.StatusNeedToRespond, c.Status)
	assert.True(t, c.CreatedAt.Equal(c.StatusChangedAt), "created_at and status_changed_at must match on insert")
	assert.InDelta(t, 0.0, c.DaysSinceStatusChange, 0.1)
}

func TestCustomerUpsertStatusChangeMovesClock(t *testing.T) {
	db := testDB(t)
	customers := NewCustomersRepo(db)
	ctx := context.Background()

	_, err := customers.Upsert(ctx, "acme.com", core.StatusNeedToRespond)
	require.NoError(t, err)
	before, err := customers.Get(ctx, "acme.com")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	res, err := customers.Upsert(ctx, "acme.com", core.StatusWaitingOnThem)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.True(t, res.Changed)

	after, err := customers.Get(ctx, "acme.com")
	require.NoError(t, err)
	assert.Equal(t, core.StatusWaitingOnThem, after.Status)
	assert.True(t, after.StatusChangedAt.After(before.StatusChangedAt))
	assert.True(t, after.CreatedAt.Equal(before.CreatedAt), "created_at is written once")
}

func TestCustomerUpsertSameStatusKeepsClock(t *testing.T) {
	db := testDB(t)
	customers := NewCustomersRepo(db)
	ctx := context.Background()

	_, err := customers.Upsert(ctx, "acme.com", core.StatusNeedToRespond)
	require.NoError(t, err)
	before, err := customers.Get(ctx, "acme.com")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)

	res, err := customers.Upsert(ctx, "acme.com", core.StatusNeedToRespond)
	require.NoError(t, err)
	assert.False(t, res.Created)
	assert.False(t, res.Changed)

	after, err := customers.Get(ctx, "acme.com")
	require.NoError(t, err)
	assert.True(t, after.StatusChangedAt.Equal(before.StatusChangedAt),
		"re-asserting the same status must not reset dwell time")
}

func TestCustomerGetNotFound(t *testing.T) {
	db := testDB(t)
	customers := NewCustomersRepo(db)

	_, err := customers.Get(context.Background(), "unknown.com")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestCustomerListOrdersByDomain(t *testing.T) {
	db := testDB(t)
	customers := NewCustomersRepo(db)
	ctx := context.Background()

	for _, domain := range []string{"zeta.com", "acme.com", "midway.org"} {
		_, err := customers.Upsert(ctx, domain, core.StatusNoAction)
		require.NoError(t, err)
	}

	list, err := customers.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "acme.com", list[0].Domain)
	assert.Equal(t, "midway.org", list[1].Domain)
	assert.Equal(t, "zeta.com", list[2].Domain)
}

func TestSettingsSetInsertAndUpdate(t *testing.T) {
	db := testDB(t)
	settings := NewSettingsRepo(db)
	ctx := context.Background()

	require.NoError(t, settings.Set(ctx, "password", "hunter2"))
	setting, err := settings.Get(ctx, "password")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", setting.Value)

	require.NoError(t, settings.Set(ctx, "password", "hunter3"))
	setting, err = settings.Get(ctx, "password")
	require.NoError(t, err)
	assert.Equal(t, "hunter3", setting.Value)

	all, err := settings.List(ctx)
	require.NoError(t, err)
	// Seeded user_email plus the password row.
	assert.Len(t, all, 2)
}

func TestSettingsGetNotFound(t *testing.T) {
	db := testDB(t)
	settings := NewSettingsRepo(db)

	_, err := settings.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}
