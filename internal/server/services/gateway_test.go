package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/cliquefs/internal/common"
	"github.com/dmitrijs2005/cliquefs/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateway_Load(t *testing.T) {
	f := newLedgerFixture(t, testConfig())
	ctx := context.Background()

	_, err := f.creds.Issue(ctx, "alice", "pw")
	require.NoError(t, err)

	u, err := f.gateway.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice", u.Name)
	assert.Equal(t, []int64{}, u.CliqueIDs)
	assert.Equal(t, []int64{}, u.PossessedFileIDs)

	_, err = f.gateway.Load(ctx, 2)
	assert.ErrorIs(t, err, common.ErrIdentityNotFound)

	f.store.failNext("users.GetByID", common.ErrStorageUnavailable)
	_, err = f.gateway.Load(ctx, 1)
	assert.ErrorIs(t, err, common.ErrStorageUnavailable)
}

func TestGateway_Persist(t *testing.T) {
	f := newLedgerFixture(t, testConfig())
	ctx := context.Background()

	_, err := f.creds.Issue(ctx, "alice", "pw")
	require.NoError(t, err)

	first, err := f.gateway.Load(ctx, 1)
	require.NoError(t, err)
	second, err := f.gateway.Load(ctx, 1)
	require.NoError(t, err)

	first.Name = "Alice"
	require.NoError(t, f.gateway.Persist(ctx, first))
	assert.Equal(t, int64(1), first.Version)

	second.Name = "ALICE"
	err = f.gateway.Persist(ctx, second)
	assert.ErrorIs(t, err, common.ErrConflict, "a stale record must not overwrite a newer one")

	reloaded, err := f.gateway.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Alice", reloaded.Name)

	reloaded.ID = 99
	assert.ErrorIs(t, f.gateway.Persist(ctx, reloaded), common.ErrIdentityNotFound)
}

func TestGateway_PersistAfterAppend(t *testing.T) {
	f := newLedgerFixture(t, testConfig())
	ctx := context.Background()

	_, err := f.creds.Issue(ctx, "alice", "pw")
	require.NoError(t, err)
	f.store.putMetadata(42, 1, 0x42)
	f.expectCommits(1)

	record, err := f.gateway.Load(ctx, 1)
	require.NoError(t, err)

	ids, err := f.ledger.Append(ctx, 1, models.Possession, 42)
	require.NoError(t, err)
	record.SetIDs(models.Possession, ids)

	record.Name = "alice2"
	require.NoError(t, f.gateway.Persist(ctx, record), "relation appends do not make the record stale")

	reloaded, err := f.gateway.Load(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "alice2", reloaded.Name)
	assert.Equal(t, []int64{42}, reloaded.PossessedFileIDs)
	assert.Equal(t, record.Version, reloaded.Version)
}

func TestRotate_AppendBetweenCheckAndWrite(t *testing.T) {
	f := newLedgerFixture(t, testConfig())
	ctx := context.Background()

	_, err := f.creds.Issue(ctx, "alice", "old")
	require.NoError(t, err)
	f.store.putMetadata(42, 1, 0x42)
	f.expectCommits(1)

	f.store.before["users.UpdateCredential"] = func() {
		_, err := f.ledger.Append(ctx, 1, models.Possession, 42)
		require.NoError(t, err)
	}

	require.NoError(t, f.creds.Rotate(ctx, 1, "old", "new"))

	ok, err := f.creds.Verify(ctx, 1, "new")
	require.NoError(t, err)
	assert.True(t, ok)

	held, err := f.ledger.Read(ctx, 1, models.Possession)
	require.NoError(t, err)
	assert.Equal(t, []int64{42}, held)
}
