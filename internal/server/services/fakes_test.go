package services

import (
	"context"
	"database/sql"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/cliquefs/internal/common"
	"github.com/dmitrijs2005/cliquefs/internal/cryptox"
	"github.com/dmitrijs2005/cliquefs/internal/dbx"
	"github.com/dmitrijs2005/cliquefs/internal/logging"
	"github.com/dmitrijs2005/cliquefs/internal/server/config"
	"github.com/dmitrijs2005/cliquefs/internal/server/events"
	"github.com/dmitrijs2005/cliquefs/internal/server/models"
	"github.com/dmitrijs2005/cliquefs/internal/server/repositories/cliques"
	"github.com/dmitrijs2005/cliquefs/internal/server/repositories/metadatas"
	"github.com/dmitrijs2005/cliquefs/internal/server/repositories/relations"
	"github.com/dmitrijs2005/cliquefs/internal/server/repositories/users"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet(), "sql expectations")
		_ = db.Close()
	})
	return db, mock
}

func testConfig() *config.Config {
	return &config.Config{
		OperationTimeout:            time.Second,
		RetryAttempts:               3,
		RetryBaseDelay:              time.Millisecond,
		SecretKey:                   "k",
		AccessTokenValidityDuration: time.Hour,
	}
}

// --- in-memory store behind the repository interfaces ---

// memStore mimics the Postgres repositories closely enough for service
// tests. It ignores the DBTX it is bound to, so a rolled back transaction
// is not undone here; tests that need rollback semantics assert on the
// sqlmock expectations instead.
type memStore struct {
	mu sync.Mutex

	nextUser, nextMeta, nextClique int64

	users   map[int64]*models.User
	metas   map[int64]*models.Metadata
	cliques map[int64]*models.Clique

	// failures queued per method name, consumed one per call
	failures map[string][]error

	// before runs once, without mu held, ahead of the named method
	before map[string]func()
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[int64]*models.User{},
		metas:    map[int64]*models.Metadata{},
		cliques:  map[int64]*models.Clique{},
		failures: map[string][]error{},
		before:   map[string]func(){},
	}
}

// runBefore fires and clears the hook registered for method. It must be
// called without mu held so the hook can use the store.
func (s *memStore) runBefore(method string) {
	s.mu.Lock()
	hook := s.before[method]
	delete(s.before, method)
	s.mu.Unlock()
	if hook != nil {
		hook()
	}
}

func (s *memStore) failNext(method string, errs ...error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = append(s.failures[method], errs...)
}

// pop must be called with mu held.
func (s *memStore) pop(method string) error {
	q := s.failures[method]
	if len(q) == 0 {
		return nil
	}
	s.failures[method] = q[1:]
	return q[0]
}

func (s *memStore) putMetadata(id, senderID int64, hash byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := &models.Metadata{ID: id, SenderID: senderID, PossessorIDs: []int64{}}
	m.ContentHash[0] = hash
	s.metas[id] = m
	s.nextMeta = max(s.nextMeta, id)
}

func appendUnique(ids []int64, id int64) []int64 {
	if slices.Contains(ids, id) {
		return ids
	}
	return append(ids, id)
}

func cloneUser(u *models.User) *models.User {
	c := *u
	c.CliqueIDs = slices.Clone(u.CliqueIDs)
	c.PossessedFileIDs = slices.Clone(u.PossessedFileIDs)
	return &c
}

type memUsers struct{ s *memStore }

func (r memUsers) Create(_ context.Context, user *models.User) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.pop("users.Create"); err != nil {
		return nil, err
	}
	r.s.nextUser++
	user.ID = r.s.nextUser
	user.CliqueIDs = []int64{}
	user.PossessedFileIDs = []int64{}
	user.CreatedAt = time.Now()
	r.s.users[user.ID] = cloneUser(user)
	return user, nil
}

func (r memUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.pop("users.GetByID"); err != nil {
		return nil, err
	}
	u, ok := r.s.users[id]
	if !ok {
		return nil, common.ErrIdentityNotFound
	}
	return cloneUser(u), nil
}

func (r memUsers) GetCredential(ctx context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	err := r.s.pop("users.GetCredential")
	r.s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r memUsers) UpdateName(_ context.Context, id int64, name string, expectedVersion int64) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return 0, common.ErrIdentityNotFound
	}
	if u.Version != expectedVersion {
		return 0, common.ErrConflict
	}
	u.Name = name
	u.Version++
	return u.Version, nil
}

func (r memUsers) UpdateCredential(_ context.Context, id int64, cred cryptox.Credential, expectedVersion int64) (int64, error) {
	r.s.runBefore("users.UpdateCredential")
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.pop("users.UpdateCredential"); err != nil {
		return 0, err
	}
	u, ok := r.s.users[id]
	if !ok {
		return 0, common.ErrIdentityNotFound
	}
	if u.Version != expectedVersion {
		return 0, common.ErrConflict
	}
	u.Credential = cred
	u.Version++
	return u.Version, nil
}

func (r memUsers) LockForUpdate(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[id]; !ok {
		return common.ErrIdentityNotFound
	}
	return nil
}

type memRelations struct{ s *memStore }

func (r memRelations) Read(_ context.Context, userID int64, rel models.Relation) ([]int64, error) {
	if _, err := rel.Schema(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.pop("relations.Read"); err != nil {
		return nil, err
	}
	u, ok := r.s.users[userID]
	if !ok {
		return nil, common.ErrIdentityNotFound
	}
	return slices.Clone(u.IDs(rel)), nil
}

func (r memRelations) mirror(rel models.Relation, foreignID int64) (*[]int64, bool) {
	if rel == models.Membership {
		c, ok := r.s.cliques[foreignID]
		if !ok {
			return nil, false
		}
		return &c.UserIDs, true
	}
	m, ok := r.s.metas[foreignID]
	if !ok {
		return nil, false
	}
	return &m.PossessorIDs, true
}

func (r memRelations) ReadMirror(_ context.Context, rel models.Relation, foreignID int64) ([]int64, error) {
	if _, err := rel.Schema(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids, ok := r.mirror(rel, foreignID)
	if !ok {
		return nil, common.ErrForeignKeyViolation
	}
	return slices.Clone(*ids), nil
}

func (r memRelations) AppendOwner(_ context.Context, userID int64, rel models.Relation, foreignID int64) ([]int64, error) {
	if _, err := rel.Schema(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.pop("relations.AppendOwner"); err != nil {
		return nil, err
	}
	u, ok := r.s.users[userID]
	if !ok {
		return nil, common.ErrIdentityNotFound
	}
	u.SetIDs(rel, appendUnique(u.IDs(rel), foreignID))
	return slices.Clone(u.IDs(rel)), nil
}

func (r memRelations) AppendMirror(_ context.Context, rel models.Relation, foreignID int64, userID int64) ([]int64, error) {
	if _, err := rel.Schema(); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ids, ok := r.mirror(rel, foreignID)
	if !ok {
		return nil, common.ErrForeignKeyViolation
	}
	*ids = appendUnique(*ids, userID)
	return slices.Clone(*ids), nil
}

type memMetadatas struct{ s *memStore }

func (r memMetadatas) Create(_ context.Context, m *models.Metadata) (*models.Metadata, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.metas {
		if existing.ContentHash == m.ContentHash {
			c := *existing
			c.PossessorIDs = slices.Clone(existing.PossessorIDs)
			return &c, false, nil
		}
	}
	if _, ok := r.s.users[m.SenderID]; !ok {
		return nil, false, common.ErrForeignKeyViolation
	}
	r.s.nextMeta++
	m.ID = r.s.nextMeta
	m.PossessorIDs = []int64{}
	stored := *m
	r.s.metas[m.ID] = &stored
	return m, true, nil
}

func (r memMetadatas) GetByID(_ context.Context, id int64) (*models.Metadata, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	m, ok := r.s.metas[id]
	if !ok {
		return nil, common.ErrRecordNotFound
	}
	c := *m
	c.PossessorIDs = slices.Clone(m.PossessorIDs)
	return &c, nil
}

func (r memMetadatas) GetByHash(ctx context.Context, hash [models.ContentHashSize]byte) (*models.Metadata, error) {
	r.s.mu.Lock()
	var id int64
	for _, m := range r.s.metas {
		if m.ContentHash == hash {
			id = m.ID
		}
	}
	r.s.mu.Unlock()
	return r.GetByID(ctx, id)
}

func (r memMetadatas) LockForShare(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.metas[id]; !ok {
		return common.ErrForeignKeyViolation
	}
	return nil
}

type memCliques struct{ s *memStore }

func (r memCliques) Create(_ context.Context, c *models.Clique) (*models.Clique, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextClique++
	c.ID = r.s.nextClique
	c.UserIDs = []int64{}
	c.MetadataIDs = []int64{}
	stored := *c
	r.s.cliques[c.ID] = &stored
	return c, nil
}

func (r memCliques) GetByID(_ context.Context, id int64) (*models.Clique, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.cliques[id]
	if !ok {
		return nil, common.ErrRecordNotFound
	}
	out := *c
	out.UserIDs = slices.Clone(c.UserIDs)
	out.MetadataIDs = slices.Clone(c.MetadataIDs)
	return &out, nil
}

func (r memCliques) AppendMetadata(_ context.Context, cliqueID, metadataID int64) ([]int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.cliques[cliqueID]
	if !ok {
		return nil, common.ErrRecordNotFound
	}
	c.MetadataIDs = appendUnique(c.MetadataIDs, metadataID)
	return slices.Clone(c.MetadataIDs), nil
}

type fakeRepoManager struct{ s *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository             { return memUsers{m.s} }
func (m *fakeRepoManager) Relations(dbx.DBTX) relations.Repository     { return memRelations{m.s} }
func (m *fakeRepoManager) Metadatas(dbx.DBTX) metadatas.Repository     { return memMetadatas{m.s} }
func (m *fakeRepoManager) Cliques(dbx.DBTX) cliques.Repository         { return memCliques{m.s} }

// --- other collaborators ---

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.RelationAppended
	err    error
}

func (p *recordingPublisher) PublishRelationAppended(_ context.Context, e events.RelationAppended) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

type fakeCounter struct {
	mu      sync.Mutex
	counts  map[string]int64
	incrErr error
}

func (f *fakeCounter) Incr(_ context.Context, key string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incrErr != nil {
		return redis.NewIntResult(0, f.incrErr)
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[key]++
	return redis.NewIntResult(f.counts[key], nil)
}

func (f *fakeCounter) Expire(context.Context, string, time.Duration) *redis.BoolCmd {
	return redis.NewBoolResult(true, nil)
}

func (f *fakeCounter) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.counts, k)
	}
	return redis.NewIntResult(int64(len(keys)), nil)
}

var nopLogger logging.Logger = logging.Nop{}
