package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fieldledger/fieldledger/internal/store"
	"github.com/fieldledger/fieldledger/models"
)

// In-memory stand-ins for the SQLite repositories. They keep the same
// contracts (sentinel errors, enqueue ordering) so service tests exercise the
// real consolidation and drain logic without a database.

type fakeRecordRepo struct {
	mu      sync.Mutex
	records map[models.Identity]models.Record
	putErr  error
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: make(map[models.Identity]models.Record)}
}

func (f *fakeRecordRepo) Put(_ context.Context, record models.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.putErr != nil {
		return f.putErr
	}
	f.records[record.Identity] = record
	return nil
}

func (f *fakeRecordRepo) Get(_ context.Context, id models.Identity) (models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok {
		return models.Record{}, fmt.Errorf("record %s: %w", id, store.ErrRecordNotFound)
	}
	return record, nil
}

func (f *fakeRecordRepo) List(_ context.Context, t models.RecordType, synced *bool) ([]models.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Record
	for _, record := range f.records {
		if record.Type != t {
			continue
		}
		if synced != nil && record.Synced != *synced {
			continue
		}
		out = append(out, record)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastWriteAt.Before(out[j].LastWriteAt) })
	return out, nil
}

func (f *fakeRecordRepo) Remove(_ context.Context, id models.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.records, id)
	return nil
}

func (f *fakeRecordRepo) RemoveSynced(_ context.Context, t models.RecordType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, record := range f.records {
		if record.Type == t && record.Synced {
			delete(f.records, id)
		}
	}
	return nil
}

func (f *fakeRecordRepo) Clear(_ context.Context, t models.RecordType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id := range f.records {
		if id.Type == t {
			delete(f.records, id)
		}
	}
	return nil
}

func (f *fakeRecordRepo) Count(_ context.Context, t models.RecordType) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for id := range f.records {
		if id.Type == t {
			n++
		}
	}
	return n, nil
}

func (f *fakeRecordRepo) get(id models.Identity) (models.Record, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	return record, ok
}

type fakeOperationRepo struct {
	mu        sync.Mutex
	ops       []models.Operation
	insertErr error
}

func newFakeOperationRepo() *fakeOperationRepo {
	return &fakeOperationRepo{}
}

func (f *fakeOperationRepo) Insert(_ context.Context, op models.Operation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.ops = append(f.ops, op)
	return nil
}

func (f *fakeOperationRepo) ListAll(_ context.Context) ([]models.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Operation, len(f.ops))
	copy(out, f.ops)
	return out, nil
}

func (f *fakeOperationRepo) ListByIdentity(_ context.Context, id models.Identity) ([]models.Operation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Operation
	for _, op := range f.ops {
		if op.Identity == id {
			out = append(out, op)
		}
	}
	return out, nil
}

func (f *fakeOperationRepo) Remove(_ context.Context, operationID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, op := range f.ops {
		if op.OperationID == operationID {
			f.ops = append(f.ops[:i], f.ops[i+1:]...)
			return nil
		}
	}
	return nil
}

func (f *fakeOperationRepo) RemoveByIdentity(_ context.Context, id models.Identity) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []models.Operation
	var removed int64
	for _, op := range f.ops {
		if op.Identity == id {
			removed++
			continue
		}
		kept = append(kept, op)
	}
	f.ops = kept
	return removed, nil
}

func (f *fakeOperationRepo) SetRetryCount(_ context.Context, operationID string, retryCount int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.ops {
		if f.ops[i].OperationID == operationID {
			f.ops[i].RetryCount = retryCount
			return nil
		}
	}
	return fmt.Errorf("operation %s: %w", operationID, store.ErrOperationNotFound)
}

func (f *fakeOperationRepo) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.ops)), nil
}

func (f *fakeOperationRepo) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ops = nil
	return nil
}

func (f *fakeOperationRepo) all() []models.Operation {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Operation, len(f.ops))
	copy(out, f.ops)
	return out
}

type fakeCacheRepo struct {
	mu      sync.Mutex
	entries map[string]models.CachedResponse
}

func newFakeCacheRepo() *fakeCacheRepo {
	return &fakeCacheRepo{entries: make(map[string]models.CachedResponse)}
}

func (f *fakeCacheRepo) Put(_ context.Context, entry models.CachedResponse) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[entry.Key] = entry
	return nil
}

func (f *fakeCacheRepo) Get(_ context.Context, key string) (models.CachedResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[key]
	if !ok {
		return models.CachedResponse{}, fmt.Errorf("cache key %s: %w", key, store.ErrCacheMiss)
	}
	return entry, nil
}

func (f *fakeCacheRepo) Prune(_ context.Context, now time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, entry := range f.entries {
		if entry.Expired(now) {
			delete(f.entries, key)
		}
	}
	return nil
}

func (f *fakeCacheRepo) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.entries)), nil
}

func (f *fakeCacheRepo) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = make(map[string]models.CachedResponse)
	return nil
}

type fakeSettingsRepo struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeSettingsRepo() *fakeSettingsRepo {
	return &fakeSettingsRepo{values: make(map[string]string)}
}

func (f *fakeSettingsRepo) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = value
	return nil
}

func (f *fakeSettingsRepo) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	value, ok := f.values[key]
	if !ok {
		return "", fmt.Errorf("setting %s: %w", key, store.ErrSettingNotFound)
	}
	return value, nil
}

func (f *fakeSettingsRepo) Clear(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values = make(map[string]string)
	return nil
}

func newFakeStorages() (*store.Storages, *fakeRecordRepo, *fakeOperationRepo, *fakeCacheRepo, *fakeSettingsRepo) {
	records := newFakeRecordRepo()
	ops := newFakeOperationRepo()
	cache := newFakeCacheRepo()
	settings := newFakeSettingsRepo()
	return &store.Storages{
		Records:    records,
		Operations: ops,
		Cache:      cache,
		Settings:   settings,
	}, records, ops, cache, settings
}

// remoteCall records one invocation against the fake remote service.
type remoteCall struct {
	method string
	t      models.RecordType
	id     string
}

/// fakeRemote is a scriptable RemoteService. Unset behaviours succeed: Create
// returns a server-issued id, Update echoes the payload, Delete and Ping are
// nil.
type fakeRemote struct {
	mu    sync.Mutex
	calls []remoteCall
	seq   int

	createErr error
	updateErr error
	deleteErr error
	listErr   error
	pingErr   error
	listItems map[models.RecordType][]models.RemoteRecord
	token     string
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{listItems: make(map[models.RecordType][]models.RemoteRecord)}
}

func (f *fakeRemote) record(method string, t models.RecordType, id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, remoteCall{method: method, t: t, id: id})
}

func (f *fakeRemote) callLog() []remoteCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]remoteCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeRemote) Login(context.Context, string, string) (models.Token, error) {
	return models.Token{SignedString: "fake-jwt", AccountID: 7}, nil
}

func (f *fakeRemote) Create(_ context.Context, t models.RecordType, payload json.RawMessage) (models.RemoteRecord, error) {
	f.record("create", t, "")
	f.mu.Lock()
	err := f.createErr
	f.seq++
	id := fmt.Sprintf("srv-%d", f.seq)
	f.mu.Unlock()
	if err != nil {
		return models.RemoteRecord{}, err
	}
	return models.RemoteRecord{ID: id, Payload: payload, UpdatedAt: time.Now()}, nil
}

func (f *fakeRemote) Update(_ context.Context, t models.RecordType, id string, payload json.RawMessage) (models.RemoteRecord, error) {
	f.record("update", t, id)
	f.mu.Lock()
	err := f.updateErr
	f.mu.Unlock()
	if err != nil {
		return models.RemoteRecord{}, err
	}
	return models.RemoteRecord{ID: id, Payload: payload, UpdatedAt: time.Now()}, nil
}

func (f *fakeRemote) Delete(_ context.Context, t models.RecordType, id string) error {
	f.record("delete", t, id)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteErr
}

func (f *fakeRemote) List(_ context.Context, t models.RecordType) ([]models.RemoteRecord, error) {
	f.record("list", t, "")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listItems[t], nil
}

func (f *fakeRemote) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeRemote) SetToken(token string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.token = token
}

func (f *fakeRemote) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

// fakeConnectivity is a hand-driven connectivity observable.
type fakeConnectivity struct {
	mu     sync.Mutex
	online bool
	ch     chan bool
}

func newFakeConnectivity(online bool) *fakeConnectivity {
	return &fakeConnectivity{online: online, ch: make(chan bool, 8)}
}

func (f *fakeConnectivity) Online() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.online
}

func (f *fakeConnectivity) Changes() <-chan bool { return f.ch }

func (f *fakeConnectivity) set(online bool) {
	f.mu.Lock()
	f.online = online
	f.mu.Unlock()
	f.ch <- online
}
