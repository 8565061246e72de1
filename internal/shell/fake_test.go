package shell

import (
	"bytes"
	"context"
	"io"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/autopo-py/minioctl/internal/storage"
)

type memObject struct {
	data     []byte
	modified time.Time
}

// memClient is an in-memory storage.Client.
type memClient struct {
	mu      sync.Mutex
	buckets map[string]map[string]memObject
	created map[string]time.Time
	now     time.Time

	opened int
	closed int

	// failures injected per operation name
	errs map[string]error
	// hooks run at the start of an operation, before any state change
	hooks map[string]func(ctx context.Context) error
	// afterHooks run once an operation has returned
	afterHooks map[string]func()
	// readErrs make reads of a key fail after the first byte
	readErrs map[string]error
}

func newMemClient() *memClient {
	return &memClient{
		buckets: make(map[string]map[string]memObject),
		created: make(map[string]time.Time),
		now:     time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
		errs:    make(map[string]error),
		hooks:   make(map[string]func(ctx context.Context) error),

		afterHooks: make(map[string]func()),
		readErrs:   make(map[string]error),
	}
}

func (m *memClient) before(ctx context.Context, op string) error {
	if hook, ok := m.hooks[op]; ok {
		if err := hook(ctx); err != nil {
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.errs[op]
}

func (m *memClient) after(op string) {
	if hook, ok := m.afterHooks[op]; ok {
		hook()
	}
}

func (m *memClient) ensureBucket(bucket string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[bucket]; !ok {
		m.buckets[bucket] = make(map[string]memObject)
		m.created[bucket] = m.now
	}
}

func (m *memClient) addObject(bucket, key string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[bucket]; !ok {
		m.buckets[bucket] = make(map[string]memObject)
		m.created[bucket] = m.now
	}
	m.buckets[bucket][key] = memObject{data: data, modified: m.now}
}

func (m *memClient) objectKeys(bucket string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.buckets[bucket]))
	for k := range m.buckets[bucket] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (m *memClient) hasBucket(bucket string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.buckets[bucket]
	return ok
}

func (m *memClient) ListBuckets(ctx context.Context) ([]storage.BucketInfo, error) {
	if err := m.before(ctx, "ListBuckets"); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]storage.BucketInfo, 0, len(m.buckets))
	for name := range m.buckets {
		out = append(out, storage.BucketInfo{Name: name, CreationDate: m.created[name]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memClient) BucketExists(ctx context.Context, bucket string) (bool, error) {
	if err := m.before(ctx, "BucketExists"); err != nil {
		return false, err
	}
	return m.hasBucket(bucket), nil
}

func (m *memClient) MakeBucket(ctx context.Context, bucket string) error {
	if err := m.before(ctx, "MakeBucket"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.buckets[bucket]; ok {
		return storage.ErrBucketExists
	}
	m.buckets[bucket] = make(map[string]memObject)
	m.created[bucket] = m.now
	return nil
}

func (m *memClient) RemoveBucket(ctx context.Context, bucket string) error {
	if err := m.before(ctx, "RemoveBucket"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	objs, ok := m.buckets[bucket]
	if !ok {
		return storage.ErrBucketNotFound
	}
	if len(objs) > 0 {
		return &storage.ServiceError{Op: "remove bucket " + bucket, Code: "BucketNotEmpty", Message: "The bucket you tried to delete is not empty", StatusCode: 409}
	}
	delete(m.buckets, bucket)
	delete(m.created, bucket)
	return nil
}

func (m *memClient) ListObjects(ctx context.Context, bucket string, recursive bool) iter.Seq2[storage.ObjectInfo, error] {
	return func(yield func(storage.ObjectInfo, error) bool) {
		defer m.after("ListObjects")

		if err := m.before(ctx, "ListObjects"); err != nil {
			yield(storage.ObjectInfo{}, err)
			return
		}
		for _, key := range m.objectKeys(bucket) {
			m.mu.Lock()
			obj, ok := m.buckets[bucket][key]
			m.mu.Unlock()
			if !ok {
				continue
			}
			info := storage.ObjectInfo{Key: key, Size: int64(len(obj.data)), LastModified: obj.modified}
			if !yield(info, nil) {
				return
			}
		}
	}
}

func (m *memClient) RemoveObject(ctx context.Context, bucket, key string) error {
	if err := m.before(ctx, "RemoveObject"); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.buckets[bucket], key)
	return nil
}

func (m *memClient) PutObject(ctx context.Context, bucket, key, localPath string) (storage.ObjectInfo, error) {
	if err := m.before(ctx, "PutObject"); err != nil {
		return storage.ObjectInfo{}, err
	}
	data, err := os.ReadFile(localPath)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	objs, ok := m.buckets[bucket]
	if !ok {
		return storage.ObjectInfo{}, storage.ErrBucketNotFound
	}
	objs[key] = memObject{data: data, modified: m.now}
	return storage.ObjectInfo{Key: key, Size: int64(len(data)), LastModified: m.now}, nil
}

func (m *memClient) lookup(bucket, key string) (memObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	objs, ok := m.buckets[bucket]
	if !ok {
		return memObject{}, storage.ErrBucketNotFound
	}
	obj, ok := objs[key]
	if !ok {
		return memObject{}, storage.ErrObjectNotFound
	}
	return obj, nil
}

func (m *memClient) FGetObject(ctx context.Context, bucket, key, localPath string) error {
	if err := m.before(ctx, "FGetObject"); err != nil {
		return err
	}
	obj, err := m.lookup(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(localPath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(localPath, obj.data, 0o644)
}

func (m *memClient) StatObject(ctx context.Context, bucket, key string) (storage.ObjectInfo, error) {
	if err := m.before(ctx, "StatObject"); err != nil {
		return storage.ObjectInfo{}, err
	}
	obj, err := m.lookup(bucket, key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(obj.data)), LastModified: obj.modified}, nil
}

func (m *memClient) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	if err := m.before(ctx, "GetObject"); err != nil {
		return nil, err
	}
	obj, err := m.lookup(bucket, key)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.opened++
	m.mu.Unlock()

	var r io.Reader = bytes.NewReader(obj.data)
	if err, ok := m.readErrs[key]; ok && len(obj.data) > 0 {
		r = io.MultiReader(bytes.NewReader(obj.data[:1]), &failingReader{err: err})
	}
	return &trackedReader{Reader: r, client: m}, nil
}

type failingReader struct {
	err error
}

func (r *failingReader) Read([]byte) (int, error) {
	return 0, r.err
}

type trackedReader struct {
	io.Reader
	client *memClient
}

func (r *trackedReader) Close() error {
	r.client.mu.Lock()
	defer r.client.mu.Unlock()
	r.client.closed++
	return nil
}

var _ storage.Client = (*memClient)(nil)
