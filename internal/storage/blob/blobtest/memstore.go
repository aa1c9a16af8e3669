// Package blobtest provides an in-memory blob.Store for tests.
package blobtest

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"portfolio/internal/storage/blob"
)

// MemStore is a blob.Store backed by a map. Paths are compared after
// blob.CleanPath. Errors can be injected per operation and per path.
type MemStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	fail    map[string]error
	calls   []string
}

func NewMemStore() *MemStore {
	return &MemStore{
		objects: make(map[string][]byte),
		fail:    make(map[string]error),
	}
}

// Put stores data without recording a call.
func (m *MemStore) Put(p string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[strings.Trim(p, "/")] = append([]byte(nil), data...)
}

// Has reports whether p is stored, without recording a call.
func (m *MemStore) Has(p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.objects[strings.Trim(p, "/")]
	return ok
}

// Fail makes op ("exists", "download", "upload", "delete", "list") on p
// return err. An empty p matches every path.
func (m *MemStore) Fail(op, p string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.fail[op+":"+strings.Trim(p, "/")] = err
}

// Calls returns "op:path" for every call made so far.
func (m *MemStore) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]string(nil), m.calls...)
}

func (m *MemStore) begin(ctx context.Context, op, p string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	clean, err := blob.CleanPath(p)
	if err != nil {
		return "", err
	}

	m.calls = append(m.calls, op+":"+clean)

	if err, ok := m.fail[op+":"+clean]; ok {
		return "", err
	}
	if err, ok := m.fail[op+":"]; ok {
		return "", err
	}

	return clean, nil
}

func (m *MemStore) Exists(ctx context.Context, p string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	clean, err := m.begin(ctx, "exists", p)
	if err != nil {
		return false, err
	}

	_, ok := m.objects[clean]
	return ok, nil
}

func (m *MemStore) Download(ctx context.Context, p string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	clean, err := m.begin(ctx, "download", p)
	if err != nil {
		return nil, err
	}

	data, ok := m.objects[clean]
	if !ok {
		return nil, fmt.Errorf("%s: %w", clean, blob.ErrNotFound)
	}

	return append([]byte(nil), data...), nil
}

func (m *MemStore) Upload(ctx context.Context, p string, data []byte, opts blob.PutOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clean, err := m.begin(ctx, "upload", p)
	if err != nil {
		return err
	}

	if _, ok := m.objects[clean]; ok && !opts.Overwrite {
		return fmt.Errorf("%s: %w", clean, blob.ErrExists)
	}

	m.objects[clean] = append([]byte(nil), data...)
	return nil
}

func (m *MemStore) Delete(ctx context.Context, p string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	clean, err := m.begin(ctx, "delete", p)
	if err != nil {
		return err
	}

	delete(m.objects, clean)
	return nil
}

func (m *MemStore) List(ctx context.Context, dir string) ([]blob.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir = strings.Trim(dir, "/")
	m.calls = append(m.calls, "list:"+dir)
	if err, ok := m.fail["list:"+dir]; ok {
		return nil, err
	}
	if err, ok := m.fail["list:"]; ok {
		return nil, err
	}

	var out []blob.Object
	for p, data := range m.objects {
		if path.Dir(p) != dir && !(dir == "" && !strings.Contains(p, "/")) {
			continue
		}
		out = append(out, blob.Object{Name: path.Base(p), Size: int64(len(data)), LastModified: time.Time{}})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out, nil
}
