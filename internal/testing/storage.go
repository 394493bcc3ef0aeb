package testing

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/imamik/simrun/internal/provider"
)

// Operation names accepted by FakeStorage.FailOn.
const (
	OpList         = "List"
	OpHead         = "Head"
	OpPut          = "Put"
	OpDelete       = "Delete"
	OpDeletePrefix = "DeletePrefix"
	OpPresignPut   = "PresignPut"
	OpPresignGet   = "PresignGet"
)

// FakeStorage is an in-memory provider.StorageAPI. Signed URLs point at
// BaseURL and carry the expiry as a query parameter.
type FakeStorage struct {
	mu sync.Mutex

	BaseURL string
	Now     func() time.Time

	objects  map[string][]byte
	modified map[string]time.Time
	failures map[string]error
	calls    map[string]int
}

var _ provider.StorageAPI = (*FakeStorage)(nil)

// NewFakeStorage returns an empty FakeStorage.
func NewFakeStorage() *FakeStorage {
	return &FakeStorage{
		BaseURL:  "https://storage.test/bucket",
		Now:      time.Now,
		objects:  make(map[string][]byte),
		modified: make(map[string]time.Time),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// FailOn makes every following call of op return err. A nil err clears it.
func (s *FakeStorage) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Calls returns how often op was called.
func (s *FakeStorage) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Keys returns every stored key, sorted.
func (s *FakeStorage) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Seed stores an object without counting a call.
func (s *FakeStorage) Seed(key string, body []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = body
	s.modified[key] = s.Now()
}

func (s *FakeStorage) call(op string) error {
	s.calls[op]++
	return s.failures[op]
}

func (s *FakeStorage) ref(key string) provider.FileRef {
	return provider.FileRef{
		Key:          key,
		Size:         int64(len(s.objects[key])),
		ETag:         strconv.Quote(strconv.Itoa(len(s.objects[key]))),
		LastModified: s.modified[key],
	}
}

// List implements provider.StorageAPI.
func (s *FakeStorage) List(_ context.Context, prefix string) ([]provider.FileRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpList); err != nil {
		return nil, err
	}
	var out []provider.FileRef
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, s.ref(k))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Head implements provider.StorageAPI.
func (s *FakeStorage) Head(_ context.Context, key string) (*provider.FileRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpHead); err != nil {
		return nil, err
	}
	if _, ok := s.objects[key]; !ok {
		return nil, nil
	}
	ref := s.ref(key)
	return &ref, nil
}

// Put implements provider.StorageAPI.
func (s *FakeStorage) Put(_ context.Context, key string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpPut); err != nil {
		return err
	}
	s.objects[key] = append([]byte(nil), body...)
	s.modified[key] = s.Now()
	return nil
}

// Delete implements provider.StorageAPI.
func (s *FakeStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpDelete); err != nil {
		return err
	}
	delete(s.objects, key)
	delete(s.modified, key)
	return nil
}

// DeletePrefix implements provider.StorageAPI.
func (s *FakeStorage) DeletePrefix(_ context.Context, prefix string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpDeletePrefix); err != nil {
		return err
	}
	for k := range s.objects {
		if strings.HasPrefix(k, prefix) {
			delete(s.objects, k)
			delete(s.modified, k)
		}
	}
	return nil
}

// PresignPut implements provider.StorageAPI.
func (s *FakeStorage) PresignPut(_ context.Context, key string, expires time.Duration) (*provider.SignedURL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpPresignPut); err != nil {
		return nil, err
	}
	return s.sign("PUT", key, expires), nil
}

// PresignGet implements provider.StorageAPI.
func (s *FakeStorage) PresignGet(_ context.Context, key string, expires time.Duration) (*provider.SignedURL, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.call(OpPresignGet); err != nil {
		return nil, err
	}
	return s.sign("GET", key, expires), nil
}

func (s *FakeStorage) sign(method, key string, expires time.Duration) *provider.SignedURL {
	q := url.Values{}
	q.Set("X-Amz-Expires", strconv.Itoa(int(expires.Seconds())))
	return &provider.SignedURL{
		URL:       s.BaseURL + "/" + key + "?" + q.Encode(),
		Method:    method,
		ExpiresAt: s.Now().Add(expires),
	}
}
