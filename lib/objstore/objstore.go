// Package objstore holds the object storage contract the image pipeline
// uploads through. The daemon wires a directory-backed store; tests use
// the in-memory one. A cloud bucket implementation would satisfy the same
// interface.
package objstore

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

type Store interface {
	Exists(ctx context.Context, key string) (bool, error)
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	PublicURL(key string) string
}

// DirStore writes objects under a base directory, mirroring the key as a
// relative path. Public URLs are formed against a configured base URL so
// the stored URLs stay valid when the directory is served statically.
type DirStore struct {
	dir     string
	baseUrl string
}

func NewDirStore(dir, baseUrl string) (*DirStore, error) {
	err := os.MkdirAll(dir, 0755)
	if err != nil {
		return nil, err
	}
	return &DirStore{
		dir:     dir,
		baseUrl: strings.TrimRight(baseUrl, "/"),
	}, nil
}

func (s *DirStore) keyPath(key string) (string, error) {
	cleaned := path.Clean("/" + key)
	if cleaned == "/" {
		return "", fmt.Errorf("invalid object key: %q", key)
	}
	return filepath.Join(s.dir, filepath.FromSlash(cleaned)), nil
}

func (s *DirStore) Exists(ctx context.Context, key string) (bool, error) {
	p, err := s.keyPath(key)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *DirStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	p, err := s.keyPath(key)
	if err != nil {
		return "", err
	}
	err = os.MkdirAll(filepath.Dir(p), 0755)
	if err != nil {
		return "", err
	}
	err = os.WriteFile(p, data, 0644)
	if err != nil {
		return "", err
	}
	return s.PublicURL(key), nil
}

func (s *DirStore) PublicURL(key string) string {
	escaped := (&url.URL{Path: "/" + strings.TrimLeft(key, "/")}).EscapedPath()
	return s.baseUrl + escaped
}

// MemStore is a Store held entirely in memory, for tests.
type MemStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{objects: map[string][]byte{}}
}

func (s *MemStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func (s *MemStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[key] = buf
	return s.PublicURL(key), nil
}

func (s *MemStore) PublicURL(key string) string {
	return "mem://" + strings.TrimLeft(key, "/")
}

// Keys returns every stored key, for assertions in tests.
func (s *MemStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.objects))
	for k := range s.objects {
		keys = append(keys, k)
	}
	return keys
}
