// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Mounted-file secret store (Kubernetes / Docker secret mounts)

package secrets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

type fileStore struct {
	dir string
	mu  sync.RWMutex
	// 进程内覆盖值，不落盘
	overrides map[string]string
}

// NewFileStore 创建从目录读取 secret 的 store，每个文件名即 key，内容即值
func NewFileStore(dir string) (Store, error) {
	if dir == "" {
		dir = "/etc/secrets"
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("secrets dir not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("secrets path is not a directory: %s", dir)
	}
	return &fileStore{dir: dir, overrides: make(map[string]string)}, nil
}

func (f *fileStore) Get(ctx context.Context, key string) (string, error) {
	f.mu.RLock()
	if v, ok := f.overrides[key]; ok {
		f.mu.RUnlock()
		return v, nil
	}
	f.mu.RUnlock()

	if strings.Contains(key, "..") || strings.ContainsRune(key, filepath.Separator) {
		return "", fmt.Errorf("invalid secret key: %s", key)
	}
	data, err := os.ReadFile(filepath.Join(f.dir, key))
	if err != nil {
		return "", fmt.Errorf("secret not found: %s", key)
	}
	return strings.TrimRight(string(data), "\r\n"), nil
}

func (f *fileStore) Set(ctx context.Context, key string, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overrides[key] = value
	return nil
}

func (f *fileStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.overrides, key)
	return nil
}

func (f *fileStore) List(ctx context.Context, prefix string) ([]string, error) {
	seen := make(map[string]struct{})
	if entries, err := os.ReadDir(f.dir); err == nil {
		for _, e := range entries {
			if !e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
				seen[e.Name()] = struct{}{}
			}
		}
	}
	f.mu.RLock()
	for k := range f.overrides {
		if strings.HasPrefix(k, prefix) {
			seen[k] = struct{}{}
		}
	}
	f.mu.RUnlock()

	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
