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

// Environment variable based secret store

package secrets

import (
	"context"
	"fmt"
	"os"
	"strings"
)

type envStore struct{}

// NewEnvStore 创建环境变量 secret store
//
// key 按 EnvKey 规则映射为环境变量名，如 db.password -> DB_PASSWORD。
func NewEnvStore() Store {
	return &envStore{}
}

var envKeyReplacer = strings.NewReplacer(".", "_", "-", "_", "/", "_")

// EnvKey 将 secret key 映射为环境变量名
func EnvKey(key string) string {
	return strings.ToUpper(envKeyReplacer.Replace(key))
}

func (e *envStore) Get(ctx context.Context, key string) (string, error) {
	name := EnvKey(key)
	value, ok := os.LookupEnv(name)
	if !ok || value == "" {
		return "", fmt.Errorf("environment variable not set: %s", name)
	}
	return value, nil
}

func (e *envStore) Set(ctx context.Context, key string, value string) error {
	return os.Setenv(EnvKey(key), value)
}

func (e *envStore) Delete(ctx context.Context, key string) error {
	return os.Unsetenv(EnvKey(key))
}

func (e *envStore) List(ctx context.Context, prefix string) ([]string, error) {
	p := EnvKey(prefix)
	var keys []string
	for _, env := range os.Environ() {
		name, _, _ := strings.Cut(env, "=")
		if strings.HasPrefix(name, p) {
			keys = append(keys, name)
		}
	}
	return keys, nil
}
