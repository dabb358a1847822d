// Package registry holds published driver properties such as
// "webdriver.chrome.driver" so that automation code can find the
// executables the engine installed.
package registry

import (
	"os"
	"sort"
	"strings"
	"sync"
)

// Store is a key/value registry of published properties. Implementations
// must be safe for concurrent use.
type Store interface {
	Set(property, value string) error
	Get(property string) (string, bool)
}

// Memory is an in-process Store.
type Memory struct {
	m sync.Map
}

// NewMemory creates an empty in-process store.
func NewMemory() *Memory {
	return &Memory{}
}

// Set implements Store.
func (s *Memory) Set(property, value string) error {
	s.m.Store(property, value)
	return nil
}

// Get implements Store.
func (s *Memory) Get(property string) (string, bool) {
	v, ok := s.m.Load(property)
	if !ok {
		return "", false
	}
	return v.(string), true
}

// Snapshot returns a copy of every published property.
func (s *Memory) Snapshot() map[string]string {
	out := make(map[string]string)
	s.m.Range(func(k, v any) bool {
		out[k.(string)] = v.(string)
		return true
	})
	return out
}

// Env publishes properties as environment variables of the current
// process, e.g. webdriver.chrome.driver becomes WEBDRIVER_CHROME_DRIVER.
type Env struct{}

// EnvName maps a property name to its environment variable name.
func EnvName(property string) string {
	return strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(property))
}

// Set implements Store.
func (Env) Set(property, value string) error {
	return os.Setenv(EnvName(property), value)
}

// Get implements Store.
func (Env) Get(property string) (string, bool) {
	return os.LookupEnv(EnvName(property))
}

// Multi fans writes out to every store and reads from the first that has
// the property.
type Multi []Store

// Set implements Store. It stops at the first failing store.
func (m Multi) Set(property, value string) error {
	for _, s := range m {
		if err := s.Set(property, value); err != nil {
			return err
		}
	}
	return nil
}

// Get implements Store.
func (m Multi) Get(property string) (string, bool) {
	for _, s := range m {
		if v, ok := s.Get(property); ok {
			return v, true
		}
	}
	return "", false
}

// Lines renders properties as sorted "name=value" lines.
func Lines(props map[string]string) []string {
	lines := make([]string, 0, len(props))
	for k, v := range props {
		lines = append(lines, k+"="+v)
	}
	sort.Strings(lines)
	return lines
}
