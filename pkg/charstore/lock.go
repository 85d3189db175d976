package charstore

import (
	"strings"
	"sync"
)

var recordLocks sync.Map

func recordLockKey(namespace, path string) string {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		trimmed = "__record__"
	}
	return namespace + "\x00" + trimmed
}

func recordLockFor(namespace, path string) *sync.Mutex {
	key := recordLockKey(namespace, path)
	if val, ok := recordLocks.Load(key); ok {
		return val.(*sync.Mutex)
	}
	mu := &sync.Mutex{}
	actual, _ := recordLocks.LoadOrStore(key, mu)
	return actual.(*sync.Mutex)
}
