package tracker

import "sync"

type keyedLock struct {
	sync.Mutex
	refs int
}

// keyedMutex serializes work per key, distinct keys never block each other.
type keyedMutex struct {
	mutex sync.Mutex
	locks map[string]*keyedLock
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: map[string]*keyedLock{}}
}

// Lock blocks until key is free and returns the matching unlock.
func (k *keyedMutex) Lock(key string) func() {
	k.mutex.Lock()
	lock, ok := k.locks[key]
	if !ok {
		lock = &keyedLock{}
		k.locks[key] = lock
	}
	lock.refs++
	k.mutex.Unlock()

	lock.Lock()
	return func() {
		lock.Unlock()
		k.mutex.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(k.locks, key)
		}
		k.mutex.Unlock()
	}
}
