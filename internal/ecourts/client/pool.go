package client

import (
	"sync"
	"time"

	"casetrack-backend/internal/ecourts"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Factory builds a client with a fresh upstream session for court.
type Factory func(court ecourts.Court) (*Client, error)

// Pool keeps one client per court. Sessions upstream expire, so entries are
// dropped after ttl and rebuilt on the next Get.
type Pool struct {
	mutex   sync.Mutex
	cache   *expirable.LRU[string, *Client]
	factory Factory
}

func NewPool(size int, ttl time.Duration, factory Factory) *Pool {
	if size <= 0 {
		size = 64
	}
	if ttl <= 0 {
		ttl = time.Minute * 15
	}
	return &Pool{
		cache:   expirable.NewLRU[string, *Client](size, nil, ttl),
		factory: factory,
	}
}

func (p *Pool) Get(court ecourts.Court) (*Client, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	key := court.String()
	cached, hit := p.cache.Get(key)
	if hit {
		return cached, nil
	}
	client, err := p.factory(court)
	if err != nil {
		return nil, err
	}
	p.cache.Add(key, client)
	return client, nil
}

// Evict drops the session of court, the next Get starts a new one.
func (p *Pool) Evict(court ecourts.Court) {
	p.cache.Remove(court.String())
}
