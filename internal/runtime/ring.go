package runtime

import (
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"
)

const defaultReplicas = 64

// Ring places identities on hosts with consistent hashing so every process
// in the cluster resolves an identity to the same owner without
// coordination.
type Ring struct {
	mu       sync.RWMutex
	replicas int
	hashes   []uint64
	owners   map[uint64]string
	hosts    map[string]struct{}
}

func NewRing(replicas int) *Ring {
	if replicas <= 0 {
		replicas = defaultReplicas
	}
	return &Ring{
		replicas: replicas,
		owners:   make(map[uint64]string),
		hosts:    make(map[string]struct{}),
	}
}

func (r *Ring) Add(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hosts[host]; ok {
		return
	}
	r.hosts[host] = struct{}{}
	for i := 0; i < r.replicas; i++ {
		h := xxhash.Sum64String(fmt.Sprintf("%s#%d", host, i))
		if _, taken := r.owners[h]; taken {
			continue
		}
		r.owners[h] = host
		r.hashes = append(r.hashes, h)
	}
	sort.Slice(r.hashes, func(i, j int) bool { return r.hashes[i] < r.hashes[j] })
}

func (r *Ring) Remove(host string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.hosts[host]; !ok {
		return
	}
	delete(r.hosts, host)
	kept := r.hashes[:0]
	for _, h := range r.hashes {
		if r.owners[h] == host {
			delete(r.owners, h)
			continue
		}
		kept = append(kept, h)
	}
	r.hashes = kept
}

// Owner returns the host responsible for key, or "" when the ring is empty.
func (r *Ring) Owner(key string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.hashes) == 0 {
		return ""
	}
	h := xxhash.Sum64String(key)
	i := sort.Search(len(r.hashes), func(i int) bool { return r.hashes[i] >= h })
	if i == len(r.hashes) {
		i = 0
	}
	return r.owners[r.hashes[i]]
}

func (r *Ring) Hosts() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.hosts))
	for h := range r.hosts {
		out = append(out, h)
	}
	sort.Strings(out)
	return out
}
