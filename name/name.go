// Package name implements interned identifiers used as the primary key for
// resources, jobs, and semaphores declared across the render-graph core.
package name

import (
	"hash/fnv"
	"sync"
)

// Name is a 64-bit hash of a string identifier. It is comparable in O(1)
// and cheap to copy; every job, resource, and semaphore is keyed by one.
type Name uint64

// None is the zero Name. No interned identifier ever hashes to it in
// practice, but callers must not rely on that — treat it only as "absent".
const None Name = 0

var (
	registryMu sync.RWMutex
	registry   = map[Name]string{}
)

// New interns s and returns its Name, recording the reverse mapping for
// String/debugging purposes. Interning the same string twice returns the
// same Name.
func New(s string) Name {
	n := hash(s)

	registryMu.RLock()
	_, known := registry[n]
	registryMu.RUnlock()
	if known {
		return n
	}

	registryMu.Lock()
	registry[n] = s
	registryMu.Unlock()
	return n
}

func hash(s string) Name {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	return Name(h.Sum64())
}

// String returns the original string a Name was interned from, or a
// placeholder if it was never interned in this process (e.g. it arrived
// over the wire as a raw hash).
func (n Name) String() string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	if s, ok := registry[n]; ok {
		return s
	}
	return "<unregistered name>"
}

// WithFrame derives a resource-storage key for (name, frameIndex) using the
// large-prime mixing scheme from the data model: hash(name) + frameIndex *
// LARGE_PRIME. It is used by ResourceStorage to key per-frame GPU objects.
func (n Name) WithFrame(frameIndex uint32) Name {
	const largePrime = Name(82646923)
	return n + largePrime*Name(frameIndex)
}
