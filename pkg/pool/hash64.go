package pool

import (
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
)

var (
	Hash64 = hash64Pool{
		pool: sync.Pool{
			New: func() interface{} {
				return xxhash.New()
			},
		},
	}
)

type hash64Pool struct {
	pool sync.Pool
}

func (b *hash64Pool) Get() *xxhash.Digest {
	xxh := b.pool.Get().(*xxhash.Digest)
	xxh.Reset()
	return xxh
}

func (b *hash64Pool) Put(xxh *xxhash.Digest) {
	b.pool.Put(xxh)
}

// Hex formats a digest sum as 16 lowercase hex characters.
func Hex(sum uint64) string {
	out := strconv.FormatUint(sum, 16)
	for len(out) < 16 {
		out = "0" + out
	}
	return out
}

// HashStrings hashes parts with a separator so that ("ab", "c") and ("a", "bc") differ.
func HashStrings(parts ...string) uint64 {
	xxh := Hash64.Get()
	defer Hash64.Put(xxh)
	for i := range parts {
		_, _ = xxh.WriteString(parts[i])
		_, _ = xxh.Write([]byte{0})
	}
	return xxh.Sum64()
}
