package kcommon

import (
	"context"
	crypto_rand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"strconv"
	"sync"

	"github.com/xinkaiwang/helloecho/libs/xklib/klogging"
)

const defaultCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

type SafeRand struct {
	mu         sync.Mutex
	seededRand *rand.Rand
}

var safeRand SafeRand

type OpGetRand func(*rand.Rand)

// GetRandom runs op under the shared lock. The source is seeded from crypto/rand on first use,
// falling back to a fixed seed if crypto/rand fails.
func GetRandom(ctx context.Context, op OpGetRand) {
	safeRand.mu.Lock()
	defer safeRand.mu.Unlock()
	if safeRand.seededRand == nil {
		var seed int64 = 1
		buf := make([]byte, 8)
		if _, err := crypto_rand.Read(buf); err != nil {
			klogging.Warning(ctx).WithError(err).Log("CryptoRandSeedFailed", "")
		} else {
			seed = int64(binary.BigEndian.Uint64(buf))
			klogging.Debug(ctx).With("seed", strconv.FormatInt(seed, 16)).Log("CryptoRandSeedSucc", "")
		}
		safeRand.seededRand = rand.New(rand.NewSource(seed))
	}
	op(safeRand.seededRand)
}

func StringWithCharset(ctx context.Context, length int, charset string) string {
	b := make([]byte, length)
	GetRandom(ctx, func(r *rand.Rand) {
		for i := range b {
			b[i] = charset[r.Intn(len(charset))]
		}
	})
	return string(b)
}

func RandomString(ctx context.Context, length int) string {
	return StringWithCharset(ctx, length, defaultCharset)
}

// NewTraceId example: NewTraceId(ctx, "req_", 8) -> "req_Q3ZK81AD"
func NewTraceId(ctx context.Context, prefix string, size int) string {
	return prefix + RandomString(ctx, size)
}
