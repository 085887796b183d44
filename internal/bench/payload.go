package bench

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mathrand "math/rand/v2"
)

// ChecksumSize is the length of the XOR-fold checksum stored in the last
// bytes of every payload.
const ChecksumSize = 128

// checksum XOR-folds the first size-ChecksumSize bytes into 128 buckets
// indexed by position mod 128.
func checksum(data []byte, size uint64) [ChecksumSize]byte {
	var sum [ChecksumSize]byte
	contentSize := size - ChecksumSize
	for i := uint64(0); i < contentSize; i++ {
		sum[i%ChecksumSize] ^= data[i]
	}
	return sum
}

// GeneratePayload produces size bytes whose prefix is a pseudo-random stream
// and whose last 128 bytes are the XOR-fold checksum of the prefix. The
// stream is seeded freshly per invocation.
func GeneratePayload(size uint64) ([]byte, error) {
	if size <= ChecksumSize {
		return nil, fmt.Errorf("payload size (%d) must be greater than checksum size (%d)", size, ChecksumSize)
	}

	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("failed to seed payload generator: %w", err)
	}
	rng := mathrand.New(mathrand.NewChaCha8(seed))

	contentSize := size - ChecksumSize
	data := make([]byte, size)

	i := uint64(0)
	for ; i+8 <= contentSize; i += 8 {
		binary.LittleEndian.PutUint64(data[i:], rng.Uint64())
	}
	for ; i < contentSize; i++ {
		data[i] = byte(rng.Uint64())
	}

	sum := checksum(data, size)
	copy(data[contentSize:], sum[:])
	return data, nil
}

// VerifyPayload reports whether data is exactly size bytes long and its
// trailing checksum matches a recomputed fold of the prefix. A false return
// means bytes were lost or corrupted in transport.
func VerifyPayload(data []byte, size uint64) bool {
	if size <= ChecksumSize || uint64(len(data)) != size {
		return false
	}
	sum := checksum(data, size)
	contentSize := size - ChecksumSize
	for i := 0; i < ChecksumSize; i++ {
		if data[contentSize+uint64(i)] != sum[i] {
			return false
		}
	}
	return true
}
