package crccombine

import (
	"hash/crc32"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCombineMatchesDirectChecksum(t *testing.T) {
	data := []byte("++?????++ Out of Cheese Error. Redo From Start.<br/>\n")
	for split := 0; split <= len(data); split++ {
		a, b := data[:split], data[split:]
		got := Combine(crc32.ChecksumIEEE(a), crc32.ChecksumIEEE(b), int64(len(b)))
		assert.Equal(t, crc32.ChecksumIEEE(data), got, "split at %d", split)
	}
}

func TestCombineRandomRanges(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for range 50 {
		a := make([]byte, rng.Intn(1<<16))
		b := make([]byte, rng.Intn(1<<16))
		rng.Read(a)
		rng.Read(b)

		whole := append(append([]byte{}, a...), b...)
		got := Combine(crc32.ChecksumIEEE(a), crc32.ChecksumIEEE(b), int64(len(b)))
		assert.Equal(t, crc32.ChecksumIEEE(whole), got)
	}
}

func TestCombineIdentities(t *testing.T) {
	crc := crc32.ChecksumIEEE([]byte("some range"))

	// Empty A on the left.
	assert.Equal(t, crc, Combine(0, crc, int64(len("some range"))))

	// Empty B on the right.
	assert.Equal(t, crc, Combine(crc, 0, 0))

	// Negative length is treated as empty.
	assert.Equal(t, crc, Combine(crc, 0, -1))
}

func TestCombineChained(t *testing.T) {
	parts := [][]byte{
		[]byte("AA"),
		[]byte("BBBBB"),
		[]byte("CC"),
		{},
		[]byte("trailing"),
	}

	var whole []byte
	crc := uint32(0)
	for _, p := range parts {
		whole = append(whole, p...)
		crc = Combine(crc, crc32.ChecksumIEEE(p), int64(len(p)))
	}
	assert.Equal(t, crc32.ChecksumIEEE(whole), crc)
}

func TestCombineLargeLength(t *testing.T) {
	// The operator squaring must hold up for lengths beyond 32 bits.
	// Verify against an incrementally extended checksum of zero bytes.
	const lenB = int64(1 << 20)
	b := make([]byte, lenB)
	a := []byte("prefix")

	got := Combine(crc32.ChecksumIEEE(a), crc32.ChecksumIEEE(b), lenB)
	want := crc32.Update(crc32.ChecksumIEEE(a), crc32.IEEETable, b)
	assert.Equal(t, want, got)
}

func BenchmarkCombine(b *testing.B) {
	crcA := crc32.ChecksumIEEE([]byte("a"))
	crcB := crc32.ChecksumIEEE([]byte("b"))
	for i := 0; i < b.N; i++ {
		Combine(crcA, crcB, 52*100000)
	}
}
