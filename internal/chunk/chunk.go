// Package chunk builds gzip streams by splicing precompressed
// segments into freshly compressed content, without recompressing
// the precompressed parts.
//
// A Chunk accumulates literal data through an incremental deflate
// writer. Once finalized, a Chunk becomes immutable and its
// compressed body can be embedded into any number of other Chunks
// with AddChunk: the bytes are copied verbatim across a full-flush
// boundary and the trailer checksum is derived algebraically, so the
// cost of embedding is independent of the embedded content's
// uncompressed size. This is what makes it cheap to drop the same
// multi-megabyte payload into thousands of per-request pages.
package chunk

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"time"

	"github.com/sansecio/gzipchunk/internal/crccombine"
)

var (
	// ErrFinalized is returned by Add calls on a finalized Chunk.
	ErrFinalized = errors.New("chunk is finalized")

	// ErrNotFinalized is returned by AddChunk when the chunk to be
	// embedded has not been finalized yet.
	ErrNotFinalized = errors.New("embedded chunk is not finalized")
)

// gzip member framing (RFC 1952). The body between header and
// trailer is a raw deflate stream.
const (
	gzipID1     = 0x1f
	gzipID2     = 0x8b
	gzipDeflate = 8
	gzipOSAny   = 255

	headerSize  = 10
	trailerSize = 8
)

// finalBlock is a zero-length stored block with the final-block flag
// set. Because the body always ends byte-aligned (every segment ends
// on a flush boundary), this constant closes any deflate stream we
// produce.
var finalBlock = []byte{0x01, 0x00, 0x00, 0xff, 0xff}

// Chunk is a gzip stream under construction, or, once finalized, an
// immutable compressed segment that can be embedded into other
// Chunks. The zero value is not usable; create Chunks with New.
//
// A Chunk being built must only be mutated by a single goroutine. A
// finalized Chunk is read-only and safe for concurrent use by any
// number of goroutines, including concurrent AddChunk embeddings
// into different parents.
type Chunk struct {
	// ModTime fills the MTIME field of the gzip header written by
	// Output. The zero time means no timestamp is available.
	ModTime time.Time

	buf   bytes.Buffer // raw deflate body, no header or trailer
	crc   uint32       // CRC-32 (IEEE) of all uncompressed content
	size  uint64       // uncompressed length; trailer truncates to 32 bits
	level int
	done  bool
	co    *composer // nil once finalized
}

// New returns an empty Chunk compressing at the given level.
func New(level int) (*Chunk, error) {
	c := &Chunk{level: level}
	co, err := newComposer(&c.buf, level)
	if err != nil {
		return nil, err
	}
	c.co = co
	return c, nil
}

// NewPayload builds and finalizes a Chunk from a single payload
// repeated reps times. This is the startup path for long-lived
// reusable chunks.
func NewPayload(payload []byte, reps, level int) (*Chunk, error) {
	c, err := New(level)
	if err != nil {
		return nil, err
	}
	if err := c.AddRepeated(payload, reps); err != nil {
		return nil, err
	}
	if err := c.Finalize(); err != nil {
		return nil, err
	}
	return c, nil
}

// Add compresses p into the chunk.
func (c *Chunk) Add(p []byte) error {
	return c.AddRepeated(p, 1)
}

// AddString compresses the bytes of s into the chunk.
func (c *Chunk) AddString(s string) error {
	return c.AddRepeated([]byte(s), 1)
}

// AddRepeated compresses reps copies of p into the chunk. The
// repetition is streamed through the compressor: memory use is
// independent of reps. A reps of zero is a no-op.
func (c *Chunk) AddRepeated(p []byte, reps int) error {
	if c.done {
		return ErrFinalized
	}
	if reps < 0 {
		return fmt.Errorf("negative repeat count %d", reps)
	}
	if reps == 0 || len(p) == 0 {
		return nil
	}

	// Hash the payload once; each repetition extends the running
	// checksum algebraically.
	crcP := crc32.ChecksumIEEE(p)
	for range reps {
		if err := c.co.feed(p); err != nil {
			return fmt.Errorf("compressing %d bytes: %w", len(p), err)
		}
		c.crc = crccombine.Combine(c.crc, crcP, int64(len(p)))
	}
	c.size += uint64(reps) * uint64(len(p))
	return nil
}

// AddChunk embeds a finalized chunk. Its compressed body is copied
// verbatim (never recompressed) across a full-flush boundary, and
// the running checksum and length are extended from the embedded
// chunk's metadata alone. The embedded chunk is not modified and may
// be embedded concurrently elsewhere.
func (c *Chunk) AddChunk(other *Chunk) error {
	if c.done {
		return ErrFinalized
	}
	if !other.done {
		return ErrNotFinalized
	}
	if other.size == 0 && other.buf.Len() == 0 {
		// Embedding an empty chunk changes nothing; skip the
		// boundary so the output is identical to not embedding it.
		return nil
	}

	if err := c.co.boundary(&c.buf); err != nil {
		return fmt.Errorf("flushing before embed: %w", err)
	}
	c.buf.Write(other.buf.Bytes())
	c.crc = crccombine.Combine(c.crc, other.crc, int64(other.size))
	c.size += other.size
	return nil
}

// Finalize freezes the chunk: pending compressed data is flushed,
// the compressor is released, and the chunk becomes immutable and
// embeddable. Idempotent after the first call.
func (c *Chunk) Finalize() error {
	if c.done {
		return nil
	}
	if err := c.co.finish(); err != nil {
		return fmt.Errorf("finalizing chunk: %w", err)
	}
	c.co = nil
	c.done = true
	return nil
}

// Finalized reports whether the chunk is frozen.
func (c *Chunk) Finalized() bool {
	return c.done
}

// Len returns the total uncompressed length represented by the
// chunk, including repeated and embedded content.
func (c *Chunk) Len() uint64 {
	return c.size
}

// CRC returns the CRC-32 of the chunk's uncompressed content.
func (c *Chunk) CRC() uint32 {
	return c.crc
}

// CompressedLen returns the size of the compressed body, excluding
// gzip header and trailer.
func (c *Chunk) CompressedLen() int {
	return c.buf.Len()
}

// Output finalizes the chunk if needed and returns it as a complete
// standalone gzip member: header, compressed body, closing block and
// trailer. Any RFC 1952 decoder yields the exact concatenation of
// everything added, in order.
func (c *Chunk) Output() ([]byte, error) {
	if err := c.Finalize(); err != nil {
		return nil, err
	}

	out := make([]byte, 0, headerSize+c.buf.Len()+len(finalBlock)+trailerSize)
	out = c.appendHeader(out)
	out = append(out, c.buf.Bytes()...)
	out = append(out, finalBlock...)

	var trailer [trailerSize]byte
	binary.LittleEndian.PutUint32(trailer[:4], c.crc)
	binary.LittleEndian.PutUint32(trailer[4:], uint32(c.size))
	return append(out, trailer[:]...), nil
}

func (c *Chunk) appendHeader(out []byte) []byte {
	hdr := [headerSize]byte{0: gzipID1, 1: gzipID2, 2: gzipDeflate, 9: gzipOSAny}

	if !c.ModTime.IsZero() {
		if unix := c.ModTime.Unix(); unix > 0 && unix < 1<<32 {
			binary.LittleEndian.PutUint32(hdr[4:8], uint32(unix))
		}
	}

	// XFL advisory field.
	switch c.level {
	case BestCompression:
		hdr[8] = 2
	case BestSpeed:
		hdr[8] = 4
	}

	return append(out, hdr[:]...)
}
