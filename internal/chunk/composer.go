package chunk

import (
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/flate"
)

// Compression levels, copied from the flate package so that callers
// don't also have to import it.
const (
	NoCompression      = flate.NoCompression
	BestSpeed          = flate.BestSpeed
	BestCompression    = flate.BestCompression
	DefaultCompression = flate.DefaultCompression
	HuffmanOnly        = flate.HuffmanOnly
)

func validLevel(level int) error {
	if level >= HuffmanOnly && level <= BestCompression {
		return nil
	}
	return fmt.Errorf("invalid compression level %d: want value in range [%d, %d]",
		level, HuffmanOnly, BestCompression)
}

// Deflate writers are expensive to construct (large internal
// buffers), so retired writers are pooled per level and revived with
// Reset.
var writerPools [BestCompression - HuffmanOnly + 1]sync.Pool

func writerPool(level int) *sync.Pool {
	return &writerPools[level-HuffmanOnly]
}

// composer wraps an incremental deflate writer and owns the boundary
// bookkeeping that makes splicing possible. It writes raw deflate
// data (no gzip framing) to the destination it was created with.
type composer struct {
	fw    *flate.Writer
	level int

	// dirty is true when the writer has consumed literal data since
	// the last boundary, i.e. its dictionary may be populated and
	// compressed output may be pending.
	dirty bool
}

func newComposer(dst io.Writer, level int) (*composer, error) {
	if err := validLevel(level); err != nil {
		return nil, err
	}

	if fw, ok := writerPool(level).Get().(*flate.Writer); ok {
		fw.Reset(dst)
		return &composer{fw: fw, level: level}, nil
	}

	fw, err := flate.NewWriter(dst, level)
	if err != nil {
		return nil, fmt.Errorf("creating deflate writer: %w", err)
	}
	return &composer{fw: fw, level: level}, nil
}

// feed compresses p into the destination.
func (co *composer) feed(p []byte) error {
	co.dirty = true
	_, err := co.fw.Write(p)
	return err
}

// boundary forces a byte-aligned synchronization point and clears
// the writer's dictionary, the equivalent of zlib's Z_FULL_FLUSH.
// After boundary, externally produced deflate data may be appended
// to the destination verbatim, and subsequent feeds start a fresh
// segment that back-references nothing before the boundary. A no-op
// when the writer is already clean.
func (co *composer) boundary(dst io.Writer) error {
	if !co.dirty {
		return nil
	}
	if err := co.fw.Flush(); err != nil {
		return err
	}
	co.fw.Reset(dst)
	co.dirty = false
	return nil
}

// finish flushes pending compressed data and retires the writer to
// the pool. The deflate stream is left open: no final block is
// written, so the destination remains embeddable. Output appends a
// precomputed final block instead.
func (co *composer) finish() error {
	var err error
	if co.dirty {
		err = co.fw.Flush()
		co.dirty = false
	}
	writerPool(co.level).Put(co.fw)
	co.fw = nil
	return err
}
