package chunk

import (
	"testing"
)

// Compare embedding a precompressed bomb against recompressing it
// from scratch per page. Embedding cost must scale with the page's
// own literal content only.

var benchPhrase = []byte("++?????++ Out of Cheese Error. Redo From Start.<br/>\n")

const benchReps = 100000 // ~5.3 MB uncompressed

func buildPage(b *testing.B, bomb *Chunk) []byte {
	page, err := New(DefaultCompression)
	if err != nil {
		b.Fatal(err)
	}
	if err := page.AddString("<html><body><p>generated content</p>"); err != nil {
		b.Fatal(err)
	}
	if err := page.AddChunk(bomb); err != nil {
		b.Fatal(err)
	}
	if err := page.AddString("</body></html>"); err != nil {
		b.Fatal(err)
	}
	out, err := page.Output()
	if err != nil {
		b.Fatal(err)
	}
	return out
}

func BenchmarkPageWithEmbeddedBomb(b *testing.B) {
	bomb, err := NewPayload(benchPhrase, benchReps, DefaultCompression)
	if err != nil {
		b.Fatal(err)
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		buildPage(b, bomb)
	}
}

func BenchmarkPageRecompressingBomb(b *testing.B) {
	for i := 0; i < b.N; i++ {
		bomb, err := NewPayload(benchPhrase, benchReps, DefaultCompression)
		if err != nil {
			b.Fatal(err)
		}
		buildPage(b, bomb)
	}
}

func BenchmarkBombConstruction(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := NewPayload(benchPhrase, benchReps, DefaultCompression); err != nil {
			b.Fatal(err)
		}
	}
}
