package main

import (
	"fmt"
	"html"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gobwas/glob"
	"github.com/gwillem/urlfilecache"

	"github.com/sansecio/gzipchunk/internal/chunk"
)

const defaultPayload = "++?????++ Out of Cheese Error. Redo From Start.<br/>\n"

type serveArg struct {
	Listen     string   `short:"l" long:"listen" default:":8080" description:"Listen address"`
	Payload    string   `short:"p" long:"payload" description:"Payload phrase to repeat (default: built-in)"`
	PayloadURL string   `long:"payload-url" description:"URL of a payload file, downloaded and cached locally"`
	Reps       int      `short:"r" long:"reps" default:"1000000" description:"Payload repetitions in the bomb"`
	Match      []string `short:"m" long:"match" default:"*" description:"Glob pattern(s) of request paths that get the bomb"`
	Level      int      `long:"level" default:"9" description:"Compression level (1-9)"`
}

var serveCmd serveArg

func (s *serveArg) Execute(_ []string) error {
	applyVerbose()

	payload, err := s.payloadBytes()
	if err != nil {
		return err
	}

	// Build the long-lived bomb once. If this cannot work, fail now
	// rather than on the first request.
	start := time.Now()
	bomb, err := chunk.NewPayload(payload, s.Reps, s.Level)
	if err != nil {
		return fmt.Errorf("building payload chunk: %w", err)
	}
	logInfo(green("bomb ready:"),
		fmt.Sprintf("%d bytes uncompressed, %d bytes compressed, built in %s",
			bomb.Len(), bomb.CompressedLen(), time.Since(start).Round(time.Millisecond)))

	globs := make([]glob.Glob, 0, len(s.Match))
	for _, m := range s.Match {
		g, err := glob.Compile(m)
		if err != nil {
			return fmt.Errorf("bad match pattern %q: %w", m, err)
		}
		globs = append(globs, g)
	}

	handler := &decoyServer{bomb: bomb, match: globs, level: s.Level}
	logInfo("listening on", boldwhite(s.Listen))
	return http.ListenAndServe(s.Listen, handler)
}

func (s *serveArg) payloadBytes() ([]byte, error) {
	if s.PayloadURL != "" {
		path, err := urlfilecache.ToPath(s.PayloadURL)
		if err != nil {
			return nil, fmt.Errorf("caching payload: %w", err)
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading cached payload: %w", err)
		}
		return b, nil
	}
	if s.Payload != "" {
		return []byte(s.Payload), nil
	}
	return []byte(defaultPayload), nil
}

// decoyServer answers every request with a freshly generated page.
// Paths matching a configured glob get the precompressed bomb
// embedded; the bomb's compressed bytes are spliced in per request,
// never recompressed.
type decoyServer struct {
	bomb  *chunk.Chunk
	match []glob.Glob
	level int
}

func (d *decoyServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
		// No point feeding a bomb to a client that won't inflate it.
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, pageTop(r.URL.Path)+pageBottom)
		logVerbose(grey("plain"), r.RemoteAddr, r.URL.Path)
		return
	}

	bombed := d.matches(r.URL.Path)
	out, err := d.buildPage(r.URL.Path, bombed)
	if err != nil {
		logInfo(warn("page error:"), err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Encoding", "gzip")
	w.Header().Set("Content-Length", strconv.Itoa(len(out)))
	w.Write(out)

	logVerbose(fmt.Sprintf("[%s] %s %s -> %d gzip bytes (bomb: %v)",
		r.RemoteAddr, r.Method, r.URL.Path, len(out), bombed))
}

func (d *decoyServer) buildPage(path string, bombed bool) ([]byte, error) {
	page, err := chunk.New(d.level)
	if err != nil {
		return nil, err
	}
	if err := page.AddString(pageTop(path)); err != nil {
		return nil, err
	}
	if bombed {
		if err := page.AddChunk(d.bomb); err != nil {
			return nil, err
		}
	}
	if err := page.AddString(pageBottom); err != nil {
		return nil, err
	}
	return page.Output()
}

func (d *decoyServer) matches(path string) bool {
	for _, g := range d.match {
		if g.Match(path) {
			return true
		}
	}
	return false
}

func pageTop(path string) string {
	return fmt.Sprintf("<!DOCTYPE html>\n<html><head><title>%s</title></head><body>\n<p>%s</p>\n",
		html.EscapeString(path), time.Now().Format(time.RFC1123))
}

const pageBottom = "\n</body></html>\n"

func init() {
	cli.AddCommand("serve", "Run the decoy page server",
		"Serve generated pages with a precompressed payload spliced into the gzip response", &serveCmd)
}
