package main

import (
	"fmt"
	"os"

	"github.com/sansecio/gzipchunk/internal/chunk"
)

type packArg struct {
	Reps   int    `short:"r" long:"reps" default:"1" description:"Repeat the input this many times"`
	Level  int    `long:"level" default:"9" description:"Compression level (1-9)"`
	Output string `short:"o" long:"output" description:"Output path (default: <input>.gz, or stdout for a phrase)"`
	Args   struct {
		Input string `positional-arg-name:"<file-or-phrase>" required:"yes"`
	} `positional-args:"yes" required:"yes"`
}

var packCmd packArg

// Execute compresses a file (or, when the argument is not an
// existing file, the argument itself as a phrase) into a standalone
// gzip, repeating the input as requested without buffering the
// expansion.
func (p *packArg) Execute(_ []string) error {
	applyVerbose()

	input, isFile, err := p.inputBytes()
	if err != nil {
		return err
	}

	c, err := chunk.NewPayload(input, p.Reps, p.Level)
	if err != nil {
		return fmt.Errorf("compressing input: %w", err)
	}
	out, err := c.Output()
	if err != nil {
		return err
	}

	dest := p.Output
	if dest == "" && isFile {
		dest = p.Args.Input + ".gz"
	}

	if dest == "" {
		if _, err := os.Stdout.Write(out); err != nil {
			return err
		}
	} else {
		if err := os.WriteFile(dest, out, 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", dest, err)
		}
		logInfo(green("wrote"), boldwhite(dest))
	}

	logVerbose(fmt.Sprintf("%d bytes uncompressed -> %d bytes gzip (%.1fx)",
		c.Len(), len(out), float64(c.Len())/float64(len(out))))
	return nil
}

func (p *packArg) inputBytes() ([]byte, bool, error) {
	fi, err := os.Stat(p.Args.Input)
	if err == nil && !fi.IsDir() {
		b, err := os.ReadFile(p.Args.Input)
		if err != nil {
			return nil, false, fmt.Errorf("reading %s: %w", p.Args.Input, err)
		}
		return b, true, nil
	}
	return []byte(p.Args.Input), false, nil
}

func init() {
	cli.AddCommand("pack", "Compress a file or phrase",
		"Compress a file or literal phrase, optionally repeated, into a standalone gzip file", &packCmd)
}
