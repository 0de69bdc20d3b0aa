package handler

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/cast-iron/crucible/iox"
)

// LineCountModule is the module name of the built-in record counter.
const LineCountModule = "linecount"

// reportEvery is the record interval between tracker updates.
const reportEvery = 1000

// LineCount counts newline-delimited records in the data file, reporting
// committed counts and byte-based progress through the tracker pipe when
// one is attached. It is registered by Defaults and doubles as a pipeline
// smoke test: wire a processor at it to verify staging, tracking, and
// messaging without touching a database.
func LineCount(ctx context.Context, req *Request) error {
	f, err := os.Open(req.DataFile)
	if err != nil {
		return fmt.Errorf("open data file: %w", err)
	}
	defer iox.DiscardClose(f)

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat data file: %w", err)
	}
	size := info.Size()

	var pipe *os.File
	if req.TrackerPath != "" {
		pipe, err = os.OpenFile(req.TrackerPath, os.O_WRONLY, 0)
		if err != nil {
			return fmt.Errorf("open tracker pipe: %w", err)
		}
		defer iox.DiscardClose(pipe)
		fmt.Fprintf(pipe, "task counting records in %s\n", filepath.Base(req.DataFile))
	}

	reader := bufio.NewReader(f)
	var read, records int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		line, err := reader.ReadBytes('\n')
		read += int64(len(line))
		if len(line) > 0 {
			records++
			if pipe != nil && records%reportEvery == 0 {
				fmt.Fprintf(pipe, "committed %d\n", records)
				if size > 0 {
					fmt.Fprintf(pipe, "progress %d/%d\n", read, size)
				}
			}
		}

		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("read data file: %w", err)
		}
	}

	if pipe != nil {
		fmt.Fprintf(pipe, "committed %d\n", records)
		fmt.Fprintln(pipe, "progress 1")
	}
	return nil
}
