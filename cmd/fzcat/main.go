// fzcat decodes a raw telescope data file to a JSON array of records.
//
// Records decoded before a corruption are still written: the array is
// closed, the diagnostic goes to stderr with the failing byte offset, and
// the exit status is nonzero.
package main

import (
	"bufio"
	"compress/bzip2"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	fzreader "github.com/Whipple10m/fzreader"
	"github.com/Whipple10m/fzreader/archive"
	"github.com/Whipple10m/fzreader/internal/monitoring"
)

func main() {
	var (
		output  = flag.String("o", "", "write JSON to `file` instead of stdout")
		verbose = flag.Int("v", 0, "verbosity: 1 summary, 2 adds block tracing")
		resync  = flag.Bool("resync", false, "slide past garbage between physical records")
		run     = flag.Uint("run", 0, "fetch run `number` from the public mirrors instead of reading a file")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: fzcat [flags] <file.fz[.bz2|.gz|.z]>\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if (flag.NArg() == 1) == (*run != 0) {
		flag.Usage()
		os.Exit(2)
	}

	if *verbose == 0 {
		monitoring.SetLogger(nil)
	}
	log.SetFlags(0)
	log.SetPrefix("fzcat: ")

	opts := fzreader.Options{Resync: *resync, Trace: *verbose >= 2}

	var (
		r    *fzreader.Reader
		path string
		err  error
	)
	if *run != 0 {
		path = archive.RunFilename(uint32(*run))
		body, site, ferr := archive.NewClient(nil).FetchRun(context.Background(), uint32(*run))
		if ferr != nil {
			log.Fatal(ferr)
		}
		if *verbose >= 1 {
			fmt.Fprintf(os.Stderr, "fzcat: fetching %s from %s\n", path, site)
		}
		// Mirrors serve the runs bzip2-compressed.
		r = fzreader.NewReader(bzipCloser{bzip2.NewReader(body), body}, opts)
	} else {
		path = flag.Arg(0)
		r, err = fzreader.Open(path, opts)
		if err != nil {
			log.Fatal(err)
		}
	}
	defer r.Close()

	out := os.Stdout
	if *output != "" {
		out, err = os.Create(*output)
		if err != nil {
			log.Fatal(err)
		}
		defer out.Close()
	}
	w := bufio.NewWriter(out)

	var (
		count    int
		fatalErr error
	)
	fmt.Fprint(w, "[")
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			fatalErr = err
			break
		}
		buf, err := json.Marshal(rec)
		if err != nil {
			fatalErr = err
			break
		}
		if count > 0 {
			fmt.Fprint(w, ",\n ")
		}
		w.Write(buf)
		count++
	}
	fmt.Fprintln(w, "]")
	if err := w.Flush(); err != nil {
		log.Fatal(err)
	}

	if *verbose >= 1 {
		fmt.Fprintf(os.Stderr, "fzcat: %s: %d records, %d packets, %d bytes\n",
			path, count, r.NumPacketsFound(), r.NumBytesRead())
	}
	if fatalErr != nil {
		var se *fzreader.StructuralError
		var pe *fzreader.PrematureEOFError
		switch {
		case errors.As(fatalErr, &se), errors.As(fatalErr, &pe):
			// The error already quotes the packet offset.
			log.Fatalf("%s: %v (%d records retained)", path, fatalErr, count)
		default:
			log.Fatalf("%s: %v at byte %d (%d records retained)",
				path, fatalErr, r.LastPacketStart(), count)
		}
	}
}

// bzipCloser pairs the decompressor with the network body it drains.
type bzipCloser struct {
	io.Reader
	c io.Closer
}

func (b bzipCloser) Close() error { return b.c.Close() }
