// fzindex decodes data files and catalogs their runs and event tallies in a
// SQLite index. With -list it prints the indexed runs instead.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	fzreader "github.com/Whipple10m/fzreader"
	"github.com/Whipple10m/fzreader/index"
	"github.com/Whipple10m/fzreader/internal/monitoring"
)

func main() {
	var (
		dbPath = flag.String("db", "fzindex.sqlite", "index database `file`")
		list   = flag.Bool("list", false, "list indexed runs and exit")
		resync = flag.Bool("resync", false, "slide past garbage between physical records")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: fzindex [flags] <file.fz[.bz2|.gz|.z]>...\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("fzindex: ")
	monitoring.SetLogger(nil)

	db, err := index.Open(*dbPath)
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if *list {
		runs, err := db.Runs()
		if err != nil {
			log.Fatal(err)
		}
		for _, r := range runs {
			fmt.Println(r.String())
		}
		return
	}

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	failed := false
	for _, path := range flag.Args() {
		if err := scanFile(db, path, *resync); err != nil {
			log.Printf("%s: %v", path, err)
			failed = true
		}
	}
	if failed {
		os.Exit(1)
	}
}

// scanFile decodes one file and records its runs and tallies. A decode error
// partway through still commits everything seen before it, with the error
// noted on the scan row.
func scanFile(db *index.DB, path string, resync bool) error {
	r, err := fzreader.Open(path, fzreader.Options{Resync: resync})
	if err != nil {
		return err
	}
	defer r.Close()

	scanID, err := db.StartScan(path)
	if err != nil {
		return err
	}

	summaries := map[uint32]*index.RunSummary{}
	tally := func(run uint32, pedestal bool, mjd float64) {
		s := summaries[run]
		if s == nil {
			s = &index.RunSummary{RunNum: run}
			summaries[run] = s
		}
		s.Events++
		if pedestal {
			s.Pedestals++
		}
		if mjd > 0 {
			if s.FirstGPSMJD == 0 || mjd < s.FirstGPSMJD {
				s.FirstGPSMJD = mjd
			}
			if mjd > s.LastGPSMJD {
				s.LastGPSMJD = mjd
			}
		}
	}

	var (
		records int
		scanErr error
	)
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			scanErr = err
			break
		}
		records++
		switch {
		case rec.Run != nil:
			if err := db.InsertRun(scanID, rec.Run.RunNum, rec.Run.SkyQuality,
				rec.Run.Observers, rec.Run.Comment,
				rec.Run.NominalMJDStart, rec.Run.NominalMJDEnd); err != nil {
				return err
			}
		case rec.Event != nil:
			tally(rec.Event.RunNum, rec.Event.EventType == fzreader.EventPedestal, rec.Event.MJD)
		case rec.Frame != nil:
			tally(rec.Frame.RunNum, true, rec.Frame.MJD)
		}
	}

	for _, s := range summaries {
		if err := db.InsertSummary(scanID, *s); err != nil {
			return err
		}
	}
	if err := db.FinishScan(scanID, records, r.NumPacketsFound(), r.NumBytesRead(), scanErr); err != nil {
		return err
	}
	return scanErr
}
