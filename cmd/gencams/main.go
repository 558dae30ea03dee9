// gencams writes the camera geometry tables as JSON for downstream display
// tooling that cannot link this module.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/Whipple10m/fzreader/camera"
)

func main() {
	output := flag.String("o", "", "write JSON to `file` instead of stdout")
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("gencams: ")

	// Consumers look cameras up by the per-event ADC channel count rounded
	// to a crate-slot multiple, so that is the key scheme of the file. The
	// configuration name stays inside each entry.
	cams := map[string]*camera.Camera{}
	for _, key := range camera.Keys() {
		cam, ok := camera.ByKey(key)
		if !ok {
			log.Fatalf("camera table missing key %d", key)
		}
		cams[strconv.Itoa(key)] = cam
	}

	out := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", " ")
	if err := enc.Encode(cams); err != nil {
		log.Fatal(err)
	}
	fmt.Fprintf(os.Stderr, "gencams: %d cameras\n", len(cams))
}
