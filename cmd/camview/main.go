// camview renders the photomultiplier layout of one camera configuration as
// an interactive scatter chart.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/floats"

	"github.com/Whipple10m/fzreader/camera"
)

func main() {
	var (
		name   = flag.String("camera", "WC490", fmt.Sprintf("camera `name`, one of %s", strings.Join(camera.Names(), " ")))
		output = flag.String("o", "camera.html", "output HTML `file`")
	)
	flag.Parse()

	log.SetFlags(0)
	log.SetPrefix("camview: ")

	cam, ok := camera.ByName(*name)
	if !ok {
		log.Fatalf("unknown camera %q, have %s", *name, strings.Join(camera.Names(), " "))
	}

	data := make([]opts.ScatterData, 0, len(cam.Pixels))
	xs := make([]float64, 0, 2*len(cam.Pixels))
	for i, p := range cam.Pixels {
		data = append(data, opts.ScatterData{
			Name:       fmt.Sprintf("pixel %d", i),
			Value:      []interface{}{p.X, p.Y, len(p.Neighbors)},
			SymbolSize: int(600 * p.Radius),
		})
		xs = append(xs, p.X, p.Y)
	}

	// Symmetric axis ranges keep the plot square and centered.
	pad := 1.1 * floats.Max([]float64{floats.Max(xs), -floats.Min(xs)})
	if pad == 0 {
		pad = 1.0
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "Camera " + cam.Name, Width: "900px", Height: "900px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    cam.Name,
			Subtitle: fmt.Sprintf("%d pixels", cam.NPixels)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Min: -pad, Max: pad, Name: "X (deg)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Min: -pad, Max: pad, Name: "Y (deg)", NameLocation: "middle", NameGap: 30}),
	)
	scatter.AddSeries("pixels", data)

	f, err := os.Create(*output)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	if err := scatter.Render(f); err != nil {
		log.Fatalf("render chart: %v", err)
	}
	fmt.Printf("wrote %s\n", *output)
}
