// Command fieldplot renders pose tables to a PNG for pit review. With a
// telemetry database it overlays the recorded robot poses and their
// offset targets, so a practice run can be checked against the tables
// on paper.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"
	"math"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/ashgrove-robotics/fieldpose/internal/config"
	"github.com/ashgrove-robotics/fieldpose/internal/field"
	"github.com/ashgrove-robotics/fieldpose/internal/telemetry"
)

func main() {
	var tablesPath string
	var dbPath string
	var outPath string
	var last int

	flag.StringVar(&tablesPath, "tables", "", "pose tables JSON (empty uses the embedded defaults)")
	flag.StringVar(&dbPath, "db", "", "telemetry database to overlay recorded decisions from")
	flag.IntVar(&last, "last", 200, "number of recent decisions to overlay")
	flag.StringVar(&outPath, "out", "field.png", "output PNG path")
	flag.Parse()

	tables, err := config.LoadTables(tablesPath)
	if err != nil {
		log.Fatalf("load tables: %v", err)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Pose tables %s", tables.Revision)
	p.X.Label.Text = "X (m)"
	p.Y.Label.Text = "Y (m)"

	if err := addTable(p, "blue", tables.Blue, color.RGBA{R: 66, G: 165, B: 245, A: 255}); err != nil {
		log.Fatalf("blue table: %v", err)
	}
	if err := addTable(p, "red", tables.Red, color.RGBA{R: 255, G: 82, B: 82, A: 255}); err != nil {
		log.Fatalf("red table: %v", err)
	}

	if dbPath != "" {
		n, err := addDecisions(p, dbPath, last)
		if err != nil {
			log.Fatalf("overlay decisions: %v", err)
		}
		fmt.Printf("overlaid %d recorded decisions from %s\n", n, dbPath)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	if err := p.Save(10*vg.Inch, 6*vg.Inch, outPath); err != nil {
		log.Fatalf("save plot: %v", err)
	}
	fmt.Printf("wrote %s\n", outPath)
}

// addTable draws one alliance's poses as scatter points plus a short
// tick per pose showing which way the face points.
func addTable(p *plot.Plot, name string, poses []field.Pose, c color.Color) error {
	if len(poses) == 0 {
		return nil
	}

	pts := make(plotter.XYs, len(poses))
	for i, pose := range poses {
		pts[i] = plotter.XY{X: pose.X, Y: pose.Y}
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	scatter.GlyphStyle.Color = c
	scatter.GlyphStyle.Radius = vg.Points(3)
	p.Add(scatter)
	p.Legend.Add(name, scatter)

	// Heading ticks are 0.4m on the field scale, long enough to read on
	// a printed page.
	const tick = 0.4
	for _, pose := range poses {
		seg := plotter.XYs{
			{X: pose.X, Y: pose.Y},
			{X: pose.X + tick*math.Cos(pose.Heading), Y: pose.Y + tick*math.Sin(pose.Heading)},
		}
		line, err := plotter.NewLine(seg)
		if err != nil {
			return err
		}
		line.Color = c
		line.Width = vg.Points(1)
		p.Add(line)
	}
	return nil
}

// addDecisions overlays recorded robot poses and their offset targets
// from the telemetry database. Returns how many events were drawn.
func addDecisions(p *plot.Plot, dbPath string, last int) (int, error) {
	store, err := telemetry.Open(dbPath)
	if err != nil {
		return 0, err
	}
	defer store.Close()

	events, err := store.RecentMatches(last)
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	robots := make(plotter.XYs, len(events))
	targets := make(plotter.XYs, len(events))
	for i, ev := range events {
		robots[i] = plotter.XY{X: ev.Robot.X, Y: ev.Robot.Y}
		targets[i] = plotter.XY{X: ev.Target.X, Y: ev.Target.Y}
	}

	robotScatter, err := plotter.NewScatter(robots)
	if err != nil {
		return 0, err
	}
	robotScatter.GlyphStyle.Color = color.RGBA{R: 158, G: 158, B: 158, A: 255}
	robotScatter.GlyphStyle.Radius = vg.Points(1.5)
	p.Add(robotScatter)
	p.Legend.Add("robot", robotScatter)

	targetScatter, err := plotter.NewScatter(targets)
	if err != nil {
		return 0, err
	}
	targetScatter.GlyphStyle.Color = color.RGBA{R: 253, G: 231, B: 37, A: 255}
	targetScatter.GlyphStyle.Radius = vg.Points(2)
	p.Add(targetScatter)
	p.Legend.Add("target", targetScatter)

	return len(events), nil
}
