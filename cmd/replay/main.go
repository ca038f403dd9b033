// Command replay feeds a recorded GPS fix log through the claiming engine
// against synthetic time, printing every stage decision. Useful for
// reproducing field reports of rejected claims without a device.
//
// The fix log is a JSON array:
//
//	[{"lat": 48.1, "lon": 11.5, "accuracy_m": 5, "time": "2025-06-01T09:00:00Z"}, ...]
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/walkabout-games/territory/internal/config"
	"github.com/walkabout-games/territory/internal/geo"
	"github.com/walkabout-games/territory/internal/territory"
	"github.com/walkabout-games/territory/internal/timeutil"
)

type replayFix struct {
	Latitude       float64   `json:"lat"`
	Longitude      float64   `json:"lon"`
	AccuracyMeters float64   `json:"accuracy_m"`
	Time           time.Time `json:"time"`
	SpeedMps       *float64  `json:"speed_mps,omitempty"`
}

func main() {
	fixesPath := flag.String("fixes", "", "Path to the JSON fix log (required)")
	territoriesPath := flag.String("territories", "", "Path to a JSON array of existing territories (optional)")
	owner := flag.String("owner", "replay-player", "Owner id for the replayed session")
	configPath := flag.String("config", "", "Path to a JSON tuning config (optional)")
	chartPath := flag.String("chart", "", "Write an HTML chart of the recorded path to this file")
	flag.Parse()

	if *fixesPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	fixes, err := loadFixes(*fixesPath)
	if err != nil {
		fatalf("load fixes: %v", err)
	}
	if len(fixes) == 0 {
		fatalf("fix log is empty")
	}

	var territories []territory.ClaimedTerritory
	if *territoriesPath != "" {
		if territories, err = loadTerritories(*territoriesPath); err != nil {
			fatalf("load territories: %v", err)
		}
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		if tuning, err = config.LoadTuningConfig(*configPath); err != nil {
			fatalf("load config: %v", err)
		}
	}
	cfg, err := tuning.EngineConfig()
	if err != nil {
		fatalf("config: %v", err)
	}

	clock := timeutil.NewMockClock(fixes[0].Time)
	sink := territory.SinkFunc(func(e territory.Event) {
		status := "pass"
		if !e.Passed {
			status = "FAIL"
		}
		fmt.Printf("  event %-18s %s  measurement=%.2f %s\n", e.Stage, status, e.Measurement, e.Detail)
	})

	session, err := territory.NewSession(*owner, cfg, clock, sink, territories)
	if err != nil {
		fatalf("session: %v", err)
	}

	for i, f := range fixes {
		clock.Set(f.Time)
		fmt.Printf("fix %3d  (%.6f, %.6f) accuracy=%.1fm\n", i, f.Latitude, f.Longitude, f.AccuracyMeters)
		outcome := session.OnFix(territory.Fix{
			Point:          geo.Point{Latitude: f.Latitude, Longitude: f.Longitude},
			Time:           f.Time,
			AccuracyMeters: f.AccuracyMeters,
			SpeedMps:       f.SpeedMps,
		})
		if !outcome.Accepted && outcome.Reject != territory.RejectNone {
			fmt.Printf("  rejected: %s\n", outcome.Reject)
		}
		session.Tick()
		if outcome.State != territory.SessionRecording {
			break
		}
	}

	sum := session.Summary()
	fmt.Printf("\nsession %s: state=%s", sum.ID, sum.State)
	if sum.StopCause != "" {
		fmt.Printf(" cause=%s", sum.StopCause)
	}
	fmt.Printf("\n  points=%d distance=%.1fm avg=%.1fkm/h p85=%.1fkm/h\n",
		sum.PointCount, sum.DistanceMeters, sum.AvgSpeedKmh, sum.P85SpeedKmh)
	if sum.Verdict != nil {
		v := sum.Verdict
		if v.Passed {
			fmt.Printf("  verdict: PASSED area=%.1fm2 compactness=%.1f%%\n", v.AreaSquareMeters, v.CompactnessRatio)
		} else {
			fmt.Printf("  verdict: FAILED reason=%s\n", v.Reason)
		}
	}

	if *chartPath != "" {
		if err := writeChart(*chartPath, session.Path()); err != nil {
			fatalf("chart: %v", err)
		}
		fmt.Printf("chart written to %s\n", *chartPath)
	}
}

func loadFixes(path string) ([]replayFix, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var fixes []replayFix
	if err := json.Unmarshal(data, &fixes); err != nil {
		return nil, err
	}
	return fixes, nil
}

func loadTerritories(path string) ([]territory.ClaimedTerritory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var territories []territory.ClaimedTerritory
	if err := json.Unmarshal(data, &territories); err != nil {
		return nil, err
	}
	return territories, nil
}

// writeChart renders the recorded path as an XY scatter in local meters,
// which keeps the shape undistorted at any latitude.
func writeChart(path string, points []geo.Point) error {
	if len(points) == 0 {
		return fmt.Errorf("no recorded points to chart")
	}

	origin := points[0]
	plane := geo.ProjectToLocalPlane(points, origin)

	data := make([]opts.ScatterData, len(plane))
	for i, p := range plane {
		data[i] = opts.ScatterData{Value: []interface{}{p.X, p.Y}}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Recorded path",
			Subtitle: fmt.Sprintf("%d points, meters from start", len(points)),
		}),
		charts.WithXAxisOpts(opts.XAxis{Name: "east (m)", Type: "value"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "north (m)", Type: "value"}),
	)
	scatter.AddSeries("path", data)

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return scatter.Render(f)
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
