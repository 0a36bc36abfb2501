// Package main generates synthetic .pos solution archives for pipeline
// development: steady ice flow with stick-slip displacement steps shared
// across stations, millimeter noise, and optional recording gaps.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const metersPerDegLat = 111320.0

var gpsEpoch = time.Date(1980, 1, 6, 0, 0, 0, 0, time.UTC)

// slipEvent is one rapid displacement step. All stations slip together, with
// per-station amplitude scaling, which is what makes multi-station detection
// meaningful on the output.
type slipEvent struct {
	start time.Time
	dur   time.Duration
	disp  float64 // meters along flow
}

// stationSim holds one station's fixed parameters.
type stationSim struct {
	name  string
	lat0  float64
	lon0  float64
	elev0 float64
	scale float64 // per-station slip amplitude factor
}

func main() {
	var (
		out       = flag.String("out", "", "Root directory for the generated archive (required)")
		stations  = flag.String("stations", "la01,la05", "Comma-separated station names")
		year      = flag.Int("year", 2010, "Archive year to generate")
		startDay  = flag.Int("start-day", 1, "First day of year to generate")
		days      = flag.Int("days", 3, "Number of days to generate")
		interval  = flag.Int("interval", 15, "Sample spacing in seconds")
		format    = flag.String("format", "csrs-2024", "Solution file layout: 'csrs-2024' or 'legacy-7'")
		drift     = flag.Float64("drift", 0.9, "Background flow in meters per day")
		slipsDay  = flag.Float64("slips", 2.0, "Mean stick-slip events per day")
		slipMin   = flag.Float64("slip-min", 0.2, "Minimum slip displacement in meters")
		slipMax   = flag.Float64("slip-max", 0.6, "Maximum slip displacement in meters")
		gapChance = flag.Float64("gap-chance", 0, "Per-sample probability of starting a recording gap")
		noise     = flag.Float64("noise", 0.003, "Horizontal noise sigma in meters")
		seed      = flag.Int64("seed", 0, "Random seed (0 seeds from the clock)")
	)
	flag.Parse()

	if *out == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -out <dir> [flags]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}
	if *format != "csrs-2024" && *format != "legacy-7" {
		log.Fatalf("unknown format %q", *format)
	}
	if *interval <= 0 || *days <= 0 {
		log.Fatalf("interval and days must be positive")
	}
	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	names := strings.Split(*stations, ",")
	sims := make([]stationSim, len(names))
	for i, name := range names {
		sims[i] = stationSim{
			name:  strings.TrimSpace(name),
			lat0:  -84.30 - 0.012*float64(i),
			lon0:  -154.20 + 0.025*float64(i),
			elev0: 62 + 1.5*float64(i),
			scale: 0.85 + 0.3*rng.Float64(),
		}
	}

	t0 := time.Date(*year, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, *startDay-1)
	events := scheduleEvents(rng, t0, *days, *slipsDay, *slipMin, *slipMax)

	files := 0
	for _, sim := range sims {
		for d := 0; d < *days; d++ {
			dayStart := t0.AddDate(0, 0, d)
			doy := dayStart.YearDay()
			recs := simulateDay(rng, sim, dayStart, *interval, *drift, *noise, *gapChance, t0, events)
			if len(recs) == 0 {
				continue
			}

			var b strings.Builder
			switch *format {
			case "csrs-2024":
				writeCSRS2024(&b, sim.name, dayStart, recs)
			case "legacy-7":
				writeLegacy7(&b, sim.name, dayStart, recs)
			}

			dir := filepath.Join(*out, sim.name, fmt.Sprintf("%d", dayStart.Year()))
			if err := os.MkdirAll(dir, 0o755); err != nil {
				log.Fatalf("creating %s: %v", dir, err)
			}
			path := filepath.Join(dir, fmt.Sprintf("%s%03d.pos", sim.name, doy))
			if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
				log.Fatalf("writing %s: %v", path, err)
			}
			files++
		}
	}

	log.Printf("wrote %d files for %d stations under %s (%d slip events, seed %d)",
		files, len(sims), *out, len(events), *seed)
}

// scheduleEvents draws a Poisson number of slips per day at uniform times.
func scheduleEvents(rng *rand.Rand, t0 time.Time, days int, perDay, dispMin, dispMax float64) []slipEvent {
	var events []slipEvent
	for d := 0; d < days; d++ {
		dayStart := t0.AddDate(0, 0, d)
		for i := 0; i < poisson(rng, perDay); i++ {
			events = append(events, slipEvent{
				start: dayStart.Add(time.Duration(rng.Float64() * 24 * float64(time.Hour))),
				dur:   time.Duration(6+rng.Intn(13)) * time.Minute,
				disp:  dispMin + rng.Float64()*(dispMax-dispMin),
			})
		}
	}
	return events
}

// poisson draws from Poisson(mean) by Knuth's product method.
func poisson(rng *rand.Rand, mean float64) int {
	limit := math.Exp(-mean)
	k, p := 0, 1.0
	for p > limit {
		k++
		p *= rng.Float64()
	}
	return k - 1
}

// simRecord is one epoch ready for formatting.
type simRecord struct {
	t    time.Time
	lat  float64
	lon  float64
	elev float64
	nsv  int
	gdop float64
}

// simulateDay walks one UTC day at the sampling interval and evaluates the
// station's position at each retained epoch. A started gap suppresses
// samples until it expires.
func simulateDay(rng *rand.Rand, sim stationSim, dayStart time.Time, interval int,
	drift, noise, gapChance float64, t0 time.Time, events []slipEvent) []simRecord {

	cosLat := math.Cos(sim.lat0 * math.Pi / 180)
	var recs []simRecord
	var gapUntil time.Time

	dayEnd := dayStart.AddDate(0, 0, 1)
	for t := dayStart; t.Before(dayEnd); t = t.Add(time.Duration(interval) * time.Second) {
		if t.Before(gapUntil) {
			continue
		}
		if gapChance > 0 && rng.Float64() < gapChance {
			gapUntil = t.Add(time.Duration(60+rng.Intn(1740)) * time.Second)
			continue
		}

		// Flow is toward grid north-west, a fixed azimuth per archive.
		along := drift*t.Sub(t0).Hours()/24 + sim.scale*slipDisplacement(t, events)
		north := along * math.Cos(2.0)
		east := along * math.Sin(2.0)
		north += rng.NormFloat64() * noise
		east += rng.NormFloat64() * noise

		recs = append(recs, simRecord{
			t:    t,
			lat:  sim.lat0 + north/metersPerDegLat,
			lon:  sim.lon0 + east/(metersPerDegLat*cosLat),
			elev: sim.elev0 + rng.NormFloat64()*0.02,
			nsv:  7 + rng.Intn(5),
			gdop: 1.5 + rng.Float64(),
		})
	}
	return recs
}

// slipDisplacement sums every event's contribution at time t: zero before
// onset, a linear ramp during the slip, the full step after.
func slipDisplacement(t time.Time, events []slipEvent) float64 {
	var sum float64
	for _, ev := range events {
		switch {
		case t.Before(ev.start):
		case t.After(ev.start.Add(ev.dur)):
			sum += ev.disp
		default:
			sum += ev.disp * float64(t.Sub(ev.start)) / float64(ev.dur)
		}
	}
	return sum
}

// dmsParts splits fractional degrees into the subtractive degree, minute,
// second convention the solution files use for southern and western
// coordinates.
func dmsParts(v float64) (int, int, float64) {
	d := math.Trunc(v)
	rem := (d - v) * 60
	m := math.Floor(rem)
	s := (rem - m) * 60
	return int(d), int(m), s
}

func gpsWeek(t time.Time) int {
	return int(t.Sub(gpsEpoch).Hours() / 24 / 7)
}

func dayFraction(t time.Time) float64 {
	return float64(t.YearDay()) +
		float64(t.Hour()*3600+t.Minute()*60+t.Second())/86400
}

func writeCSRS2024(b *strings.Builder, station string, dayStart time.Time, recs []simRecord) {
	b.WriteString("NOTE: Estimated positions are at the epoch of observation\n")
	fmt.Fprintf(b, "HDR GPS Week: %d  Products: IGS Final\n", gpsWeek(dayStart))
	b.WriteString("HDR CSRS-PPP version 3.71.0\n")
	b.WriteString("DIR FRAME STN DAYofYEAR YEAR-MM-DD HR:MN:SS.SS NSV GDOP LATDD LATMN LATSS LONDD LONMN LONSS HGT(m)\n")
	for _, r := range recs {
		latD, latM, latS := dmsParts(r.lat)
		lonD, lonM, lonS := dmsParts(r.lon)
		fmt.Fprintf(b, "BWD IGS20 %s %.1f %s %d %.1f %d %d %.5f %d %d %.5f %.4f\n",
			station, dayFraction(r.t), r.t.Format("2006-01-02 15:04:05.00"),
			r.nsv, r.gdop, latD, latM, latS, lonD, lonM, lonS, r.elev)
	}
}

func writeLegacy7(b *strings.Builder, station string, dayStart time.Time, recs []simRecord) {
	b.WriteString(" NRCan CSRS Precise Point Positioning\n")
	fmt.Fprintf(b, " Processing date: %s\n", dayStart.Format("2006-01-02"))
	fmt.Fprintf(b, " Input observation file: %s%03d.obs\n", station, dayStart.YearDay())
	b.WriteString(" Processing mode: Kinematic\n")
	b.WriteString(" Reference frame: ITRF2008\n")
	b.WriteString(" Ephemeris source: Final\n")
	b.WriteString(" Observations used: GPS\n")
	b.WriteString("DIR FRAME STN DOY YEAR-MM-DD HR:MN:SS.SSS NSV GDOP LAT(d) LAT(m) LAT(s) LON(d) LON(m) LON(s) HGT(m)\n")
	for _, r := range recs {
		latD, latM, latS := dmsParts(r.lat)
		lonD, lonM, lonS := dmsParts(r.lon)
		fmt.Fprintf(b, "FWD ITRF08 %s %.1f %s %d %.1f %d %d %.5f %d %d %.5f %.4f\n",
			station, dayFraction(r.t), r.t.Format("2006-01-02 15:04:05.000"),
			r.nsv, r.gdop, latD, latM, latS, lonD, lonM, lonS, r.elev)
	}
}
