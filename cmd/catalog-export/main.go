// Package main re-emits cataloged events from a SQLite or TimescaleDB
// catalog as TSV files, in the same layout the tsvdir backend writes. Useful
// for pulling a season back out of a database for plotting.
package main

import (
	"database/sql"
	"encoding/csv"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const timeLayout = "2006-01-02 15:04:05"

// schema maps the shared column layout onto each backend's table names.
type schema struct {
	runs     string
	events   string
	samples  string
	gaps     string
	nodata   string
	numbered bool // $1-style placeholders
}

var schemas = map[string]schema{
	"sqlite": {
		runs: "runs", events: "events", samples: "event_samples",
		gaps: "gaps", nodata: "nodata_spans",
	},
	"postgres": {
		runs: "catalog_runs", events: "catalog_events", samples: "event_samples",
		gaps: "catalog_gaps", nodata: "catalog_nodata",
		numbered: true,
	},
}

// rebind rewrites ?-placeholders to $n for backends that number them.
func (s schema) rebind(q string) string {
	if !s.numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func main() {
	var (
		backend = flag.String("backend", "sqlite", "Catalog backend: 'sqlite' or 'postgres'")
		dbArg   = flag.String("db", "", "SQLite file path or PostgreSQL connection string (required)")
		runArg  = flag.String("run", "latest", "Run to export: a run id or 'latest'")
		outDir  = flag.String("out", "export", "Output directory for TSV files")
		list    = flag.Bool("list", false, "List stored runs and exit")
	)
	flag.Parse()

	sch, ok := schemas[*backend]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: unknown backend %q (use 'sqlite' or 'postgres')\n", *backend)
		os.Exit(1)
	}
	if *dbArg == "" {
		fmt.Fprintf(os.Stderr, "Usage: %s -db <catalog.db | conn-string> [flags]\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	db, err := sql.Open(*backend, *dbArg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening catalog: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "Error connecting to catalog: %v\n", err)
		os.Exit(1)
	}

	if *list {
		if err := listRuns(db, sch); err != nil {
			fmt.Fprintf(os.Stderr, "Error listing runs: %v\n", err)
			os.Exit(1)
		}
		return
	}

	runID := *runArg
	if runID == "latest" {
		runID, err = latestRun(db, sch)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding latest run: %v\n", err)
			os.Exit(1)
		}
	}

	n, err := exportRun(db, sch, runID, *outDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error exporting run %s: %v\n", runID, err)
		os.Exit(1)
	}
	fmt.Printf("Exported %d events from run %s to %s\n", n, runID, *outDir)
}

func listRuns(db *sql.DB, sch schema) error {
	rows, err := db.Query(fmt.Sprintf(
		`SELECT id, started_at, stations, event_count FROM %s ORDER BY started_at`, sch.runs))
	if err != nil {
		return err
	}
	defer rows.Close()

	fmt.Printf("%-36s  %-20s  %-24s  %s\n", "RUN", "STARTED", "STATIONS", "EVENTS")
	for rows.Next() {
		var id, stations string
		var startedAt time.Time
		var count int
		if err := rows.Scan(&id, &startedAt, &stations, &count); err != nil {
			return err
		}
		fmt.Printf("%-36s  %-20s  %-24s  %d\n",
			id, startedAt.UTC().Format(timeLayout), stations, count)
	}
	return rows.Err()
}

func latestRun(db *sql.DB, sch schema) (string, error) {
	var id string
	err := db.QueryRow(fmt.Sprintf(
		`SELECT id FROM %s ORDER BY started_at DESC LIMIT 1`, sch.runs)).Scan(&id)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("catalog holds no runs")
	}
	return id, err
}

type eventRow struct {
	id           int64
	start, end   time.Time
	displacement float64
	samples      int
}

func exportRun(db *sql.DB, sch schema, runID, outDir string) (int, error) {
	var stationsCSV string
	err := db.QueryRow(sch.rebind(fmt.Sprintf(
		`SELECT stations FROM %s WHERE id = ?`, sch.runs)), runID).Scan(&stationsCSV)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("no run with id %s", runID)
	}
	if err != nil {
		return 0, err
	}
	stations := strings.Split(stationsCSV, ",")

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, err
	}

	events, err := loadEvents(db, sch, runID)
	if err != nil {
		return 0, err
	}
	for _, ev := range events {
		if err := exportEvent(db, sch, ev, stations, outDir); err != nil {
			return 0, err
		}
	}

	if err := exportGaps(db, sch, runID, outDir); err != nil {
		return 0, err
	}
	if err := exportNoData(db, sch, runID, outDir); err != nil {
		return 0, err
	}
	return len(events), nil
}

func loadEvents(db *sql.DB, sch schema, runID string) ([]eventRow, error) {
	rows, err := db.Query(sch.rebind(fmt.Sprintf(
		`SELECT id, start_time, end_time, displacement_m, sample_count
		 FROM %s WHERE run_id = ? ORDER BY start_time`, sch.events)), runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []eventRow
	for rows.Next() {
		var ev eventRow
		if err := rows.Scan(&ev.id, &ev.start, &ev.end, &ev.displacement, &ev.samples); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// exportEvent pivots the long sample rows back into one TSV with a column
// block per station, NaN where a station has no value.
func exportEvent(db *sql.DB, sch schema, ev eventRow, stations []string, outDir string) error {
	rows, err := db.Query(sch.rebind(fmt.Sprintf(
		`SELECT station, sample_time, x, y, residual, residual_avg
		 FROM %s WHERE event_id = ? ORDER BY sample_time, station`, sch.samples)), ev.id)
	if err != nil {
		return err
	}
	defer rows.Close()

	type cell struct{ x, y, res, resAvg float64 }
	var times []time.Time
	seen := make(map[int64]bool)
	cells := make(map[string]map[int64]cell)
	for _, st := range stations {
		cells[st] = make(map[int64]cell)
	}

	for rows.Next() {
		var station string
		var ts time.Time
		var x, y, res, resAvg sql.NullFloat64
		if err := rows.Scan(&station, &ts, &x, &y, &res, &resAvg); err != nil {
			return err
		}
		key := ts.UnixNano()
		if !seen[key] {
			seen[key] = true
			times = append(times, ts)
		}
		if _, ok := cells[station]; !ok {
			cells[station] = make(map[int64]cell)
		}
		cells[station][key] = cell{
			x: nullValue(x), y: nullValue(y),
			res: nullValue(res), resAvg: nullValue(resAvg),
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	name := ev.start.UTC().Format("20060102T150405") + ".tsv"
	f, err := os.Create(filepath.Join(outDir, name))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = '\t'

	header := []string{"time"}
	for _, st := range stations {
		header = append(header, st+"_x", st+"_y", st+"_res", st+"_resavg")
	}
	if err := w.Write(header); err != nil {
		return err
	}

	row := make([]string, len(header))
	for _, t := range times {
		row[0] = t.UTC().Format(timeLayout)
		col := 1
		for _, st := range stations {
			c, ok := cells[st][t.UnixNano()]
			if !ok {
				c = cell{x: math.NaN(), y: math.NaN(), res: math.NaN(), resAvg: math.NaN()}
			}
			row[col] = formatFloat(c.x)
			row[col+1] = formatFloat(c.y)
			row[col+2] = formatFloat(c.res)
			row[col+3] = formatFloat(c.resAvg)
			col += 4
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func exportGaps(db *sql.DB, sch schema, runID, outDir string) error {
	rows, err := db.Query(sch.rebind(fmt.Sprintf(
		`SELECT station, start_time, end_time, duration_seconds
		 FROM %s WHERE run_id = ? ORDER BY station, start_time`, sch.gaps)), runID)
	if err != nil {
		return err
	}
	defer rows.Close()

	f, err := os.Create(filepath.Join(outDir, "gaps.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"station", "start", "end", "duration_seconds"}); err != nil {
		return err
	}
	for rows.Next() {
		var station string
		var start, end time.Time
		var dur float64
		if err := rows.Scan(&station, &start, &end, &dur); err != nil {
			return err
		}
		err := w.Write([]string{
			station,
			start.UTC().Format(timeLayout),
			end.UTC().Format(timeLayout),
			strconv.FormatFloat(dur, 'g', -1, 64),
		})
		if err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func exportNoData(db *sql.DB, sch schema, runID, outDir string) error {
	rows, err := db.Query(sch.rebind(fmt.Sprintf(
		`SELECT start_time, end_time FROM %s WHERE run_id = ? ORDER BY start_time`, sch.nodata)), runID)
	if err != nil {
		return err
	}
	defer rows.Close()

	f, err := os.Create(filepath.Join(outDir, "nodata.csv"))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"start", "end"}); err != nil {
		return err
	}
	for rows.Next() {
		var start, end time.Time
		if err := rows.Scan(&start, &end); err != nil {
			return err
		}
		if err := w.Write([]string{start.UTC().Format(timeLayout), end.UTC().Format(timeLayout)}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func nullValue(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
