package pick

import (
	"testing"
	"time"
)

func TestNoDataReportOffsetCoverage(t *testing.T) {
	base := time.Date(2010, 12, 28, 0, 0, 0, 0, time.UTC)
	a := resultAt("la01", base, []int{0, 15, 30, 45, 60})    // covers 0..60
	b := resultAt("la05", base, []int{30, 45, 60, 75, 90})   // covers 30..90
	results := []*StationResult{a, b}

	spans := NoDataReport(results, 2)
	if len(spans) != 2 {
		t.Fatalf("spans = %d, want 2: %+v", len(spans), spans)
	}
	if !spans[0].Start.Equal(base) || !spans[0].End.Equal(base.Add(30*time.Second)) {
		t.Errorf("span 0 = %v..%v, want 0..30s", spans[0].Start, spans[0].End)
	}
	if !spans[1].Start.Equal(base.Add(60*time.Second)) || !spans[1].End.Equal(base.Add(90*time.Second)) {
		t.Errorf("span 1 = %v..%v, want 60s..90s", spans[1].Start, spans[1].End)
	}

	// With a single station required there is always coverage.
	if spans := NoDataReport(results, 1); len(spans) != 0 {
		t.Errorf("minStations=1 spans = %+v, want none", spans)
	}
}

func TestNoDataReportCleanHandover(t *testing.T) {
	base := time.Date(2010, 12, 28, 0, 0, 0, 0, time.UTC)
	a := resultAt("la01", base, []int{0, 15, 30})
	b := resultAt("la05", base, []int{30, 45, 60})

	// la05 starts the instant la01 ends: onsets sort before offsets at the
	// same timestamp, so the handover opens no span.
	spans := NoDataReport([]*StationResult{a, b}, 1)
	if len(spans) != 0 {
		t.Fatalf("spans = %+v, want none for a clean handover", spans)
	}
}

func TestNoDataReportGapBetweenRuns(t *testing.T) {
	base := time.Date(2010, 12, 28, 0, 0, 0, 0, time.UTC)
	sr := resultAt("la01", base, []int{0, 15, 30})
	second := resultAt("la01", base, []int{600, 615, 630})
	sr.Runs = append(sr.Runs, second.Runs[0])

	spans := NoDataReport([]*StationResult{sr}, 1)
	if len(spans) != 1 {
		t.Fatalf("spans = %d, want 1: %+v", len(spans), spans)
	}
	if !spans[0].Start.Equal(base.Add(30 * time.Second)) {
		t.Errorf("span start = %v, want 30s", spans[0].Start)
	}
	if !spans[0].End.Equal(base.Add(600 * time.Second)) {
		t.Errorf("span end = %v, want 600s", spans[0].End)
	}
}

func TestNoDataReportEmpty(t *testing.T) {
	if spans := NoDataReport(nil, 1); spans != nil {
		t.Errorf("spans = %+v, want nil", spans)
	}
	sr := &StationResult{Station: "la01", Interval: 15}
	if spans := NoDataReport([]*StationResult{sr}, 1); spans != nil {
		t.Errorf("spans = %+v, want nil for a result with no runs", spans)
	}
}
