// Package influxdb streams detector series and event summaries to an
// InfluxDB v2 bucket.
package influxdb

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/glaciodyn/stickslip/internal/log"
	"github.com/glaciodyn/stickslip/internal/types"
	"github.com/glaciodyn/stickslip/pkg/config"
)

// writeBatchSize bounds a single write request; a season of detector rows
// runs to hundreds of thousands of points.
const writeBatchSize = 5000

// Storage holds the client for an InfluxDB v2 storage backend
type Storage struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// New connects to InfluxDB and verifies the server is reachable.
func New(ctx context.Context, cfg *config.InfluxDBData) (*Storage, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	if _, err := client.Health(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to InfluxDB: %w", err)
	}
	return &Storage{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}, nil
}

// Name identifies the backend.
func (s *Storage) Name() string { return "influxdb" }

// StoreRun writes one point per merged-timeline row under the detector
// measurement, one per event under the event measurement, and one per
// no-data span, all tagged with the run id.
func (s *Storage) StoreRun(ctx context.Context, result *types.Result) error {
	points := make([]*write.Point, 0, len(result.Timeline.Times)+len(result.Catalog.Events))

	det := result.Detection
	for i, ts := range result.Timeline.Times {
		points = append(points, write.NewPoint(
			"detector",
			map[string]string{"run": result.RunID},
			map[string]interface{}{
				"res_sum":      det.ResSum[i],
				"thresh":       det.Thresh[i],
				"active_count": det.ActiveCount[i],
				"active":       det.Mask[i],
			},
			ts,
		))
	}

	for _, ev := range result.Catalog.Events {
		points = append(points, write.NewPoint(
			"event",
			map[string]string{"run": result.RunID},
			map[string]interface{}{
				"displacement_m":   ev.Displacement,
				"duration_seconds": ev.End.Sub(ev.Start).Seconds(),
				"samples":          len(ev.Times),
			},
			ev.Start,
		))
	}

	for _, span := range result.NoData {
		points = append(points, write.NewPoint(
			"nodata",
			map[string]string{"run": result.RunID},
			map[string]interface{}{
				"duration_seconds": span.End.Sub(span.Start).Seconds(),
			},
			span.Start,
		))
	}

	for start := 0; start < len(points); start += writeBatchSize {
		end := start + writeBatchSize
		if end > len(points) {
			end = len(points)
		}
		if err := s.writeAPI.WritePoint(ctx, points[start:end]...); err != nil {
			return fmt.Errorf("failed to write points: %w", err)
		}
	}

	log.Infof("stored run %s to InfluxDB: %d points", result.RunID, len(points))
	return nil
}

// Close shuts down the client.
func (s *Storage) Close() error {
	s.client.Close()
	return nil
}
