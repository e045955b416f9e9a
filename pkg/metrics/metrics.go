package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the metrics of one analysis service on its own registry
type Recorder struct {
	registry *prometheus.Registry

	EdgeLinesTotal         *prometheus.CounterVec
	GroundTruthGroupsTotal prometheus.Counter
	DetectionsTotal        *prometheus.CounterVec
	DetectionDuration      *prometheus.HistogramVec
	CommunitiesDetected    *prometheus.GaugeVec
}

// NewRecorder creates a recorder backed by a fresh registry
func NewRecorder() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}
	factory := promauto.With(r.registry)

	r.EdgeLinesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commdetect_edge_lines_total",
			Help: "Edge file lines read, by result (accepted, skipped, comment)",
		},
		[]string{"result"},
	)

	r.GroundTruthGroupsTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "commdetect_groundtruth_groups_total",
			Help: "Ground-truth groups loaded",
		},
	)

	r.DetectionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "commdetect_detections_total",
			Help: "Community detection runs, by algorithm and outcome",
		},
		[]string{"algorithm", "outcome"},
	)

	r.DetectionDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "commdetect_detection_duration_seconds",
			Help:    "Community detection duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1.0, 5.0, 30.0, 120.0},
		},
		[]string{"algorithm"},
	)

	r.CommunitiesDetected = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "commdetect_communities_detected",
			Help: "Number of communities found by the last run of each algorithm",
		},
		[]string{"algorithm"},
	)

	return r
}

// Registry exposes the underlying registry for gathering
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordEdgeLines records the outcome of reading one edge file
func (r *Recorder) RecordEdgeLines(accepted, skipped, comments int) {
	r.EdgeLinesTotal.WithLabelValues("accepted").Add(float64(accepted))
	r.EdgeLinesTotal.WithLabelValues("skipped").Add(float64(skipped))
	r.EdgeLinesTotal.WithLabelValues("comment").Add(float64(comments))
}

// RecordGroundTruth records the number of groups in a loaded ground truth
func (r *Recorder) RecordGroundTruth(groups int) {
	r.GroundTruthGroupsTotal.Add(float64(groups))
}

// RecordDetection records one detection run. communities is ignored when err is set.
func (r *Recorder) RecordDetection(algorithm string, duration time.Duration, communities int, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.DetectionsTotal.WithLabelValues(algorithm, outcome).Inc()
	r.DetectionDuration.WithLabelValues(algorithm).Observe(duration.Seconds())
	if err == nil {
		r.CommunitiesDetected.WithLabelValues(algorithm).Set(float64(communities))
	}
}

// WriteToTextfile dumps every metric in the text exposition format
func (r *Recorder) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
