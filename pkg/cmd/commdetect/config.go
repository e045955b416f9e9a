package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/gilchrisn/traffic-community-service/pkg/community"
	"github.com/gilchrisn/traffic-community-service/pkg/parser"
)

const envPrefix = "COMMDETECT"

// defaultDatasets is the sensor dataset catalog, relative to data_dir
var defaultDatasets = map[string]string{
	"Large":          "Cisco_22_networks/dir_20_graphs/dir_day1/out1_1.txt.gz",
	"Small 2 days":   "Cisco_22_networks/dir_g21_small_workload_with_gt/dir_no_packets_etc/edges_2days_feb10thruFeb11_all_49sensors.csv.txt.gz",
	"Small 4 days":   "Cisco_22_networks/dir_g21_small_workload_with_gt/dir_no_packets_etc/edges_4days_feb10thruFeb13_all_49sensors.csv.txt.gz",
	"Small 12 hours": "Cisco_22_networks/dir_g21_small_workload_with_gt/dir_no_packets_etc/edges_12hrs_feb10_all_49sensors.csv.txt.gz",
	"Test":           "Cisco_22_networks/dir_g21_small_workload_with_gt/grouping.gt.txt",
}

const defaultGroundTruth = "Cisco_22_networks/dir_g21_small_workload_with_gt/grouping.gt.txt"

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("data_dir", ".")
	v.SetDefault("dataset", "Small 2 days")
	v.SetDefault("datasets", defaultDatasets)
	v.SetDefault("groundtruth", defaultGroundTruth)

	v.SetDefault("edges.layout", "graph-prefixed")
	v.SetDefault("edges.comment_prefix", "#")

	d := community.DefaultOptions()
	v.SetDefault("detector.seed", d.Seed)
	v.SetDefault("detector.max_iterations", d.MaxIterations)
	v.SetDefault("detector.spectral_k", d.SpectralK)
	v.SetDefault("detector.kernighan_lin_passes", d.KernighanLinPasses)
	v.SetDefault("detector.girvan_newman_max_nodes", d.GirvanNewmanMaxNodes)
	v.SetDefault("detector.resolution", d.Resolution)
	v.SetDefault("detector.louvain_max_levels", d.LouvainMaxLevels)
	v.SetDefault("detector.louvain_max_iterations", d.LouvainMaxIterations)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v
}

// loadConfigFile reads path when given; a missing default file is not an error
func loadConfigFile(v *viper.Viper, path string) error {
	if path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	return nil
}

// resolveDataset maps a catalog label ("Small 2 days") to a file path.
// Labels match case-insensitively; keys read from a config file arrive
// lower-cased while the built-in catalog keeps its display case.
func resolveDataset(v *viper.Viper, label string) (string, error) {
	label = strings.TrimSpace(label)
	for name, rel := range v.GetStringMapString("datasets") {
		if strings.EqualFold(name, label) {
			return dataPath(v, rel), nil
		}
	}
	return "", fmt.Errorf("unknown dataset %q", label)
}

func dataPath(v *viper.Viper, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(v.GetString("data_dir"), p)
}

// detectorOptions reads each detector key on its own so bound flags and
// COMMDETECT_DETECTOR_* variables take part in the lookup
func detectorOptions(v *viper.Viper) (community.Options, error) {
	opts := community.DefaultOptions()
	opts.Seed = v.GetInt64("detector.seed")
	opts.MaxIterations = v.GetInt("detector.max_iterations")
	opts.SpectralK = v.GetInt("detector.spectral_k")
	opts.KernighanLinPasses = v.GetInt("detector.kernighan_lin_passes")
	opts.GirvanNewmanMaxNodes = v.GetInt("detector.girvan_newman_max_nodes")
	opts.Resolution = v.GetFloat64("detector.resolution")
	opts.LouvainMaxLevels = v.GetInt("detector.louvain_max_levels")
	opts.LouvainMaxIterations = v.GetInt("detector.louvain_max_iterations")
	return opts, opts.Validate()
}

func parserOptions(v *viper.Viper) (parser.Options, error) {
	opts := parser.Options{CommentPrefix: v.GetString("edges.comment_prefix")}
	switch layout := v.GetString("edges.layout"); layout {
	case "graph-prefixed", "":
		opts.Layout = parser.LayoutGraphPrefixed
	case "plain":
		opts.Layout = parser.LayoutPlain
	default:
		return opts, fmt.Errorf("unknown edge layout %q", layout)
	}
	return opts, nil
}

// newLogger creates a zerolog logger based on config
func newLogger(v *viper.Viper, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(v.GetString("log.level"))
	if err != nil {
		level = zerolog.InfoLevel
	}
	if out == nil {
		out = os.Stderr
	}
	if !v.GetBool("log.json") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}
