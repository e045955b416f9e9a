package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gilchrisn/traffic-community-service/pkg/analysis"
	"github.com/gilchrisn/traffic-community-service/pkg/community"
	"github.com/gilchrisn/traffic-community-service/pkg/metrics"
	"github.com/gilchrisn/traffic-community-service/pkg/stats"
)

// app is the state shared by subcommands once the root has loaded its config
type app struct {
	v       *viper.Viper
	logger  zerolog.Logger
	service *analysis.Service
	metrics *metrics.Recorder
}

func newRootCmd() *cobra.Command {
	a := &app{v: newViper()}
	var configFile, metricsFile string

	cmd := &cobra.Command{
		Use:   "commdetect",
		Short: "Community detection over sensor contact graphs",
		Long: `commdetect loads a sensor edge list, partitions it with one of several
community detection algorithms and reports partition and ground-truth statistics.

Examples:
  commdetect detect --algorithm louvain --dataset "Small 2 days"
  commdetect detect --algorithm spectral --edges edges.txt.gz --seed 7
  commdetect stats --file grouping.gt.txt`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := loadConfigFile(a.v, configFile); err != nil {
				return err
			}
			a.logger = newLogger(a.v, cmd.ErrOrStderr())
			log.Logger = a.logger

			parserOpts, err := parserOptions(a.v)
			if err != nil {
				return err
			}
			detectorOpts, err := detectorOptions(a.v)
			if err != nil {
				return err
			}

			a.metrics = metrics.NewRecorder()
			a.service = analysis.New(analysis.Config{
				Parser:   parserOpts,
				Detector: &detectorOpts,
				Logger:   a.logger,
				Metrics:  a.metrics,
			})
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if metricsFile == "" || a.metrics == nil {
				return nil
			}
			if err := a.metrics.WriteToTextfile(metricsFile); err != nil {
				return fmt.Errorf("write metrics: %w", err)
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "YAML config file")
	flags.StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.String("data-dir", ".", "Directory dataset paths are relative to")
	a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	a.v.BindPFlag("data_dir", flags.Lookup("data-dir"))

	cmd.AddCommand(newDetectCmd(a))
	cmd.AddCommand(newGroundTruthCmd(a))
	cmd.AddCommand(newStatsCmd(a))
	cmd.AddCommand(newAlgorithmsCmd())

	return cmd
}

func newDetectCmd(a *app) *cobra.Command {
	var algorithm, dataset, edges, groundTruth string
	var seed int64

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect communities and print the report as JSON",
		Long: `detect partitions an edge file with the chosen algorithm and prints the
partition, its modularity and optional ground-truth statistics as JSON.

Spectral clustering splits the graph into min(K, nodes) groups, where K comes
from --spectral-k (default 8). On graphs with K or fewer nodes every node ends
up in its own community, so lower K for small inputs.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			alg, err := community.ParseAlgorithm(algorithm)
			if err != nil {
				return err
			}
			path, err := a.edgesPath(dataset, edges)
			if err != nil {
				return err
			}

			req := analysis.Request{
				EdgesPath:       path,
				Algorithm:       alg,
				GroundTruthPath: groundTruth,
			}
			if cmd.Flags().Changed("seed") {
				req.Seed = &seed
			}

			report, err := a.service.Run(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("%s error: %w", analysis.Classify(err), err)
			}
			return writeJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", string(community.Louvain), "Algorithm identifier or display name")
	cmd.Flags().StringVar(&dataset, "dataset", "", "Dataset label from the catalog")
	cmd.Flags().StringVar(&edges, "edges", "", "Edge file path (overrides --dataset)")
	cmd.Flags().StringVar(&groundTruth, "groundtruth", "", "Ground-truth file to describe alongside the partition")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (defaults to detector.seed)")
	cmd.Flags().Int("spectral-k", community.DefaultOptions().SpectralK, "Number of spectral clusters (detector.spectral_k)")
	a.v.BindPFlag("detector.spectral_k", cmd.Flags().Lookup("spectral-k"))
	return cmd
}

func newGroundTruthCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "groundtruth",
		Short: "Print the node to group and group to node maps",
		RunE: func(cmd *cobra.Command, args []string) error {
			gt, err := a.service.BuildGroundTruth(a.groundTruthPath(file))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), gt)
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Ground-truth file (defaults to the groundtruth setting)")
	return cmd
}

func newStatsCmd(a *app) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print ground-truth group statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			gt, err := a.service.BuildGroundTruth(a.groundTruthPath(file))
			if err != nil {
				return err
			}
			s, err := a.service.ComputeStatistics(gt.GroupToNodes)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				NumGroups     int           `json:"num_groups"`
				GroupSizes    map[int]int   `json:"group_sizes"`
				SizeHistogram map[int]int   `json:"size_histogram"`
				Bins          []stats.Bin   `json:"bins"`
				Summary       stats.Summary `json:"summary"`
			}{s.NumGroups, s.GroupSizes, s.SizeHistogram, s.Bins(), s.Summary})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Ground-truth file (defaults to the groundtruth setting)")
	return cmd
}

func newAlgorithmsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "algorithms",
		Short: "List the available algorithms",
		// no config needed
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, alg := range community.Algorithms() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-18s %s\n", alg, alg.DisplayName())
			}
			return nil
		},
	}
}

func (a *app) edgesPath(dataset, edges string) (string, error) {
	if edges != "" {
		return edges, nil
	}
	if dataset == "" {
		dataset = a.v.GetString("dataset")
	}
	return resolveDataset(a.v, dataset)
}

func (a *app) groundTruthPath(file string) string {
	if file != "" {
		return file
	}
	return dataPath(a.v, a.v.GetString("groundtruth"))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
