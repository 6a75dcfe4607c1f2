package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	gmd "github.com/blenderfreaky/yk-gmd-io"
)

var (
	cfgPath  string
	logLevel string
	strict   bool
)

func main() {
	root := &cobra.Command{
		Use:           "gmdconv",
		Short:         "Convert between the gmdc mesh container and glTF",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a yaml config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "override the configured log level")
	root.PersistentFlags().BoolVar(&strict, "strict", false, "treat recoverable conversion problems as errors")

	root.AddCommand(convertCmd(), infoCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setup() (*Config, *zap.Logger, error) {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if strict {
		cfg.Convert.Strict = true
	}
	lvl, err := zapcore.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, nil, fmt.Errorf("bad log level %q: %w", cfg.Logging.Level, err)
	}
	zcfg := zap.NewDevelopmentConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	if cfg.Logging.File != "" {
		zcfg.OutputPaths = []string{cfg.Logging.File}
	}
	log, err := zcfg.Build()
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func loadModel(path string, rep *gmd.Reporter) (*gmd.Model, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case gmd.GMDEXT:
		return gmd.ModelReadFrom(path)
	case ".gltf", ".glb":
		conv := &gmd.GltfToModel{Rep: rep}
		return conv.Convert(path)
	default:
		return nil, fmt.Errorf("unsupported input format %q", filepath.Ext(path))
	}
}

func writeModel(path string, m *gmd.Model, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case gmd.GMDEXT:
		return gmd.ModelWriteTo(path, m)
	case ".glb":
		doc, err := gmd.ModelToGltf(m)
		if err != nil {
			return err
		}
		bt, err := gmd.GetGltfBinary(doc, cfg.Convert.PaddingUnit)
		if err != nil {
			return err
		}
		return os.WriteFile(path, bt, 0o644)
	default:
		return fmt.Errorf("unsupported output format %q", filepath.Ext(path))
	}
}

func convertCmd() *cobra.Command {
	var dedupe bool
	cmd := &cobra.Command{
		Use:   "convert <input> <output>",
		Short: "Convert a model between formats",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()
			rep := gmd.NewReporter(log, cfg.Convert.Strict)

			m, err := loadModel(args[0], rep)
			if err != nil {
				return err
			}
			if dedupe {
				for _, nd := range m.Nodes {
					nd.Dedupe(cfg.Convert.MaxVertices, rep)
				}
			}
			if err := writeModel(args[1], m, cfg); err != nil {
				return err
			}
			log.Info("converted",
				zap.String("input", args[0]),
				zap.String("output", args[1]),
				zap.Int("nodes", m.NodeCount()),
				zap.Int("materials", m.MaterialCount()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dedupe, "dedupe", true, "fuse duplicated vertices before writing")
	return cmd
}

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <input>",
		Short: "Print model statistics and fusion potential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			m, err := loadModel(args[0], gmd.NewReporter(log, false))
			if err != nil {
				return err
			}
			fmt.Printf("nodes:     %d\n", m.NodeCount())
			fmt.Printf("materials: %d\n", m.MaterialCount())
			bbx := m.ComputeBBox()
			fmt.Printf("bbox:      min %v max %v\n", bbx.Min, bbx.Max)
			for _, nd := range m.Nodes {
				f := nd.Fuse()
				fmt.Printf("node %q: %d submeshes, %d triangles, %d vertices (%d fusable)\n",
					nd.Name, len(nd.Submeshes), nd.TriangleCount(), f.VertexCount(), f.FusedCount())
			}
			return nil
		},
	}
}
