package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"discoverydraft-backend/config"
	"discoverydraft-backend/models"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose         bool
	rendererURL     string
	limitSROGs      int
	limitPODs       int
	limitAdmissions int

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "discovery",
	Short: "Plan and dispatch discovery document sets for a habitability case",
	Long: `discovery turns an intake submission (JSON) into per-plaintiff/per-defendant
discovery document sets and, with "run", submits them to the document renderer.

Configuration is read from the environment (and a .env file when present);
flags override it.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		zcfg := zap.NewProductionConfig()
		zcfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&rendererURL, "renderer", "", "Renderer base URL (or set RENDERER_URL env)")
	rootCmd.PersistentFlags().IntVar(&limitSROGs, "limit-srogs", 0, "Max interrogatories per set (0 = configured default)")
	rootCmd.PersistentFlags().IntVar(&limitPODs, "limit-pods", 0, "Max production requests per set (0 = configured default)")
	rootCmd.PersistentFlags().IntVar(&limitAdmissions, "limit-admissions", 0, "Max admission requests per set (0 = configured default)")

	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(taxonomyCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadPipelineConfig reads the environment and applies flag overrides
func loadPipelineConfig() (config.PipelineConfig, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return config.PipelineConfig{}, err
	}
	p := cfg.Pipeline
	if rendererURL != "" {
		p.RendererEndpoint = rendererURL
	}
	overrides := map[models.DocumentType]int{
		models.DocSROGs:      limitSROGs,
		models.DocPODs:       limitPODs,
		models.DocAdmissions: limitAdmissions,
	}
	for docType, limit := range overrides {
		if limit != 0 {
			p.ItemLimits[docType] = limit
		}
	}
	return p, nil
}

// readSubmission decodes a submission from path, or stdin when path is "-"
func readSubmission(path string, stdin io.Reader) (*models.RawSubmission, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read submission: %w", err)
	}

	var raw models.RawSubmission
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode submission %s: %w", path, err)
	}
	return &raw, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
