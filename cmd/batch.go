package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/model"
)

var (
	batchDir   string
	batchLimit int
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process a directory of pre-recorded intake files",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		intakes, files, err := loadIntakeDir(batchDir)
		if err != nil {
			return err
		}
		if len(intakes) == 0 {
			zap.L().Info("no intake files found", zap.String("dir", batchDir))
			return nil
		}
		if batchLimit > 0 && len(intakes) > batchLimit {
			intakes = intakes[:batchLimit]
			files = files[:batchLimit]
		}

		zap.L().Info("processing batch",
			zap.Int("intakes", len(intakes)),
			zap.Int("concurrency", cfg.Batch.MaxConcurrentSessions),
		)

		outcomes := env.Pipeline.RunBatch(ctx, intakes)

		var resolved, escalated, failed int
		for _, out := range outcomes {
			name := filepath.Base(files[out.Index])
			switch {
			case out.Err != nil || out.Case == nil || out.Case.Result == nil:
				failed++
				cmd.Printf("%s  %s\n", color.RedString("FAIL"), name)
			case out.Case.Result.Status == model.ResultResolved:
				resolved++
				cmd.Printf("%s  %s → %s\n", color.GreenString("OK  "), name, out.Case.Result.Category)
			case out.Case.Result.Status == model.ResultEscalated:
				escalated++
				target := "specialist"
				if out.Case.Result.Target != nil {
					target = out.Case.Result.Target.Name
				}
				cmd.Printf("%s  %s → %s\n", color.YellowString("ESC "), name, target)
			default:
				failed++
				cmd.Printf("%s  %s\n", color.RedString("FAIL"), name)
			}
		}

		zap.L().Info("batch complete",
			zap.Int("resolved", resolved),
			zap.Int("escalated", escalated),
			zap.Int("failed", failed),
		)
		return nil
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchDir, "dir", "", "directory of intake JSON files (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max number of intakes to process (0 = all)")
	_ = batchCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(batchCmd)
}

// loadIntakeDir reads every .json intake file in dir, sorted by name so batch
// order is reproducible.
func loadIntakeDir(dir string) ([]model.Intake, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, eris.Wrap(err, "read intake dir")
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)

	intakes := make([]model.Intake, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, eris.Wrapf(err, "read intake file %s", path)
		}
		var intake model.Intake
		if err := json.Unmarshal(data, &intake); err != nil {
			return nil, nil, eris.Wrapf(err, "parse intake file %s", path)
		}
		intakes = append(intakes, intake)
	}
	return intakes, files, nil
}
