package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/intake-cli/internal/model"
	"github.com/sells-group/intake-cli/internal/pipeline"
)

var (
	runFile        string
	runInteractive bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process a single complaint session",
	Long:  "Runs the full intake pipeline for one session, either interactively on the terminal or from a pre-recorded intake file.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if runFile == "" && !runInteractive {
			return eris.New("either --file or --interactive is required")
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var intake *model.Intake
		if runFile != "" {
			intake, err = loadIntakeFile(runFile)
			if err != nil {
				return err
			}
		}

		var src pipeline.AnswerSource
		if runInteractive {
			src = &terminalAnswers{in: bufio.NewReader(cmd.InOrStdin()), out: cmd.OutOrStdout()}
		}

		c, err := env.Pipeline.Run(ctx, intake, src)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		zap.L().Info("session complete",
			zap.String("session_id", c.SessionID),
			zap.String("status", string(c.Result.Status)),
		)

		printResultSummary(cmd.OutOrStdout(), c)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(c.Result)
	},
}

func init() {
	runCmd.Flags().StringVar(&runFile, "file", "", "intake JSON file with pre-recorded complaint details")
	runCmd.Flags().BoolVar(&runInteractive, "interactive", false, "collect the complaint dialogue on the terminal")
	rootCmd.AddCommand(runCmd)
}

// terminalAnswers bridges the dialogue collector to an interactive terminal.
// A lone "quit" or "exit" ends the dialogue early.
type terminalAnswers struct {
	in  *bufio.Reader
	out io.Writer
}

func (t *terminalAnswers) Ask(ctx context.Context, question string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	fmt.Fprintln(t.out, color.CyanString("agent: ")+question)
	fmt.Fprint(t.out, "> ")

	line, err := t.in.ReadString('\n')
	if err != nil && line == "" {
		return "", io.EOF
	}
	line = strings.TrimSpace(line)
	switch strings.ToLower(line) {
	case "quit", "exit":
		return "", io.EOF
	}
	return line, nil
}

// loadIntakeFile reads one pre-recorded intake submission from a JSON file.
func loadIntakeFile(path string) (*model.Intake, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "read intake file")
	}
	var intake model.Intake
	if err := json.Unmarshal(data, &intake); err != nil {
		return nil, eris.Wrapf(err, "parse intake file %s", path)
	}
	return &intake, nil
}

// printResultSummary writes a colored one-screen summary of the terminal
// result. The JSON artifact on stdout stays machine-readable.
func printResultSummary(out io.Writer, c *model.Case) {
	if c.Result == nil {
		return
	}

	var status string
	switch c.Result.Status {
	case model.ResultResolved:
		status = color.GreenString("RESOLVED")
	case model.ResultEscalated:
		status = color.YellowString("ESCALATED")
	default:
		status = color.RedString("ERROR")
	}

	fmt.Fprintf(out, "\n%s  case %s\n", status, c.SessionID)
	if c.Detection != nil {
		fmt.Fprintf(out, "company:  %s (confidence %.2f)\n", c.Detection.Company, c.Detection.Confidence)
	}
	fmt.Fprintf(out, "category: %s\n", c.Result.Category)
	fmt.Fprintf(out, "priority: %s\n", c.Result.Priority)
	if c.Result.Target != nil {
		fmt.Fprintf(out, "routed:   %s, %s (%s)\n", c.Result.Target.Name, c.Result.Target.Role, c.Result.Target.Contact)
	}
	fmt.Fprintf(out, "\n%s\n\n", c.Result.Message)
}
