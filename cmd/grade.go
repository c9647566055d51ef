package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/abhisek/examiner/internal/feedback"
	"github.com/abhisek/examiner/internal/ingest"
	"github.com/spf13/cobra"
)

var gradeCmd = &cobra.Command{
	Use:   "grade <answer-file|->",
	Short: "Grade an answer file (and optional diagram) from the command line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		sub, err := readSubmission(cmd, args[0])
		if err != nil {
			return err
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		d, err := buildDeps(ctx, cfg)
		if err != nil {
			return err
		}
		defer d.Close()

		res, err := d.grader.Grade(ctx, sub)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		}
		printResult(out, res)
		return nil
	},
}

func init() {
	gradeCmd.Flags().StringP("diagram", "d", "", "Path to a diagram image or PDF")
	gradeCmd.Flags().Bool("json", false, "Print the JSON response body instead of a table")
	gradeCmd.Flags().Int64("max-diagram-bytes", ingest.DefaultMaxDiagramBytes, "Largest diagram accepted")
}

func readSubmission(cmd *cobra.Command, answerPath string) (*ingest.Submission, error) {
	var (
		answer []byte
		err    error
	)
	if answerPath == "-" {
		answer, err = io.ReadAll(cmd.InOrStdin())
	} else {
		answer, err = os.ReadFile(answerPath)
	}
	if err != nil {
		return nil, fmt.Errorf("read answer: %w", err)
	}
	sub := &ingest.Submission{Answer: string(answer)}

	diagramPath, _ := cmd.Flags().GetString("diagram")
	if diagramPath == "" {
		return sub, nil
	}

	limit, _ := cmd.Flags().GetInt64("max-diagram-bytes")
	info, err := os.Stat(diagramPath)
	if err != nil {
		return nil, fmt.Errorf("read diagram: %w", err)
	}
	if info.Size() > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes", ingest.ErrDiagramTooLarge, diagramPath, info.Size())
	}
	data, err := os.ReadFile(diagramPath)
	if err != nil {
		return nil, fmt.Errorf("read diagram: %w", err)
	}
	sub.Diagram = &ingest.DiagramAsset{
		Filename: filepath.Base(diagramPath),
		MIMEType: ingest.PickMIME(mime.TypeByExtension(filepath.Ext(diagramPath)), data),
		Data:     data,
	}
	return sub, nil
}

func printResult(w io.Writer, res *feedback.Result) {
	fmt.Fprintf(w, "%-8s  %s\n", "Mark", "Sentence / comment")
	fmt.Fprintln(w, strings.Repeat("─", 72))
	for _, fb := range res.Feedback {
		fmt.Fprintf(w, "%-8s  %s\n", fb.Highlight, fb.Sentence)
		if fb.Comment != "" {
			fmt.Fprintf(w, "%-8s  → %s\n", "", fb.Comment)
		}
	}
	if len(res.Feedback) == 0 {
		fmt.Fprintf(w, "No sentence feedback (%s).\n", res.Extraction)
	}

	if res.DiagramFeedback != nil {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Diagram")
		fmt.Fprintln(w, strings.Repeat("─", 72))
		fmt.Fprintln(w, *res.DiagramFeedback)
	}
}
