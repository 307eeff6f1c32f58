package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jonathanhorst/obsidian-media-summarizer/internal/manager"
	"github.com/jonathanhorst/obsidian-media-summarizer/internal/transcript"
)

var (
	titleFlag       string
	channelFlag     string
	descriptionFlag string
	outputFlag      string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <transcript-file>",
	Short: "Summarize a transcript (JSON or YAML list of timed lines)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := transcript.Load(args[0])
		if err != nil {
			return err
		}
		out := app.manager.SummarizeTranscript(cmd.Context(), transcript.PlainText(lines), metadataFor(lines))
		return writeResult(cmd, out)
	},
}

var enhanceCmd = &cobra.Command{
	Use:   "enhance <transcript-file>",
	Short: "Reformat a transcript with headings and timestamps, keeping the spoken words",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lines, err := transcript.Load(args[0])
		if err != nil {
			return err
		}
		out := app.manager.EnhanceTranscript(cmd.Context(), transcript.Format(lines), metadataFor(lines))
		if err := writeResult(cmd, out); err != nil {
			return err
		}
		reportTimestamps(cmd.ErrOrStderr(), out, lines)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{summarizeCmd, enhanceCmd} {
		c.Flags().StringVar(&titleFlag, "title", "", "video title, used as context and spelling reference")
		c.Flags().StringVar(&channelFlag, "channel", "", "channel name")
		c.Flags().StringVar(&descriptionFlag, "description", "", "video description")
		c.Flags().StringVarP(&outputFlag, "output", "o", "", "write the result to this file instead of stdout")
		rootCmd.AddCommand(c)
	}
}

func metadataFor(lines []transcript.Line) *transcript.Metadata {
	return &transcript.Metadata{
		Title:       titleFlag,
		Channel:     channelFlag,
		Description: descriptionFlag,
		Duration:    transcript.TotalDuration(lines),
	}
}

// writeResult prints a successful result, or returns the "Error: ..." string
// as the command error so the process exits non-zero.
func writeResult(cmd *cobra.Command, out string) error {
	if manager.IsErrorMessage(out) {
		return errors.New(strings.TrimPrefix(out, manager.ErrorPrefix))
	}
	if outputFlag == "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), out)
		return err
	}
	if err := os.WriteFile(outputFlag, []byte(out+"\n"), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outputFlag, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Result written to %s\n", outputFlag)
	return nil
}

// reportTimestamps warns about timestamps the model invented or placed past
// the end of the video. The output is not modified.
func reportTimestamps(w io.Writer, out string, lines []transcript.Line) {
	for _, v := range transcript.ValidateTimestamps(out, lines) {
		fmt.Fprintf(w, "warning: timestamp %s %s\n", v.Token, v.Reason)
	}
}
