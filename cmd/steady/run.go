package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/entrhq/steady/pkg/browser"
	"github.com/entrhq/steady/pkg/scenario"
	"github.com/spf13/cobra"
)

var errScenariosFailed = errors.New("one or more scenarios failed")

func runCmd(flags *cliFlags, stdout, stderr io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>...",
		Short: "Run scenarios once per configured browser",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios := make([]*scenario.Scenario, 0, len(args))
			for _, path := range args {
				sc, err := scenario.Load(path)
				if err != nil {
					return err
				}
				if sc.Name == "" {
					sc.Name = strings.TrimSuffix(path, ".yaml")
				}
				scenarios = append(scenarios, sc)
			}

			settings := resolve(flags, cmd)
			logger := flags.logger(stderr)
			defer logger.Close()

			var artifacts *scenario.ArtifactWriter
			if flags.artifacts != "" {
				artifacts = scenario.NewArtifactWriter(flags.artifacts)
			}

			failed := false
			for _, alias := range settings.Browsers {
				sess := browser.New(settings.ForBrowser(alias), browser.WithLogger(logger.With("browser")))
				runner := scenario.NewRunner(sess, artifacts, logger.With("scenario"))
				for _, sc := range scenarios {
					report := runner.Run(cmd.Context(), sc)
					fmt.Fprintln(stdout, renderReport(report))
					failed = failed || !report.Passed()
				}
				if err := sess.Quit(); err != nil {
					logger.Warnf("failed to close %s: %v", alias, err)
				}
			}

			if failed {
				return errScenariosFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&flags.artifacts, "artifacts", "", "directory for reports and failure screenshots")
	return cmd
}

// renderReport formats one scenario report for the terminal.
func renderReport(r *scenario.Report) string {
	var b strings.Builder

	status := passStyle.Render("PASS")
	if !r.Passed() {
		status = failStyle.Render("FAIL")
	}
	b.WriteString(fmt.Sprintf("%s %s %s\n", status, headerStyle.Render(r.Scenario), skipStyle.Render("["+r.Browser+", "+r.Duration.Round(time.Millisecond).String()+"]")))

	for _, st := range r.Steps {
		line := fmt.Sprintf("%2d. %s", st.Index, st.Action)
		if st.Target != "" {
			line += " " + st.Target
		}
		switch st.Status {
		case scenario.StatusPassed:
			b.WriteString(passStyle.Render("  ✓ "+line) + "\n")
		case scenario.StatusFailed:
			b.WriteString(failStyle.Render("  ✗ "+line) + "\n")
			for _, l := range strings.Split(st.Error, "\n") {
				b.WriteString(detailStyle.Render(l) + "\n")
			}
			if st.Screenshot != "" {
				b.WriteString(detailStyle.Render("screenshot: "+st.Screenshot) + "\n")
			}
		default:
			b.WriteString(skipStyle.Render("  - "+line) + "\n")
		}
	}
	if r.Error != "" && len(r.Steps) > 0 && r.Steps[0].Status == scenario.StatusSkipped {
		b.WriteString(detailStyle.Render(r.Error) + "\n")
	}

	return reportBoxStyle.Render(strings.TrimRight(b.String(), "\n"))
}
