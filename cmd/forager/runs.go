package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cgpforage/internal/config"
	"cgpforage/internal/model"
	"cgpforage/internal/olympics"
	"cgpforage/pkg/forager"
)

func newRunsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			runs, err := client.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs")
				return nil
			}
			for _, run := range runs {
				fmt.Fprintf(out, "run_id=%s status=%s seed=%d generations=%d qualified=%d+%d started=%s\n",
					run.ID, run.Status, run.Seed, run.Generations, run.NoveltyQualified, run.FitnessQualified,
					humanize.Time(run.StartedAt))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "max runs to list (0 lists all)")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show one stored run: summary, qualified pool and olympic tallies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			defer func() {
				_ = client.Close()
			}()

			detail, err := client.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), renderRun(detail))
			return err
		},
	}
}

func renderRun(d forager.RunDetail) string {
	s := d.Summary
	summary := []string{
		titleStyle.Render("run " + s.ID),
		field("status", string(s.Status)),
		field("seed", fmt.Sprint(s.Seed)),
		field("started", s.StartedAt.Format("2006-01-02 15:04:05")),
		field("duration", s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond).String()),
		field("generations", humanize.Comma(int64(s.Generations))),
		field("fitness phase start", fmt.Sprint(s.FitnessPhaseStart)),
		field("archive size", humanize.Comma(int64(s.ArchiveSize))),
		field("qualified", fmt.Sprintf("%d novelty, %d fitness", s.NoveltyQualified, s.FitnessQualified)),
	}
	if s.ReportPath != "" {
		summary = append(summary, field("report", s.ReportPath))
	}
	sections := []string{panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, summary...))}

	if len(d.Qualified) > 0 {
		rows := []string{headerStyle.Render("qualified pool")}
		rows = append(rows, fmt.Sprintf("%-9s %-8s %5s %6s %5s %8s", "genome", "regime", "gen", "active", "food", "novelty"))
		for _, q := range d.Qualified {
			rows = append(rows, fmt.Sprintf("%-9s %-8s %5d %6d %5.0f %8.3f",
				q.GenomeID, q.Regime, q.Generation, q.ActiveNodes, q.Fitness, q.Novelty))
		}
		sections = append(sections, strings.Join(rows, "\n"))
	}

	if len(d.Events) > 0 {
		sections = append(sections, renderTallies(s, d.Events))
	}
	return strings.Join(sections, "\n\n")
}

// renderTallies groups event results by event and regime and tallies them
// against the event bands of the configuration the run was stored with.
func renderTallies(s model.RunSummary, results []model.EventResult) string {
	cfg, err := config.Parse([]byte(s.Config))
	if err != nil {
		cfg = config.Default()
	}
	events := olympics.StandardEvents(cfg.EvaluationScenario())
	bands := make(map[string]int, len(events))
	order := make(map[string]int, len(events))
	for i, ev := range events {
		bands[ev.Name] = ev.Band
		order[ev.Name] = i
	}

	type key struct{ event, regime string }
	scores := map[key][]int{}
	var keys []key
	for _, r := range results {
		k := key{r.Event, r.Regime}
		if _, ok := scores[k]; !ok {
			keys = append(keys, k)
		}
		scores[k] = append(scores[k], r.Food)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		if keys[i].event != keys[j].event {
			return order[keys[i].event] < order[keys[j].event]
		}
		return keys[i].regime > keys[j].regime
	})

	rows := []string{headerStyle.Render("olympics (zero, low, high)")}
	for _, k := range keys {
		zero, low, high := olympics.Tally(scores[k], bands[k.event])
		rows = append(rows, fmt.Sprintf("%-8s %-8s (%d, %d, %d) %v", k.event, k.regime, zero, low, high, scores[k]))
	}
	return strings.Join(rows, "\n")
}
