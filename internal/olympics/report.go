package olympics

import (
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"cgpforage/internal/cgp"
	"cgpforage/internal/model"
)

// Report is the free-text summary of one olympics run.
type Report struct {
	RunID      string
	Population int
	Events     []Event
	Results    []model.EventResult
	Genomes    []*cgp.Genome
}

// Tally counts zero scores, scores in (0, band] and scores above band.
func Tally(scores []int, band int) (zero, low, high int) {
	for _, s := range scores {
		switch {
		case s <= 0:
			zero++
		case s <= band:
			low++
		default:
			high++
		}
	}
	return zero, low, high
}

// SuccessCounts reports, per controller, how many events it ate anything in,
// and a histogram of those counts indexed 0..events.
func SuccessCounts(histories [][]int, events int) ([]int, []int) {
	counts := make([]int, len(histories))
	histogram := make([]int, events+1)
	for i, scores := range histories {
		for _, s := range scores {
			if s != 0 {
				counts[i]++
			}
		}
		if counts[i] < len(histogram) {
			histogram[counts[i]]++
		}
	}
	return counts, histogram
}

// AverageActiveNodes is the mean active node count, or 0 for no genomes.
func AverageActiveNodes(genomes []*cgp.Genome) float64 {
	if len(genomes) == 0 {
		return 0
	}
	total := 0
	for _, g := range genomes {
		total += g.ActiveCount()
	}
	return float64(total) / float64(len(genomes))
}

func (r Report) byRegime(regime cgp.Regime) []*cgp.Genome {
	var out []*cgp.Genome
	for _, g := range r.Genomes {
		if g.Regime == regime {
			out = append(out, g)
		}
	}
	return out
}

func (r Report) eventScores(event string, regime cgp.Regime) []int {
	scores := []int{}
	for _, res := range r.Results {
		if res.Event == event && res.Regime == string(regime) {
			scores = append(scores, res.Food)
		}
	}
	return scores
}

func (r Report) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "----RUN %s---\n", r.RunID)
	fmt.Fprintf(&b, "Population Size: %s\n\n", humanize.Comma(int64(r.Population)))

	for i, ev := range r.Events {
		if i > 0 {
			b.WriteString("\n")
		}
		for _, regime := range []cgp.Regime{cgp.RegimeNovelty, cgp.RegimeFitness} {
			scores := r.eventScores(ev.Name, regime)
			zero, low, high := Tally(scores, ev.Band)
			fmt.Fprintf(&b, "%s %s:\n%v\n(%d, %d, %d)\n", ev.Title, regimeTitle(regime), scores, zero, low, high)
		}
	}

	b.WriteString("\n\n")
	for _, regime := range []cgp.Regime{cgp.RegimeNovelty, cgp.RegimeFitness} {
		genomes := r.byRegime(regime)
		histories := make([][]int, len(genomes))
		tagged := make([]string, len(genomes))
		for i, g := range genomes {
			histories[i] = make([]int, 0, len(g.Scores))
			parts := make([]string, 0, len(g.Scores))
			for _, s := range g.Scores {
				histories[i] = append(histories[i], s.Food)
				parts = append(parts, fmt.Sprintf("%s=%d", s.Scenario, s.Food))
			}
			tagged[i] = g.ID + "[" + strings.Join(parts, " ") + "]"
		}
		counts, histogram := SuccessCounts(histories, len(r.Events))
		fmt.Fprintf(&b, "Controller Scores %s:\n%v\n%s\n%v %v\n",
			regimeTitle(regime), histories, strings.Join(tagged, " "), counts, histogram)
	}

	b.WriteString("Average Number of Active Nodes:\n")
	fmt.Fprintf(&b, "Novelty: %s\n", humanize.Ftoa(AverageActiveNodes(r.byRegime(cgp.RegimeNovelty))))
	fmt.Fprintf(&b, "Fitness: %s\n", humanize.Ftoa(AverageActiveNodes(r.byRegime(cgp.RegimeFitness))))
	return b.String()
}

// Append adds the rendered report to the file at path, separated from any
// existing content by a blank line.
func (r Report) Append(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat report: %w", err)
	}
	text := r.Render()
	if info.Size() > 0 {
		text = "\n\n" + text
	}
	if _, err := f.WriteString(text); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func regimeTitle(r cgp.Regime) string {
	switch r {
	case cgp.RegimeNovelty:
		return "Novelty"
	case cgp.RegimeFitness:
		return "Fitness"
	default:
		return "Unset"
	}
}
