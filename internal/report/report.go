// Package report renders cells and runs as markdown for the terminal.
package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"

	"vlife/internal/sim"
	"vlife/internal/store"
)

// Renderer turns markdown into styled terminal output.
type Renderer struct {
	tr *glamour.TermRenderer
}

// NewRenderer creates a renderer wrapping at width. style is a glamour style
// name ("dark", "light", "notty", "ascii"); empty picks one from the terminal.
func NewRenderer(width int, style string) (*Renderer, error) {
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if style == "" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}
	tr, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create renderer: %w", err)
	}
	return &Renderer{tr: tr}, nil
}

// Render renders markdown.
func (r *Renderer) Render(md string) (string, error) {
	out, err := r.tr.Render(md)
	if err != nil {
		return "", fmt.Errorf("failed to render report: %w", err)
	}
	return out, nil
}

// Cell describes a living cell at simulation time now.
func Cell(v sim.CellView, now float64) string {
	c := v.Cell
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Cell %d\n\n", v.ID)
	fmt.Fprintf(&sb, "Born at %.2fs, age %.2fs.\n\n", c.Birth(), c.Age(now))

	sb.WriteString("| Trait | Value |\n|---|---|\n")
	fmt.Fprintf(&sb, "| Position | (%.2f, %.2f) |\n", v.Position.X, v.Position.Y)
	fmt.Fprintf(&sb, "| Speed | %.2f |\n", math.Hypot(v.Velocity.X, v.Velocity.Y))
	fmt.Fprintf(&sb, "| Radius | %.2f of %.2f |\n", v.Radius, c.Size())
	fmt.Fprintf(&sb, "| Energy | %.2f (delta %.6f) |\n", c.Energy(), c.EnergyDelta())
	fmt.Fprintf(&sb, "| Stored energy | %.2f |\n", c.StoredEnergy())
	fmt.Fprintf(&sb, "| Movement | %.2f at %.0f deg |\n", c.MovementSpeed(), c.MovementDirection()*180/math.Pi)
	fmt.Fprintf(&sb, "| Contraction | %.3f |\n", c.ContractionAmount())
	fmt.Fprintf(&sb, "| Contact absorption | %.4f |\n", c.AbsorptionAmount())
	fmt.Fprintf(&sb, "| Contacts | %.0f |\n", c.ContactCount())

	sb.WriteString("\n## Molecules\n\n| # | Amount |\n|---|---|\n")
	for i, m := range c.Molecules() {
		fmt.Fprintf(&sb, "| %d | %.2f |\n", i, m)
	}
	fmt.Fprintf(&sb, "\nTotal %.2f.\n", c.MoleculesTotal())

	n := c.Neurons()
	sb.WriteString("\n## Neurons\n\n")
	fmt.Fprintf(&sb, "%d working neurons; hidden layer %s, output layer %s.\n",
		n.WorkingNeurons(), n.Hidden().Activation, n.Output().Activation)
	return sb.String()
}

// Runs lists runs as a table.
func Runs(runs []store.Run) string {
	if len(runs) == 0 {
		return "No runs recorded yet.\n"
	}
	var sb strings.Builder
	sb.WriteString("# Runs\n\n| ID | Name | World | Seed | Started | Steps | Status |\n|---|---|---|---|---|---|---|\n")
	for _, r := range runs {
		fmt.Fprintf(&sb, "| %s | %s | %d | %d | %s | %d | %s |\n",
			r.ID, r.Name, r.World, r.Seed, r.StartedAt.Format(time.DateTime), r.Steps, status(r))
	}
	return sb.String()
}

func status(r store.Run) string {
	if !r.Finished() {
		return "running"
	}
	return r.Reason
}

// Run describes one run: its settings, population curve and champions.
func Run(r store.Run, samples []store.Sample, champions []store.Champion) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# Run %s\n\n", r.ID)
	fmt.Fprintf(&sb, "- Name: %s\n- World: %d\n- Seed: %d\n- Started: %s\n",
		r.Name, r.World, r.Seed, r.StartedAt.Format(time.DateTime))
	if r.Finished() {
		fmt.Fprintf(&sb, "- Finished: %s after %d steps (%s)\n", r.FinishedAt.Format(time.DateTime), r.Steps, r.Reason)
	} else {
		sb.WriteString("- Status: running\n")
	}

	sb.WriteString("\n## Population\n\n")
	if len(samples) == 0 {
		sb.WriteString("No samples.\n")
	} else {
		sb.WriteString("| Step | Time | Cells | Births | Deaths | Mean energy | Best score |\n|---|---|---|---|---|---|---|\n")
		for _, s := range thin(samples, 20) {
			fmt.Fprintf(&sb, "| %d | %.1f | %d | %d | %d | %.2f | %.2f |\n",
				s.Step, s.Time, s.Population, s.Births, s.Deaths, s.MeanEnergy, s.BestScore)
		}
	}

	sb.WriteString("\n## Champions\n\n")
	if len(champions) == 0 {
		sb.WriteString("No champions yet.\n")
	} else {
		sb.WriteString("| # | Score | Genes | Saved at step |\n|---|---|---|---|\n")
		for _, c := range champions {
			fmt.Fprintf(&sb, "| %d | %.2f | %d | %d |\n", c.Position+1, c.Score, c.Genome.Len(), c.Step)
		}
	}

	if r.Config != "" {
		fmt.Fprintf(&sb, "\n## Configuration\n\n```yaml\n%s```\n", r.Config)
	}
	return sb.String()
}

// thin keeps at most n samples, evenly spaced, always keeping the last one.
func thin(samples []store.Sample, n int) []store.Sample {
	if len(samples) <= n {
		return samples
	}
	out := make([]store.Sample, 0, n)
	stride := float64(len(samples)-1) / float64(n-1)
	for i := 0; i < n; i++ {
		out = append(out, samples[int(math.Round(float64(i)*stride))])
	}
	return out
}
