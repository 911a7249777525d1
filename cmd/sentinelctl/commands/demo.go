package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/kestrel-systems/sentinel/internal/actor"
	"github.com/kestrel-systems/sentinel/internal/supervisor"
	"github.com/spf13/cobra"
)

var (
	demoStrategy    string
	demoChildren    int
	demoFailIndex   int
	demoMaxRestarts int
	demoMaxSeconds  float64
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a small supervision scenario and report the outcome",
	Long: `demo spawns a supervisor with a handful of counting children, fails
one of them on purpose, waits for the supervisor to react, then prints
which_children/count_children so the restart strategy's effect is visible.`,
	RunE: runDemo,
}

func init() {
	demoCmd.Flags().StringVar(
		&demoStrategy, "strategy", "one_for_one",
		"Restart strategy: one_for_one, one_for_all, rest_for_one",
	)
	demoCmd.Flags().IntVar(
		&demoChildren, "children", 3, "Number of children to start",
	)
	demoCmd.Flags().IntVar(
		&demoFailIndex, "fail", 0, "Index (0-based) of the child to fail",
	)
	demoCmd.Flags().IntVar(
		&demoMaxRestarts, "max-restarts", 3,
		"Restart-intensity budget: restarts tolerated per window",
	)
	demoCmd.Flags().Float64Var(
		&demoMaxSeconds, "max-seconds", 5, "Restart-intensity window, in seconds",
	)
}

// countingChild returns a Start whose behavior echoes requests and, on
// receiving the payload "fail", exits with an error so the supervisor's
// restart decision kicks in.
func countingChild(starts *atomic.Int64) supervisor.Start {
	return func(ctx context.Context) actor.Behavior {
		starts.Add(1)
		return func(ctx context.Context, as *actor.ActorState, env actor.Envelope) (actor.Mode, error) {
			if env.Kind == actor.KindRequest {
				if s, ok := env.Payload.(string); ok && s == "fail" {
					return actor.ModeDone, errors.New("demo: induced failure")
				}
				return actor.ModeContinue, actor.Reply(ctx, as.Self, env, env.Payload)
			}
			return actor.ModeContinue, nil
		}
	}
}

func runDemo(cmd *cobra.Command, args []string) error {
	if demoFailIndex < 0 || demoFailIndex >= demoChildren {
		return fmt.Errorf("--fail must be within [0, %d)", demoChildren)
	}

	strategy, err := parseStrategy(demoStrategy)
	if err != nil {
		return err
	}

	ctx := context.Background()
	sv, err := supervisor.New(ctx, supervisor.Options{
		Strategy:    strategy,
		MaxRestarts: demoMaxRestarts,
		MaxSeconds:  demoMaxSeconds,
		Name:        "demo-root",
	})
	if err != nil {
		return fmt.Errorf("failed to start supervisor: %w", err)
	}

	counts := make([]*atomic.Int64, demoChildren)
	links := make([]actor.Link, demoChildren)
	for i := range counts {
		counts[i] = new(atomic.Int64)
		lk, err := supervisor.StartActor(
			ctx, sv, countingChild(counts[i]), supervisor.Permanent,
			supervisor.StartActorOptions{},
		)
		if err != nil {
			return fmt.Errorf("failed to start child %d: %w", i, err)
		}
		links[i] = lk
	}

	failCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	_, _ = actor.Request(failCtx, actor.Link{}, links[demoFailIndex], "fail")
	cancel()

	time.Sleep(200 * time.Millisecond)

	kids, err := supervisor.WhichChildren(ctx, sv)
	if err != nil {
		return fmt.Errorf("failed to list children: %w", err)
	}
	tally, err := supervisor.CountChildren(ctx, sv)
	if err != nil {
		return fmt.Errorf("failed to count children: %w", err)
	}

	return reportDemo(kids, tally, counts)
}

type demoReport struct {
	Strategy string                 `json:"strategy"`
	Children []demoChildReport      `json:"children"`
	Counts   supervisor.ChildCounts `json:"counts"`
}

type demoChildReport struct {
	Link    string `json:"link"`
	Policy  string `json:"policy"`
	Running bool   `json:"running"`
	Starts  int64  `json:"starts"`
}

func reportDemo(kids []supervisor.ChildInfo, tally supervisor.ChildCounts, counts []*atomic.Int64) error {
	report := demoReport{Strategy: demoStrategy, Counts: tally}
	for i, c := range kids {
		starts := int64(-1)
		if i < len(counts) {
			starts = counts[i].Load()
		}
		report.Children = append(report.Children, demoChildReport{
			Link:    c.Link.ID(),
			Policy:  string(c.Policy),
			Running: c.Running,
			Starts:  starts,
		})
	}

	if outputFormat == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Printf("strategy: %s\n", report.Strategy)
	for i, c := range report.Children {
		fmt.Printf("  child[%d] link=%s policy=%s running=%t starts=%d\n",
			i, c.Link, c.Policy, c.Running, c.Starts)
	}
	fmt.Printf("counts: specs=%d active=%d supervisors=%d workers=%d\n",
		tally.Specs, tally.Active, tally.Supervisors, tally.Workers)
	return nil
}

// parseStrategy maps a flag string to a supervisor.Strategy.
func parseStrategy(s string) (supervisor.Strategy, error) {
	switch s {
	case "one_for_one":
		return supervisor.OneForOne, nil
	case "one_for_all":
		return supervisor.OneForAll, nil
	case "rest_for_one":
		return supervisor.RestForOne, nil
	default:
		return "", fmt.Errorf("unrecognised strategy %q", s)
	}
}
