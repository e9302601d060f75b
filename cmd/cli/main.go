// Command cli answers "what would happen at this price?" against the
// configured targets and the current persisted state. Nothing is written.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"github.com/hamed0406/pricealert/internal/config"
	"github.com/hamed0406/pricealert/internal/domain"
	"github.com/hamed0406/pricealert/internal/notify"
	"github.com/hamed0406/pricealert/internal/repo/stores"
	"github.com/hamed0406/pricealert/internal/scheduler"
	"github.com/hamed0406/pricealert/internal/source"
)

func main() {
	cfg := config.FromEnv()

	raw := ""
	if len(os.Args) > 1 {
		raw = os.Args[1]
	} else {
		fmt.Print("Enter a price to evaluate (e.g., 59000.5): ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		raw = line
	}
	price, err := parsePrice(raw)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Invalid price:", err)
		os.Exit(2)
	}

	if err := whatIf(context.Background(), cfg, price, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func parsePrice(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", domain.ErrConfig, strings.TrimSpace(raw))
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q is not finite", domain.ErrConfig, strings.TrimSpace(raw))
	}
	return v, nil
}

func whatIf(ctx context.Context, cfg config.Config, price float64, w io.Writer) error {
	targets, err := config.LoadTargets(cfg.TargetsFile)
	if err != nil {
		return err
	}
	store, closeStore, err := stores.Open(ctx, cfg, zap.NewNop())
	if err != nil {
		return err
	}
	defer closeStore()

	runner := scheduler.NewRunner(zap.NewNop(), targets, source.Static(price), store, nil,
		scheduler.RunnerConfig{DryRun: true, Link: cfg.AlertLink})
	out, err := runner.RunOnce(ctx)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TARGET\tTHRESHOLD\tRE-ARM\tARMED\tNEXT\tALERT")
	for _, r := range out.Results {
		fmt.Fprintf(tw, "%s\t%g\t%g\t%t\t%t\t%t\n",
			r.Target.ID, r.Target.Threshold, r.Target.RearmLevel(), r.Prev.Armed, r.Next.Armed, r.Alert)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return notify.Writer{W: w}.Emit(ctx, out.Decision)
}
