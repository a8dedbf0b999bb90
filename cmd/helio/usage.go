package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"
	"time"

	"github.com/heliohq/helio/internal/usage"
)

// runUsage prints token totals for the last -days days (default 30).
func runUsage(ctx context.Context, stdout io.Writer, configPath, outputFmt string, args []string) error {
	days := 30
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-days" && i+1 < len(args):
			n, err := strconv.Atoi(args[i+1])
			if err != nil || n < 1 {
				return fmt.Errorf("-days: expected a positive number, got %q", args[i+1])
			}
			days = n
			i++
		default:
			return fmt.Errorf("unknown usage argument: %s", args[i])
		}
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	store, err := openUsage(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	end := time.Now()
	start := end.AddDate(0, 0, -days)
	total, err := store.Summary(ctx, start, end)
	if err != nil {
		return err
	}
	byModel, err := store.SummaryByModel(ctx, start, end)
	if err != nil {
		return err
	}
	byPurpose, err := store.SummaryByPurpose(ctx, start, end)
	if err != nil {
		return err
	}

	if outputFmt == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{
			"days":       days,
			"total":      total,
			"by_model":   byModel,
			"by_purpose": byPurpose,
		})
	}

	fmt.Fprintf(stdout, "Token usage, last %d days: %d calls, %d in, %d out\n",
		days, total.Calls, total.TotalInputTokens, total.TotalOutputTokens)
	printGroup(stdout, "By model", byModel)
	printGroup(stdout, "By purpose", byPurpose)
	return nil
}

func printGroup(w io.Writer, title string, group map[string]*usage.Summary) {
	if len(group) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, k := range slices.Sorted(maps.Keys(group)) {
		s := group[k]
		fmt.Fprintf(w, "  %-28s %6d calls %10d in %10d out\n", k, s.Calls, s.TotalInputTokens, s.TotalOutputTokens)
	}
}
