package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"

	"moonbag/internal/ai"
	"moonbag/internal/game"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:          "mbg",
		Short:        "Moonbag offline simulation runner",
		SilenceUsage: true,
	}

	root.AddCommand(
		newRunCmd(),
		newReplayCmd(),
		newClassifyCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var (
		seed    string
		days    int
		devMode bool
		catalog string
		outFile string
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a fresh simulation for N days and print a summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			if seed == "" {
				return fmt.Errorf("--seed is required")
			}
			entries := game.DefaultCatalog()
			if catalog != "" {
				var err error
				entries, err = game.LoadCatalogFile(catalog)
				if err != nil {
					return err
				}
			}

			engine := game.NewEngine(game.Config{DevMode: devMode}, quietLogger(), nil)
			if err := engine.NewGame(cmd.Context(), "mbg", seed, entries); err != nil {
				return err
			}
			if err := engine.RunDays(cmd.Context(), days); err != nil {
				return err
			}

			printSummary(engine)
			if outFile != "" {
				raw, err := engine.Snapshot()
				if err != nil {
					return err
				}
				if err := os.WriteFile(outFile, raw, 0o644); err != nil {
					return err
				}
				printSuccess(fmt.Sprintf("state written to %s", outFile))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&seed, "seed", "", "deterministic seed")
	cmd.Flags().IntVar(&days, "days", 30, "days to simulate")
	cmd.Flags().BoolVar(&devMode, "dev", false, "multiply event rates")
	cmd.Flags().StringVar(&catalog, "catalog", "", "YAML asset catalog file")
	cmd.Flags().StringVar(&outFile, "out", "", "write final state JSON to file")
	return cmd
}

func newReplayCmd() *cobra.Command {
	var (
		inFile string
		days   int
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Resume a saved state file and run N more days",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(inFile)
			if err != nil {
				return err
			}
			var st game.GameState
			if err := json.Unmarshal(raw, &st); err != nil {
				return err
			}
			engine := game.NewEngine(game.Config{}, quietLogger(), nil)
			if err := engine.Load(&st); err != nil {
				return err
			}
			if err := engine.RunDays(cmd.Context(), days); err != nil {
				return err
			}
			printSummary(engine)
			return nil
		},
	}
	cmd.Flags().StringVar(&inFile, "in", "", "state JSON file")
	cmd.Flags().IntVar(&days, "days", 1, "days to simulate")
	_ = cmd.MarkFlagRequired("in")
	return cmd
}

func newClassifyCmd() *cobra.Command {
	var seed string
	cmd := &cobra.Command{
		Use:   "classify [text]",
		Short: "Classify a social post with the offline template generator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			analysis := ai.FallbackClassify(args[0], nil, seed)
			out, err := json.MarshalIndent(analysis, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
	cmd.Flags().StringVar(&seed, "seed", "mbg", "generator seed")
	return cmd
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func printSummary(engine *game.Engine) {
	k := engine.GetKPIs()
	printHeader(fmt.Sprintf("day %d  vibe %s", k.Day, k.Vibe))
	printKV("cash", fmt.Sprintf("$%.2f", k.Cash))
	printKV("net worth", fmt.Sprintf("$%.2f", k.NetWorth))
	printKV("realized pnl", fmt.Sprintf("$%.2f", k.RealizedPnL))
	printKV("scrutiny", fmt.Sprintf("%.2f", k.Scrutiny))
	printKV("open offers", fmt.Sprintf("%d", k.OpenOffers))

	views := engine.GetFilteredAssets("", "")
	sort.Slice(views, func(i, j int) bool { return views[i].Change24h > views[j].Change24h })
	printHeader("assets by 24h change")
	for _, v := range views {
		line := fmt.Sprintf("%-6s %-14s %12.6f  %+6.2f%%  %s", v.Symbol, v.Name, v.Price, v.Change24h*100, v.Tier)
		switch {
		case v.Rugged:
			printDanger(line + "  RUGGED")
		case v.Change24h >= 0:
			printGain(line)
		default:
			printLoss(line)
		}
	}
}
