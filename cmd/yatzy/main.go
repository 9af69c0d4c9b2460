package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"

	"github.com/dustin/go-humanize"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"yatzy-lite/dice"
	"yatzy-lite/yatzy"
	"yatzy-lite/yatzy/bot"
)

func main() {
	var (
		botKind   = flag.String("bot", "", "let a bot play: greedy or rule (empty = interactive)")
		seed      = flag.Int64("seed", 0, "random seed (0 = time based)")
		rounds    = flag.Int("rounds", yatzy.DefaultRounds, "number of rounds")
		rolls     = flag.Int("rolls", yatzy.DefaultRollsPerTurn, "rolls per turn (0 = unlimited)")
		blockZero = flag.Bool("block-zero", false, "refuse zero scores while rolls remain")
		games     = flag.Int("games", 1, "number of bot games to simulate")
	)
	flag.Parse()

	cfg := yatzy.Config{Rounds: *rounds, RollsPerTurn: *rolls, BlockZeroScores: *blockZero, Seed: *seed}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var err error
	if *botKind == "" {
		err = playInteractive(ctx, cfg, os.Stdin, os.Stdout)
	} else {
		err = playBots(ctx, cfg, *botKind, *games, os.Stdout)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("[Yatzy] %v", err)
	}
}

func playBots(ctx context.Context, cfg yatzy.Config, kind string, games int, out io.Writer) error {
	if games < 1 {
		games = 1
	}
	totals := make([]int, games)
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i := 0; i < games; i++ {
		i := i
		g.Go(func() error {
			gameCfg := cfg
			if cfg.Seed != 0 {
				gameCfg.Seed = cfg.Seed + int64(i)
			}
			brain, err := bot.New(kind, gameCfg.Seed)
			if err != nil {
				return err
			}
			game, err := yatzy.NewGame(gameCfg)
			if err != nil {
				return err
			}
			table, err := bot.Play(ctx, game, brain)
			if err != nil {
				return err
			}
			mu.Lock()
			totals[i] = table.Total()
			if games == 1 {
				printTable(out, table)
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	sum, best := 0, 0
	for _, t := range totals {
		sum += t
		if t > best {
			best = t
		}
	}
	fmt.Fprintf(out, "%s bot: %s games, average %.1f, best %d\n",
		kind, humanize.Comma(int64(games)), float64(sum)/float64(games), best)
	return nil
}

func playInteractive(ctx context.Context, cfg yatzy.Config, in io.Reader, out io.Writer) error {
	game, err := yatzy.NewGame(cfg)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "commands: r (roll), h 1 3 (toggle holds), s <category>, p (preview), t (table), q (quit)")

	scanner := bufio.NewScanner(in)
	for {
		snap := game.Snapshot()
		if snap.Ended {
			printTable(out, snap.Table)
			fmt.Fprintf(out, "game over: %d points\n", snap.Total)
			return nil
		}
		fmt.Fprintf(out, "%s round, %s> ", humanize.Ordinal(snap.Round), rollsLabel(snap))
		if !scanner.Scan() {
			return scanner.Err()
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch strings.ToLower(fields[0]) {
		case "r", "roll":
			rolled, err := game.Roll()
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			printDice(out, rolled, game.Snapshot().Held)
		case "h", "hold":
			for _, f := range fields[1:] {
				n, err := strconv.Atoi(f)
				if err != nil {
					fmt.Fprintf(out, "error: bad die %q\n", f)
					continue
				}
				if _, err := game.ToggleHold(n - 1); err != nil {
					fmt.Fprintln(out, "error:", err)
				}
			}
			s := game.Snapshot()
			printDice(out, s.Dice, s.Held)
		case "s", "score":
			c, err := yatzy.ParseCategory(strings.Join(fields[1:], " "))
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			score, err := game.Commit(c)
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			fmt.Fprintf(out, "%s: %d\n", c, score)
		case "p", "preview":
			potentials, err := game.Preview()
			if err != nil {
				fmt.Fprintln(out, "error:", err)
				continue
			}
			for _, p := range potentials {
				fmt.Fprintf(out, "  %-16s %3d\n", p.Category, p.Score)
			}
		case "t", "table":
			printTable(out, snap.Table)
		case "q", "quit":
			return nil
		default:
			fmt.Fprintf(out, "unknown command %q\n", fields[0])
		}
	}
}

func rollsLabel(s yatzy.Snapshot) string {
	if s.RollsLeft == yatzy.UnlimitedRolls {
		return "unlimited rolls"
	}
	return fmt.Sprintf("%d rolls left", s.RollsLeft)
}

func printDice(out io.Writer, r dice.Roll, held [dice.NumDice]bool) {
	var b strings.Builder
	for i, d := range r {
		if held[i] {
			fmt.Fprintf(&b, "[%s] ", d)
		} else {
			fmt.Fprintf(&b, " %s  ", d)
		}
	}
	fmt.Fprintln(out, strings.TrimRight(b.String(), " "))
}

func printTable(out io.Writer, t yatzy.ScoreTable) {
	for _, e := range t.Entries() {
		if e.Scored {
			fmt.Fprintf(out, "  %-16s %3d\n", e.Category, e.Score)
		} else {
			fmt.Fprintf(out, "  %-16s   -\n", e.Category)
		}
	}
	fmt.Fprintf(out, "  %-16s %3d\n", "Upper subtotal", t.UpperSubtotal())
	fmt.Fprintf(out, "  %-16s %3d\n", "Total", t.Total())
}
