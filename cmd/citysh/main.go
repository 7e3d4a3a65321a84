// Command citysh plays a citysim session from the terminal.
//
//	tool <kind|none>   arm or disarm a building tool
//	place <x> <z>      place the armed building
//	preview <x> <z>    report whether a placement would succeed
//	reset              start the city over
//	show               draw the map and stats
//	catalog            list building kinds and prices
//	ledger [n]         list the last n ledger entries
//	quit               leave
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/talgya/citybuilder/internal/client"
	"github.com/talgya/citybuilder/internal/textview"
)

var errQuit = errors.New("quit")

// kindOrder is the toolbar order used for per-kind listings.
var kindOrder = []string{"residential", "commercial", "industrial", "road"}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	apiURL := envOrDefault("CITYSIM_API_URL", "http://localhost:8080")
	c := client.New(apiURL)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.WaitForAPI(ctx); err != nil {
		slog.Error("citysim API unavailable", "url", apiURL, "error", err)
		os.Exit(1)
	}

	interactive := isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())
	if err := run(os.Stdin, os.Stdout, c, interactive); err != nil {
		slog.Error("session ended", "error", err)
		os.Exit(1)
	}
}

// run reads commands from in until EOF or quit. The prompt is written only
// when interactive.
func run(in io.Reader, out io.Writer, c *client.Client, interactive bool) error {
	sc := bufio.NewScanner(in)
	if interactive {
		fmt.Fprintln(out, "citysh: type 'help' for commands")
		fmt.Fprint(out, "> ")
	}
	for sc.Scan() {
		err := execute(out, c, strings.Fields(sc.Text()))
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		if interactive {
			fmt.Fprint(out, "> ")
		}
	}
	return sc.Err()
}

func execute(out io.Writer, c *client.Client, args []string) error {
	if len(args) == 0 {
		return nil
	}
	switch args[0] {
	case "quit", "exit":
		return errQuit

	case "help":
		fmt.Fprintln(out, "commands: tool <kind|none>, place <x> <z>, preview <x> <z>, reset, show, catalog, ledger [n], quit")
		return nil

	case "tool":
		if len(args) != 2 {
			return errors.New("usage: tool <kind|none>")
		}
		res, err := c.SelectTool(args[1])
		if err != nil {
			return err
		}
		sel := res.State.Selected()
		if sel == "" {
			sel = "none"
		}
		fmt.Fprintf(out, "tool: %s\n", sel)
		return nil

	case "place", "preview":
		if len(args) != 3 {
			return fmt.Errorf("usage: %s <x> <z>", args[0])
		}
		x, errX := strconv.Atoi(args[1])
		z, errZ := strconv.Atoi(args[2])
		if errX != nil || errZ != nil {
			return errors.New("x and z must be integers")
		}
		if args[0] == "preview" {
			p, err := c.Preview(x, z)
			if err != nil {
				return err
			}
			if p.OK {
				fmt.Fprintf(out, "(%d,%d) is free\n", x, z)
			} else {
				fmt.Fprintf(out, "(%d,%d) blocked: %s\n", x, z, p.Reason)
			}
			return nil
		}
		res, err := c.Place(x, z)
		if err != nil {
			return err
		}
		if !res.OK {
			fmt.Fprintf(out, "rejected: %s\n", res.Reason)
			return nil
		}
		fmt.Fprintf(out, "placed %s at (%d,%d) for %s, treasury %s\n",
			res.Building.ID, x, z, textview.Money(res.Building.CostPaid), textview.Money(res.State.Treasury))
		if res.State.Stats.LowFunds {
			fmt.Fprintln(out, "warning: low funds!")
		}
		return nil

	case "reset":
		res, err := c.Reset()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "city reset, treasury %s\n", textview.Money(res.State.Treasury))
		return nil

	case "show":
		v, err := c.State()
		if err != nil {
			return err
		}
		fmt.Fprint(out, textview.Grid(v))
		fmt.Fprintln(out)
		fmt.Fprint(out, textview.Stats(v))
		return nil

	case "catalog":
		entries, err := c.Catalog()
		if err != nil {
			return err
		}
		fmt.Fprint(out, textview.Catalog(entries))
		return nil

	case "ledger":
		n := 10
		if len(args) == 2 {
			v, err := strconv.Atoi(args[1])
			if err != nil || v <= 0 {
				return errors.New("usage: ledger [n]")
			}
			n = v
		}
		l, err := c.Ledger(n)
		if err != nil {
			return err
		}
		for _, e := range l.Entries {
			fmt.Fprintf(out, "%4d %-18s %-11s %s\n", e.Seq, e.Type, e.Kind, ledgerDetail(e))
		}
		for _, kind := range kindOrder {
			if total, ok := l.SpendByKind[kind]; ok {
				fmt.Fprintf(out, "spent on %s: %s\n", kind, textview.Money(total))
			}
		}
		return nil
	}
	return fmt.Errorf("unknown command %q (try 'help')", args[0])
}

func ledgerDetail(e client.LedgerEntry) string {
	var parts []string
	if e.X != nil && e.Z != nil {
		parts = append(parts, fmt.Sprintf("(%d,%d)", *e.X, *e.Z))
	}
	if e.BuildingID != "" {
		parts = append(parts, e.BuildingID, textview.Money(e.CostPaid))
	}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	parts = append(parts, "treasury "+textview.Money(e.Treasury))
	return strings.Join(parts, " ")
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
