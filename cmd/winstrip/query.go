package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"golang.org/x/term"

	"github.com/1broseidon/winstrip/internal/desktop"
	"github.com/1broseidon/winstrip/internal/ipc"
)

// newCommandFlags builds a flag set with a usage line and a --json switch.
func newCommandFlags(name, usage, help string) (*flag.FlagSet, *bool) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	jsonOut := fs.Bool("json", false, "Print JSON")
	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: winstrip "+usage)
		fmt.Fprintln(os.Stderr, "")
		fmt.Fprintln(os.Stderr, help)
	}
	return fs, jsonOut
}

func parseArgs(fs *flag.FlagSet, args []string, nargs int) (int, bool) {
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0, false
		}
		return 2, false
	}
	if fs.NArg() != nargs {
		if nargs == 0 {
			fmt.Fprintf(os.Stderr, "%s takes no arguments\n", fs.Name())
		} else {
			fmt.Fprintf(os.Stderr, "%s requires %d argument(s)\n", fs.Name(), nargs)
		}
		fs.Usage()
		return 2, false
	}
	return 0, true
}

func parseHandle(s string) (desktop.Handle, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid window handle %q", s)
	}
	return desktop.Handle(v), nil
}

func printJSON(v any) int {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func fail(err error) int {
	fmt.Fprintln(os.Stderr, err)
	return 1
}

func runStatus(args []string) int {
	fs, jsonOut := newCommandFlags("status", "status [--json]", "Show daemon status via IPC.")
	if code, ok := parseArgs(fs, args, 0); !ok {
		return code
	}

	status, err := ipc.NewClient().GetStatus()
	if err != nil {
		return fail(err)
	}
	if *jsonOut {
		return printJSON(status)
	}
	fmt.Printf("uptime_seconds: %d\n", status.UptimeSeconds)
	fmt.Printf("poll_interval:  %s\n", status.PollInterval)
	fmt.Printf("ticks:          %d (skipped %d)\n", status.Ticks, status.SkippedTicks)
	if status.LastTick != "" {
		fmt.Printf("last_tick:      %s\n", status.LastTick)
	}
	fmt.Printf("windows:        %d (%d manageable)\n", status.Windows, status.Managed)
	fmt.Printf("regions:        %d\n", status.Regions)
	if status.Foreground != 0 {
		fmt.Printf("foreground:     %s\n", desktop.Handle(status.Foreground))
	}
	fmt.Printf("icons_pending:  %d\n", status.IconsPending)
	return 0
}

func runWindows(args []string) int {
	fs, jsonOut := newCommandFlags("windows", "windows [--json] [--all]", "List windows tracked by the daemon. Unmanageable windows are hidden unless --all is given.")
	all := fs.Bool("all", false, "Include unmanageable windows")
	if code, ok := parseArgs(fs, args, 0); !ok {
		return code
	}

	windows, err := ipc.NewClient().ListWindows()
	if err != nil {
		return fail(err)
	}
	if !*all {
		kept := windows[:0]
		for _, w := range windows {
			if w.Manageable {
				kept = append(kept, w)
			}
		}
		windows = kept
	}
	if *jsonOut {
		return printJSON(windows)
	}

	titleWidth := titleColumnWidth(60)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "HANDLE\tREGION\tRECT\tFLAGS\tTITLE")
	for _, w := range windows {
		region := "-"
		if w.Region >= 0 {
			region = strconv.Itoa(w.Region)
		}
		marker := ""
		if w.Foreground {
			marker = "*"
		}
		fmt.Fprintf(tw, "%s%s\t%s\t%s\t%s\t%s\n", w.Handle, marker, region, w.Rect, flagString(w), truncate(w.Title, titleWidth))
	}
	tw.Flush()
	return 0
}

func runRegions(args []string) int {
	fs, jsonOut := newCommandFlags("regions", "regions [--json]", "List regions left to right with their members, oldest first. The frontmost member is marked with '*'.")
	if code, ok := parseArgs(fs, args, 0); !ok {
		return code
	}

	regions, err := ipc.NewClient().ListRegions()
	if err != nil {
		return fail(err)
	}
	if *jsonOut {
		return printJSON(regions)
	}

	titleWidth := titleColumnWidth(40)
	for _, r := range regions {
		fmt.Printf("region %d  %s  (%d windows)\n", r.Index, r.Bounds, len(r.Members))
		for _, m := range r.Members {
			marker := " "
			if m.Handle == r.Frontmost {
				marker = "*"
			}
			fmt.Printf("  %s %-12s %s\n", marker, desktop.Handle(m.Handle), truncate(m.Title, titleWidth))
		}
	}
	return 0
}

func runReenumerate(args []string) int {
	fs, _ := newCommandFlags("reenumerate", "reenumerate", "Forget every tracked window; the next tick rediscovers them.")
	if code, ok := parseArgs(fs, args, 0); !ok {
		return code
	}
	if err := ipc.NewClient().Reenumerate(); err != nil {
		return fail(err)
	}
	return 0
}

func runActivate(args []string) int {
	fs, _ := newCommandFlags("activate", "activate <handle>", "Bring a manageable window to the foreground.")
	if code, ok := parseArgs(fs, args, 1); !ok {
		return code
	}
	h, err := parseHandle(fs.Arg(0))
	if err != nil {
		return fail(err)
	}
	if err := ipc.NewClient().Activate(h); err != nil {
		return fail(err)
	}
	return 0
}

func runCompact(args []string) int {
	fs, _ := newCommandFlags("compact", "compact <handle>", "Toggle the compact flag of a window.")
	if code, ok := parseArgs(fs, args, 1); !ok {
		return code
	}
	h, err := parseHandle(fs.Arg(0))
	if err != nil {
		return fail(err)
	}
	compact, err := ipc.NewClient().ToggleCompact(h)
	if err != nil {
		return fail(err)
	}
	fmt.Printf("%s compact: %v\n", h, compact)
	return 0
}

func runFit(args []string) int {
	fs, jsonOut := newCommandFlags("fit", "fit [--json] <handle>", "Maximise a window inside its region, below the bar.")
	if code, ok := parseArgs(fs, args, 1); !ok {
		return code
	}
	h, err := parseHandle(fs.Arg(0))
	if err != nil {
		return fail(err)
	}
	data, err := ipc.NewClient().FitWindow(h)
	if err != nil {
		return fail(err)
	}
	if *jsonOut {
		return printJSON(data)
	}
	fmt.Printf("%s moved to %s\n", h, data.Rect)
	return 0
}

func runGroup(args []string) int {
	fs, jsonOut := newCommandFlags("group", "group [--json] <region>", "Move every member of a region into the region's bounds.")
	if code, ok := parseArgs(fs, args, 1); !ok {
		return code
	}
	region, err := strconv.Atoi(fs.Arg(0))
	if err != nil || region < 0 {
		return fail(fmt.Errorf("invalid region %q", fs.Arg(0)))
	}
	data, err := ipc.NewClient().GroupRegion(region)
	if err != nil {
		return fail(err)
	}
	if *jsonOut {
		return printJSON(data)
	}
	fmt.Printf("region %d: moved %d\n", data.Region, data.Moved)
	for _, h := range data.Failed {
		fmt.Printf("  failed: %s\n", desktop.Handle(h))
	}
	if len(data.Failed) > 0 {
		return 1
	}
	return 0
}

func runReload(args []string) int {
	fs, _ := newCommandFlags("reload", "reload", "Ask the daemon to reload its configuration file.")
	if code, ok := parseArgs(fs, args, 0); !ok {
		return code
	}
	if err := ipc.NewClient().Reload(); err != nil {
		return fail(err)
	}
	fmt.Println("config reloaded")
	return 0
}

func flagString(w ipc.WindowInfo) string {
	var parts []string
	if w.Flags.Compact {
		parts = append(parts, "compact")
	}
	if w.Flags.BorderAdjust {
		parts = append(parts, "border")
	}
	if w.State.Minimized {
		parts = append(parts, "min")
	}
	if !w.Manageable {
		parts = append(parts, "excluded")
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ",")
}

// titleColumnWidth returns how many columns are left for titles when stdout
// is a terminal, or 0 for no truncation.
func titleColumnWidth(reserved int) int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return 0
	}
	width, _, err := term.GetSize(fd)
	if err != nil || width-reserved < 10 {
		return 0
	}
	return width - reserved
}

func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + "…"
}
