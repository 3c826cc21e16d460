// Command medwatch is the medical news watch: a terminal UI over the
// aggregated feeds, plus maintenance subcommands.
//
// Usage:
//
//	medwatch                 Terminal UI (refreshes every 12h by default)
//	medwatch once [-json]    Single aggregation run, printed to stdout
//	medwatch stats           Run history and per-source health
//	medwatch events          JSONL event log viewer
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

const usage = `medwatch - veille médicale

Usage:
  medwatch [command] [flags]

Commands:
  tui         Terminal UI (default)
  once        Run one aggregation and print the result
  stats       Run history and source health
  events      JSONL event log viewer

Environment:
  MEDWATCH_PROXIES     Proxy chain, comma separated (corsproxy,allorigins,direct)
  MEDWATCH_REFRESH     Refresh schedule (default "@every 12h", "off" disables)
  MEDWATCH_TIMEOUT     Per-attempt HTTP timeout (e.g. 30s)
  MEDWATCH_PUBMED_URL  E-utilities base URL ("off" disables the PubMed fallback)

A .env file in the working directory is loaded first.
Run 'medwatch <command> -h' for command-specific help.
`

func main() {
	// .env is optional
	_ = godotenv.Load()

	cmd := "tui"
	if len(os.Args) >= 2 {
		cmd = os.Args[1]
		// Strip the program name + subcommand so flag sets see only their flags
		os.Args = os.Args[1:]
	}

	switch cmd {
	case "tui":
		runTUI()
	case "once":
		runOnce()
	case "stats":
		runStats()
	case "events":
		runEvents()
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "medwatch: unknown command %q\n\n", cmd)
		fmt.Print(usage)
		os.Exit(1)
	}
}
