// Command statforge is the CLI front end over a kernel.Kernel: a batch
// command runner (eval), an interactive shell (repl), a TCP shell server and
// client (repl-serve, repl-connect), a live debug-graph websocket server
// (serve), and a ZeroMQ remote front-end (remote).
//
// Ported from the teacher's main.go, which dispatches on os.Args[1] to
// per-subcommand argument parsing with the standard library flag package and
// no config file; trimmed from the teacher's interpreter/debugger/notebook/
// playground subcommands down to StatForge's six.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Drox346/statforge/graphview"
	"github.com/Drox346/statforge/kernel"
	"github.com/Drox346/statforge/remotekernel"
	"github.com/Drox346/statforge/replcli"
	"github.com/Drox346/statforge/sferr"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	sub := os.Args[1]
	switch sub {
	case "-h", "--help", "help":
		usage()
	case "eval":
		os.Exit(evalCommand(os.Args[2:]))
	case "repl":
		os.Exit(replCommand(os.Args[2:]))
	case "repl-serve":
		os.Exit(replServeCommand(os.Args[2:]))
	case "repl-connect":
		os.Exit(replConnectCommand(os.Args[2:]))
	case "serve":
		os.Exit(serveCommand(os.Args[2:]))
	case "remote":
		os.Exit(remoteCommand(os.Args[2:]))
	default:
		fmt.Fprintf(os.Stderr, "unknown subcommand: %s\n", sub)
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage:\n")
	fmt.Fprintf(os.Stderr, "  statforge <command> [arguments]\n")
	fmt.Fprintf(os.Stderr, "\nCommands:\n")
	fmt.Fprintf(os.Stderr, "  eval <file>              run a batch of cell commands from a file\n")
	fmt.Fprintf(os.Stderr, "  repl                     start the interactive shell\n")
	fmt.Fprintf(os.Stderr, "  repl-serve [--addr=host:port] start a TCP remote shell server\n")
	fmt.Fprintf(os.Stderr, "  repl-connect <host:port> connect to a remote shell server\n")
	fmt.Fprintf(os.Stderr, "  serve [--addr=host:port] start the graph debug websocket server\n")
	fmt.Fprintf(os.Stderr, "  remote <connection_file> start the ZeroMQ remote kernel front-end\n")
	fmt.Fprintf(os.Stderr, "  help                     show this help message\n")
}

// evalCommand runs a script of one-command-per-line cell definitions and
// prints the value of every "get" command, without any line editing or
// prompt. It accepts a subset of replcli's commands: val, formula, agg, rm,
// eval and get. Here formula and agg only create cells; set and the
// colon-prefixed shell commands are not recognized.
func evalCommand(args []string) int {
	fs := flag.NewFlagSet("eval", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: statforge eval <file>\n")
		return 2
	}

	data, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "read error: %v\n", err)
		return 1
	}

	k := kernel.New()
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	exitCode := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if err := runBatchLine(k, line, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", formatErr(err, line))
			exitCode = 1
		}
	}
	return exitCode
}

func runBatchLine(k *kernel.Kernel, line string, out *os.File) error {
	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	id, arg, _ := strings.Cut(rest, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "val":
		v, perr := strconv.ParseFloat(arg, 64)
		if perr != nil {
			return sferr.New(sferr.InvalidDsl, "invalid numeric literal %q", arg)
		}
		return k.CreateValueCell(id, v)
	case "formula":
		return k.CreateFormulaCell(id, arg)
	case "agg":
		var deps []string
		for _, p := range strings.Split(arg, ",") {
			if p = strings.TrimSpace(p); p != "" {
				deps = append(deps, p)
			}
		}
		return k.CreateAggregatorCell(id, deps)
	case "rm":
		return k.RemoveCell(id)
	case "eval":
		return k.Evaluate()
	case "get":
		v, err := k.GetCellValue(id)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s = %g\n", id, v)
		return nil
	default:
		return sferr.New(sferr.InvalidDsl, "unknown command %q", cmd)
	}
}

func formatErr(err error, source string) string {
	if sfErr, ok := err.(*sferr.Error); ok {
		return sfErr.Format(source, "<eval>")
	}
	return err.Error()
}

func replCommand(args []string) int {
	fs := flag.NewFlagSet("repl", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	replcli.Start(os.Stdin, os.Stdout, kernel.New())
	return 0
}

func replServeCommand(args []string) int {
	fs := flag.NewFlagSet("repl-serve", flag.ContinueOnError)
	addr := fs.String("addr", "localhost:9000", "address to listen on")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if err := replcli.ServeTCP(*addr); err != nil {
		fmt.Fprintf(os.Stderr, "repl server error: %v\n", err)
		return 1
	}
	return 0
}

func replConnectCommand(args []string) int {
	fs := flag.NewFlagSet("repl-connect", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: statforge repl-connect <host:port>\n")
		return 2
	}
	if err := replcli.Connect(fs.Arg(0)); err != nil {
		fmt.Fprintf(os.Stderr, "repl client error: %v\n", err)
		return 1
	}
	return 0
}

func serveCommand(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", ":8090", "address to listen on for the graph debug websocket")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	srv := graphview.NewServer(kernel.New())
	if err := srv.Start(*addr); err != nil {
		fmt.Fprintf(os.Stderr, "graph debug server error: %v\n", err)
		return 1
	}
	return 0
}

func remoteCommand(args []string) int {
	fs := flag.NewFlagSet("remote", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "Usage: statforge remote <connection_file>\n")
		return 2
	}

	rk, err := remotekernel.New(fs.Arg(0), kernel.New())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize remote kernel: %v\n", err)
		return 1
	}
	if err := rk.Start(); err != nil {
		fmt.Fprintf(os.Stderr, "remote kernel error: %v\n", err)
		return 1
	}
	return 0
}
