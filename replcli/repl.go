package replcli

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Drox346/statforge/kernel"
	"github.com/Drox346/statforge/sferr"
)

const (
	prompt = "statforge> "
)

type scannerResult struct {
	line string
	ok   bool
}

// Start begins an interactive session against k, reading commands from in
// and writing prompts/results/errors to out. It returns once the session
// ends (quit command, Ctrl+D, or an unrecoverable input error).
func Start(in io.Reader, out io.Writer, k *kernel.Kernel) {
	var (
		scanCh chan scannerResult
		tty    *ttyInput
	)
	if ti, ok := newTTYInput(in, out); ok {
		tty = ti
		defer tty.Close()
	} else {
		scanner := bufio.NewScanner(in)
		scanCh = make(chan scannerResult)
		go scanInput(scanner, scanCh)
	}

	sessionOut := out
	if tty != nil {
		sessionOut = newTTYLineWriter(out)
	}

	fmt.Fprintf(sessionOut, "StatForge interactive shell\n")
	fmt.Fprintf(sessionOut, "Commands: val <id> <n>, formula <id> <expr>, agg <id> <dep,dep,...>,\n")
	fmt.Fprintf(sessionOut, "          set <id> <n>, rm <id>, get <id>, eval, :dump, :help, :quit\n\n")

	for {
		var (
			line string
			ok   bool
		)
		if tty != nil {
			line, ok = tty.readLine(prompt)
		} else {
			fmt.Fprint(out, prompt)
			line, ok = waitForInput(scanCh)
		}
		if !ok {
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == ":quit" || line == ":q" {
			fmt.Fprintln(sessionOut, "bye")
			return
		}
		if dispatch(sessionOut, k, line) {
			return
		}
	}
}

// dispatch executes one command line, returning true if the session should
// end.
func dispatch(out io.Writer, k *kernel.Kernel, line string) bool {
	switch {
	case line == ":help":
		fmt.Fprintln(out, "val <id> <n>            create a value cell")
		fmt.Fprintln(out, "set <id> <n>            overwrite a value cell")
		fmt.Fprintln(out, "formula <id> <expr>     create/update a formula cell")
		fmt.Fprintln(out, "agg <id> <d1,d2,...>    create/update an aggregator cell")
		fmt.Fprintln(out, "rm <id>                 remove a cell")
		fmt.Fprintln(out, "get <id>                print a cell's current value")
		fmt.Fprintln(out, "eval                    evaluate every dirty cell")
		fmt.Fprintln(out, ":dump                   print a PlantUML dump of the graph")
		fmt.Fprintln(out, ":quit                   end the session")
		return false
	case line == ":clear":
		clearScreen(out)
		return false
	case line == ":dump":
		fmt.Fprintln(out, k.Graph().DumpPlantUML())
		return false
	case line == "eval":
		if err := k.Evaluate(); err != nil {
			printErr(out, err, line)
		}
		return false
	}

	cmd, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	id, arg, _ := strings.Cut(rest, " ")
	arg = strings.TrimSpace(arg)

	var err error
	switch cmd {
	case "val":
		v, perr := strconv.ParseFloat(arg, 64)
		if perr != nil {
			err = sferr.New(sferr.InvalidDsl, "invalid numeric literal %q", arg)
			break
		}
		err = k.CreateValueCell(id, v)
	case "set":
		v, perr := strconv.ParseFloat(arg, 64)
		if perr != nil {
			err = sferr.New(sferr.InvalidDsl, "invalid numeric literal %q", arg)
			break
		}
		err = k.SetCellValue(id, v)
	case "formula":
		if _, ferr := k.GetCellValue(id); ferr != nil {
			err = k.CreateFormulaCell(id, arg)
		} else {
			err = k.SetCellFormula(id, arg)
		}
	case "agg":
		deps := splitDeps(arg)
		if _, ferr := k.GetCellValue(id); ferr != nil {
			err = k.CreateAggregatorCell(id, deps)
		} else {
			err = k.SetCellDependencies(id, deps)
		}
	case "rm":
		err = k.RemoveCell(id)
	case "get":
		v, gerr := k.GetCellValue(id)
		if gerr != nil {
			err = gerr
			break
		}
		fmt.Fprintf(out, "%s = %g\n", id, v)
	default:
		fmt.Fprintf(out, "unknown command %q (try :help)\n", cmd)
		return false
	}

	if err != nil {
		printErr(out, err, line)
	}
	return false
}

func splitDeps(arg string) []string {
	if arg == "" {
		return nil
	}
	parts := strings.Split(arg, ",")
	deps := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			deps = append(deps, p)
		}
	}
	return deps
}

func printErr(out io.Writer, err error, source string) {
	if sfErr, ok := err.(*sferr.Error); ok {
		fmt.Fprintln(out, sfErr.Format(source, "<repl>"))
		return
	}
	fmt.Fprintf(out, "error: %s\n", err)
}

func scanInput(scanner *bufio.Scanner, out chan<- scannerResult) {
	defer close(out)
	for scanner.Scan() {
		out <- scannerResult{line: scanner.Text(), ok: true}
	}
}

func waitForInput(scanCh <-chan scannerResult) (string, bool) {
	res, ok := <-scanCh
	if !ok {
		return "", false
	}
	return res.line, res.ok
}
