package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/xyproto/env/v2"

	"github.com/vexlang/vex"
)

func openSession() (*vex.Session, error) {
	if path := env.Str("VEX_DB"); path != "" {
		return vex.OpenSession(path)
	}
	return vex.NewSession(), nil
}

func main() {
	args := os.Args[1:]

	// -t: type-check only, no evaluation.
	typeOnly := false
	var files []string
	for _, arg := range args {
		switch arg {
		case "-t", "--types":
			typeOnly = true
		case "-h", "--help":
			usage()
			return
		default:
			files = append(files, arg)
		}
	}

	session, err := openSession()
	if err != nil {
		fmt.Fprintf(os.Stderr, "vex: %s\n", err)
		os.Exit(1)
	}
	defer session.Close()

	if len(files) > 0 {
		for _, path := range files {
			src, err := os.ReadFile(path)
			if err != nil {
				fmt.Fprintf(os.Stderr, "vex: %s\n", err)
				os.Exit(1)
			}
			if !run(session, string(src), typeOnly) {
				os.Exit(1)
			}
		}
		return
	}

	if !isatty.IsTerminal(os.Stdin.Fd()) {
		src, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "vex: %s\n", err)
			os.Exit(1)
		}
		if !run(session, string(src), typeOnly) {
			os.Exit(1)
		}
		return
	}

	repl(session, typeOnly)
}

func usage() {
	fmt.Println(`Usage: vex [-t] [file...]

With no file and a terminal on stdin, vex reads formulas interactively.
With -t, input is type-checked but not evaluated.

Environment:
  VEX_DB      SQLite file for persisted definitions (default: in-memory)
  VEX_PROMPT  interactive prompt (default "vex> ")

REPL commands:
  :names        list session bindings
  :del <name>   remove a binding
  :quit         exit`)
}

func run(session *vex.Session, source string, typeOnly bool) bool {
	if typeOnly {
		kinds, err := session.CheckTypes(source)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
			return false
		}
		for _, k := range kinds {
			fmt.Println(k)
		}
		return true
	}
	results, err := session.Exec(source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		return false
	}
	for _, r := range results {
		printResult(r)
	}
	return true
}

func printResult(r vex.Result) {
	switch {
	case r.Value != nil && r.Name != "":
		fmt.Printf("%s = %s\n", r.Name, r.Value)
	case r.Value != nil:
		fmt.Println(r.Value)
	case r.Name != "":
		fmt.Printf("%s : function\n", r.Name)
	}
}

func repl(session *vex.Session, typeOnly bool) {
	prompt := env.Str("VEX_PROMPT", "vex> ")
	in := bufio.NewScanner(os.Stdin)
	in.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print(prompt)
		if !in.Scan() {
			fmt.Println()
			return
		}
		line := strings.TrimSpace(in.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, ":") {
			if command(session, line) {
				return
			}
			continue
		}
		run(session, line, typeOnly)
	}
}

// command handles a :-prefixed REPL command; true means quit.
func command(session *vex.Session, line string) bool {
	fields := strings.Fields(line)
	switch fields[0] {
	case ":quit", ":q":
		return true
	case ":names":
		for _, name := range session.Names() {
			fmt.Println(name)
		}
	case ":del":
		if len(fields) != 2 {
			fmt.Fprintln(os.Stderr, "usage: :del <name>")
			break
		}
		if err := session.Remove(fields[1]); err != nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
		}
	case ":help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %s\n", fields[0])
	}
	return false
}
