package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
)

// catLimit is the largest file cat prints.
const catLimit = 1000

var (
	lineRe           = regexp.MustCompile(`^\s*(get|put|delete|ls|exit|cat)(?:\s+(\S+))?\s*$`)
	errCommandFailed = errors.New("command failed")
)

// fileClient is the part of *ftp.Client the REPL drives.
type fileClient interface {
	Get(name string) ([]byte, error)
	Put(name string, data []byte) error
	Delete(name string) error
	List() (string, error)
	Exit() error
}

type repl struct {
	c      fileClient
	in     io.Reader
	out    io.Writer
	errOut io.Writer
	prompt string
	// dir is where get writes and put reads local files.
	dir string
	// failed records whether the last command failed.
	failed bool
}

func newREPL(c fileClient, in io.Reader, out, errOut io.Writer) *repl {
	return &repl{c: c, in: in, out: out, errOut: errOut, prompt: "myftp> ", dir: "."}
}

// run reads commands until exit or end of input.
func (r *repl) run() error {
	sc := bufio.NewScanner(r.in)
	fmt.Fprint(r.out, r.prompt)
	for sc.Scan() {
		if line := sc.Text(); line != "" {
			if r.handleLine(line) {
				return nil
			}
		}
		fmt.Fprint(r.out, r.prompt)
	}
	return sc.Err()
}

// handleLine runs one command and reports whether the session is over.
func (r *repl) handleLine(line string) bool {
	r.failed = false
	m := lineRe.FindStringSubmatch(line)
	if m == nil {
		fmt.Fprintln(r.out, "Command not found")
		return false
	}
	cmd, arg := m[1], m[2]
	switch cmd {
	case "ls", "exit":
		if arg != "" {
			fmt.Fprintf(r.out, "Usage: %s\n", cmd)
			return false
		}
	default:
		if arg == "" {
			fmt.Fprintf(r.out, "Usage: %s <filename>\n", cmd)
			return false
		}
	}

	switch cmd {
	case "get":
		r.get(arg)
	case "put":
		r.put(arg)
	case "delete":
		if err := r.c.Delete(arg); r.report("DELETE", err) {
			fmt.Fprintf(r.out, "deleted file: %s\n", arg)
		}
	case "ls":
		files, err := r.c.List()
		if r.report("LS", err) {
			fmt.Fprint(r.out, files)
		}
	case "cat":
		r.cat(arg)
	case "exit":
		r.report("EXIT", r.c.Exit())
		return true
	}
	return false
}

// report prints err if set and returns whether the command succeeded.
func (r *repl) report(op string, err error) bool {
	if err != nil {
		r.failed = true
		fmt.Fprintf(r.errOut, "%s: %v\n", op, err)
		return false
	}
	return true
}

func (r *repl) local(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(r.dir, name)
}

func (r *repl) get(name string) {
	data, err := r.c.Get(name)
	if !r.report("GET", err) {
		return
	}
	if err := os.WriteFile(r.local(filepath.Base(name)), data, 0644); !r.report("GET", err) {
		return
	}
	fmt.Fprintf(r.out, "wrote local file: %q\n", name)
}

func (r *repl) put(name string) {
	data, err := os.ReadFile(r.local(name))
	if !r.report("PUT", err) {
		return
	}
	fmt.Fprintf(r.out, "PUT: sending file (%d): %q\n", len(data), name)
	if r.report("PUT", r.c.Put(filepath.Base(name), data)) {
		fmt.Fprintf(r.out, "put file: %s\n", name)
	}
}

func (r *repl) cat(name string) {
	data, err := r.c.Get(name)
	if !r.report("GET", err) {
		return
	}
	if len(data) >= catLimit {
		fmt.Fprintln(r.out, "file too large to print")
		return
	}
	fmt.Fprintf(r.out, "%s\n", data)
}
