package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	preprocessor "github.com/romanpunia/vitex-sub022"
)

type defines []string

func (d *defines) String() string     { return strings.Join(*d, ",") }
func (d *defines) Set(s string) error { *d = append(*d, s); return nil }

type stdLogger struct {
	*log.Logger
}

func (l stdLogger) Logf(format string, args ...any) {
	l.Printf(format, args...)
}

var client = &http.Client{Timeout: 30 * time.Second}

// decode reads r as UTF-8, or as UTF-16 when it starts with a byte order
// mark. A UTF-8 byte order mark is dropped.
func decode(r io.Reader) (string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	b, err := io.ReadAll(transform.NewReader(r, dec))
	return string(b), err
}

func readFile(name string) (string, error) {
	f, err := os.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return decode(f)
}

func fetch(url string) (string, error) {
	resp, err := client.Get(url)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetching %s: %s", url, resp.Status)
	}
	return decode(resp.Body)
}

func include(_ *preprocessor.Engine, res preprocessor.IncludeResolution) (string, preprocessor.Disposition, error) {
	switch {
	case res.IsRemote:
		text, err := fetch(res.Target)
		return text, preprocessor.IncludePreprocess, err
	case res.IsFile:
		text, err := readFile(res.Target)
		return text, preprocessor.IncludePreprocess, err
	}
	return "", preprocessor.IncludeFailed, nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("vipp", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var defs defines
	fs.Var(&defs, "D", "define `NAME[=VALUE]` (repeatable)")
	root := fs.String("I", "", "search `dir` for library includes")
	exts := fs.String("ext", "", "comma separated `extensions` tried for includes")
	out := fs.String("o", "", "write output to `file` instead of stdout")
	verbose := fs.Bool("v", false, "log includes and pragmas to stderr")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: vipp [flags] [file]")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return fmt.Errorf("too many arguments")
	}

	opts := preprocessor.Options{
		Include:   preprocessor.IncludeDesc{Root: *root},
		OnInclude: include,
	}
	if *exts != "" {
		opts.Include.Exts = strings.Split(*exts, ",")
	}
	if *verbose {
		logger := stdLogger{log.New(stderr, "vipp: ", 0)}
		opts.Logger = logger
		opts.OnPragma = func(e *preprocessor.Engine, name string, args []string) error {
			logger.Logf("%s:%d: pragma %s %s", e.CurrentFile(), e.CurrentLine(), name, strings.Join(args, " "))
			return nil
		}
	}
	e, err := preprocessor.New(opts)
	if err != nil {
		return err
	}
	for _, d := range defs {
		if err := e.Define(preprocessor.ParseDefine(d)); err != nil {
			return fmt.Errorf("-D %s: %w", d, err)
		}
	}

	var name, text string
	if fs.NArg() == 1 {
		name = fs.Arg(0)
		text, err = readFile(name)
	} else {
		text, err = decode(stdin)
	}
	if err != nil {
		return err
	}

	processed, err := e.Process(name, text)
	if err != nil {
		return err
	}
	if *out != "" {
		return os.WriteFile(*out, []byte(processed), 0644)
	}
	_, err = io.WriteString(stdout, processed)
	return err
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if err != flag.ErrHelp {
			fmt.Fprintln(os.Stderr, "vipp:", err)
		}
		os.Exit(1)
	}
}
