package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	flag "github.com/ogier/pflag"

	"github.com/Sccrap/pe-triage/internal/analyze"
	"github.com/Sccrap/pe-triage/internal/extract"
	"github.com/Sccrap/pe-triage/internal/inspect"
	"github.com/Sccrap/pe-triage/internal/pe"
	"github.com/Sccrap/pe-triage/internal/report"
)

type options struct {
	basic      bool
	headers    bool
	sections   bool
	imports    bool
	strings    bool
	debug      bool
	report     bool
	json       bool
	crossCheck bool
	web        bool

	output  string
	dump    string
	yara    string
	yaraBin string
	addr    string
	minLen  int
	limit   int
}

const usageHeader = `Usage: pe-triage [options] <file.exe|file.dll> [strings-output]

With no mode flag the full triage report is printed. The JSON report is
only written when -j is given, to report.json unless -o says otherwise.

Options:
`

func newFlagSet(o *options, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("pe-triage", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVarP(&o.basic, "basic", "b", false, "show basic information (hashes, size, machine, language)")
	fs.BoolVarP(&o.headers, "headers", "H", false, "show DOS and NT header fields")
	fs.BoolVarP(&o.sections, "sections", "s", false, "show the section table with entropy")
	fs.BoolVarP(&o.imports, "imports", "i", false, "show imported libraries and functions")
	fs.BoolVarP(&o.strings, "strings", "x", false, "export printable ASCII/UTF-16LE strings (optional output file)")
	fs.StringVar(&o.dump, "dump", "", "hex dump the raw data of this section")
	fs.IntVarP(&o.limit, "limit", "l", defaultDumpLimit, "bytes to dump, 0 for the whole section")
	fs.BoolVarP(&o.debug, "debug", "d", false, "show debug directory information")
	fs.BoolVarP(&o.report, "report", "r", false, "print the full triage report (default)")
	fs.BoolVarP(&o.json, "json", "j", false, "also write the report as JSON")
	fs.StringVarP(&o.output, "output", "o", "report.json", "JSON report path, - for stdout")
	fs.BoolVarP(&o.crossCheck, "crosscheck", "c", false, "compare the parse with saferwall/pe")
	fs.StringVarP(&o.yara, "yara", "y", "", "scan with this YARA rules file")
	fs.StringVar(&o.yaraBin, "yara-bin", "", "yara executable (default: yara from PATH)")
	fs.IntVarP(&o.minLen, "min-len", "n", extract.DefaultMinLen, "minimum string length")
	fs.BoolVarP(&o.web, "web", "w", false, "start the web interface")
	fs.StringVar(&o.addr, "addr", defaultWebAddr, "web interface listen address")
	fs.Usage = func() {
		fmt.Fprint(stderr, usageHeader)
		fs.PrintDefaults()
	}
	return fs
}

func (o *options) analyzeOpts() []analyze.Option {
	opts := []analyze.Option{
		analyze.WithMinStringLen(o.minLen),
		analyze.WithCrossCheck(o.crossCheck),
	}
	if o.yara != "" {
		opts = append(opts, analyze.WithYara(o.yaraBin, o.yara))
	}
	return opts
}

var errUsage = errors.New("invalid usage")

const defaultDumpLimit = 256

func run(args []string, stdout, stderr io.Writer) error {
	var o options
	fs := newFlagSet(&o, stderr)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	if o.web {
		return RunWebUI(o.addr, o.analyzeOpts()...)
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return errUsage
	}
	filename := fs.Arg(0)

	switch {
	case o.headers:
		return headersPE(stdout, filename)
	case o.dump != "":
		return dumpSection(stdout, filename, o.dump, o.limit)
	case o.sections:
		return sectionsPE(stdout, filename)
	case o.imports:
		return importsPE(stdout, filename)
	case o.strings:
		return extractStrings(stdout, filename, o.minLen, fs.Arg(1))
	case o.debug:
		return debugInfo(stdout, filename)
	case o.basic:
		return basicInfo(stdout, filename, o.analyzeOpts())
	}
	return fullReport(stdout, filename, &o)
}

func headersPE(w io.Writer, filename string) error {
	img, err := pe.ParseFile(filename)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Headers of %s\n\n", filename)
	return report.WriteHeaders(w, img)
}

func dumpSection(w io.Writer, filename, name string, limit int) error {
	if limit < 0 {
		return fmt.Errorf("negative dump limit %d", limit)
	}
	img, err := pe.ParseFile(filename)
	if err != nil {
		return err
	}
	sec, data, err := pe.SectionDataFile(filename, img, name, limit)
	if err != nil {
		return err
	}
	return report.WriteSectionDump(w, sec, data)
}

func sectionsPE(w io.Writer, filename string) error {
	img, err := pe.ParseFile(filename)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Successfully parsed %s\n", filename)
	return report.WriteSections(w, img.Sections)
}

func importsPE(w io.Writer, filename string) error {
	img, err := pe.ParseFile(filename)
	if err != nil {
		return err
	}
	libs, err := pe.WalkImportsFile(filename, img)
	if err != nil {
		return err
	}
	return report.WriteImports(w, libs)
}

func extractStrings(w io.Writer, filename string, minLen int, outFilename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	results := extract.All(data, minLen)

	if outFilename != "" {
		f, err := os.Create(outFilename)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	bw := bufio.NewWriter(w)
	for _, s := range results {
		if _, err := bw.WriteString(s + "\n"); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if outFilename != "" {
		fmt.Fprintf(os.Stderr, "Wrote %d strings to %s\n", len(results), outFilename)
	}
	return nil
}

func debugInfo(w io.Writer, filename string) error {
	info, err := inspect.Inspect(filename)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Debug info for %s:\n", filename)
	fmt.Fprintln(w, "--------------------------------------")
	if len(info.Debug) == 0 {
		fmt.Fprintln(w, "No debug information found")
	} else {
		fmt.Fprintf(w, "Number of debug entries: %d\n\n", len(info.Debug))
		report.WriteDebug(w, info.Debug)
	}
	fmt.Fprintln(w, "--------------------------------------")
	return nil
}

func basicInfo(w io.Writer, filename string, opts []analyze.Option) error {
	rep, err := analyze.Run(filename, opts...)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Basic info for %s:\n", filename)
	fmt.Fprintln(w, "--------------------------------------")
	fmt.Fprintf(w, "File size:   %d bytes\n", rep.Size)
	fmt.Fprintf(w, "File type:   %s\n", rep.FileKind)
	fmt.Fprintf(w, "Machine:     %s\n", rep.Machine)
	fmt.Fprintf(w, "Bits:        %d\n", rep.Bits())
	fmt.Fprintf(w, "Language:    %s\n", rep.Language)
	fmt.Fprintf(w, "MD5:         %s\n", rep.Sums.MD5)
	fmt.Fprintf(w, "SHA256:      %s\n", rep.Sums.SHA256)
	fmt.Fprintf(w, "SSDEEP:      %s\n", rep.Sums.SSDEEP)
	fmt.Fprintf(w, "Sections:    %d\n", len(rep.Sections))
	fmt.Fprintln(w, "--------------------------------------")
	return nil
}

func fullReport(w io.Writer, filename string, o *options) error {
	rep, err := analyze.Run(filename, o.analyzeOpts()...)
	if err != nil {
		return err
	}

	if o.json && o.output == "-" {
		return report.WriteJSON(w, rep)
	}
	if err := report.WriteHuman(w, rep); err != nil {
		return err
	}
	if !o.json {
		return nil
	}

	f, err := os.Create(o.output)
	if err != nil {
		return fmt.Errorf("create json report: %w", err)
	}
	defer f.Close()
	if err := report.WriteJSON(f, rep); err != nil {
		return fmt.Errorf("write json report: %w", err)
	}
	fmt.Fprintf(w, "\nJSON report written to %s\n", o.output)
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, errUsage) {
			log.Printf("Error: %v", err)
		}
		os.Exit(1)
	}
}
