// Package analyze runs the full triage of one sample: structural parse,
// import walk, strings, hashes, classification, optional YARA scan and
// scoring.
package analyze

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"github.com/Sccrap/pe-triage/internal/detect"
	"github.com/Sccrap/pe-triage/internal/digest"
	"github.com/Sccrap/pe-triage/internal/extract"
	"github.com/Sccrap/pe-triage/internal/inspect"
	"github.com/Sccrap/pe-triage/internal/pe"
	"github.com/Sccrap/pe-triage/internal/report"
	"github.com/Sccrap/pe-triage/internal/risk"
	"github.com/Sccrap/pe-triage/internal/yara"
)

// job carries one sample through the stages.
type job struct {
	cfg *config

	// path is set when the sample is a file on disk; Bytes leaves it empty
	// and the YARA stage scans a temporary copy instead.
	path string
	data []byte

	img  *pe.Image
	libs []pe.Library
	rep  *report.Report
}

// stage is one pipeline step. Only fatal stages stop the pipeline; the
// others log their error and the report goes out without their part.
type stage struct {
	name  string
	fn    func(*job) error
	fatal bool
}

var stages = []stage{
	{"parse", parseStage, true},
	{"imports", importsStage, false},
	{"strings", stringsStage, false},
	{"digests", digestsStage, false},
	{"detect", detectStage, false},
	{"inspect", inspectStage, false},
	{"yara", yaraStage, false},
	{"score", scoreStage, false},
}

func (j *job) run() (*report.Report, error) {
	for _, s := range stages {
		if err := s.fn(j); err != nil {
			if s.fatal {
				return nil, err
			}
			log.Printf("analyze: %s stage on %s: %v", s.name, j.rep.Path, err)
		}
	}
	return j.rep, nil
}

// Run analyzes the file at path.
func Run(path string, opts ...Option) (*report.Report, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if st.Size() < pe.MinFileSize || st.Size() > pe.MaxFileSize {
		return nil, fmt.Errorf("parse %s: %w: %d bytes", path, pe.ErrFileSize, st.Size())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	j := &job{
		cfg:  configFromOpts(opts...),
		path: path,
		data: data,
		rep:  &report.Report{Path: path, Size: int64(len(data))},
	}
	return j.run()
}

// Bytes analyzes an in-memory sample; name is only used in the report.
// The YARA scan gets a temporary copy of data.
func Bytes(name string, data []byte, opts ...Option) (*report.Report, error) {
	j := &job{
		cfg:  configFromOpts(opts...),
		data: data,
		rep:  &report.Report{Path: name, Size: int64(len(data))},
	}
	return j.run()
}

func parseStage(j *job) error {
	img, err := pe.Parse(bytes.NewReader(j.data), int64(len(j.data)))
	if err != nil {
		return fmt.Errorf("parse %s: %w", j.rep.Path, err)
	}
	img.Path = j.path
	j.img = img

	j.rep.Image = img
	j.rep.Is64Bit = img.Is64Bit
	j.rep.Machine = img.NTHeader.FileHeader.MachineName()
	j.rep.Sections = img.Sections
	return nil
}

func importsStage(j *job) error {
	j.libs = pe.WalkImports(bytes.NewReader(j.data), j.img)
	j.rep.Imports = j.libs
	return nil
}

func stringsStage(j *job) error {
	j.rep.Strings = extract.All(j.data, j.cfg.minStringLen)
	return nil
}

func digestsStage(j *job) error {
	j.rep.Sums = digest.Bytes(j.data)
	return nil
}

func detectStage(j *job) error {
	j.rep.FileKind = detect.FileKind(j.data).String()
	j.rep.Language = detect.Language(j.libs, j.img.Sections)
	return nil
}

func inspectStage(j *job) error {
	ref, err := inspect.OpenBytes(j.data)
	if err != nil {
		return err
	}
	defer ref.Close()

	info := ref.Info()
	j.rep.Debug = info.Debug

	if !j.cfg.crossCheck {
		return nil
	}
	mismatches := ref.CrossCheck(j.img, j.libs)
	for _, m := range mismatches {
		log.Printf("analyze: cross-check %s: %s", j.rep.Path, m)
	}
	j.rep.Mismatches = mismatches
	return nil
}

func yaraStage(j *job) error {
	if j.cfg.yaraRules == "" {
		return nil
	}

	path := j.path
	if path == "" {
		tmp, err := writeTemp(j.data)
		if err != nil {
			return err
		}
		defer os.Remove(tmp)
		path = tmp
	}

	s := yara.New(j.cfg.yaraRules)
	s.Binary = j.cfg.yaraBinary
	matches, err := s.Scan(j.cfg.ctx, path)
	if err != nil {
		return err
	}
	j.rep.Yara = matches
	return nil
}

func writeTemp(data []byte) (string, error) {
	f, err := os.CreateTemp("", "pe-triage-*.bin")
	if err != nil {
		return "", fmt.Errorf("create temp sample: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write temp sample: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close temp sample: %w", err)
	}
	return f.Name(), nil
}

func scoreStage(j *job) error {
	j.rep.Risk = risk.Score(j.img.Sections, j.rep.Strings, j.libs)
	j.rep.Verdict = risk.VerdictFor(j.rep.Risk.Score)
	return nil
}
