package benchmark

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"
)

// Stage names the step of a pair that failed.
type Stage string

const (
	StageEncode    Stage = "encode"
	StageRequest   Stage = "request"
	StageFetch     Stage = "fetch"
	StageSave      Stage = "save"
	StageComposite Stage = "composite"
)

// Status is the outcome of one pair.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusPartial Status = "partial" // result saved, demo not
)

// PairError annotates a pair failure with the stage and mask it happened on.
type PairError struct {
	Stage Stage
	Mask  string
	Err   error
}

func (e *PairError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return fmt.Sprintf("%s %s: %v", e.Stage, filepath.Base(e.Mask), e.Err)
}

func (e *PairError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newPairError(stage Stage, mask string, err error) error {
	if err == nil {
		return nil
	}
	return &PairError{Stage: stage, Mask: mask, Err: err}
}

// PairResult is the outcome of processing one mask against its color image.
type PairResult struct {
	Group      string        `json:"group"`
	ColorImage string        `json:"color_image"`
	Mask       string        `json:"mask"`
	ResultPath string        `json:"result_path,omitempty"`
	DemoPath   string        `json:"demo_path,omitempty"`
	Stage      Stage         `json:"stage,omitempty"`
	Error      string        `json:"error,omitempty"`
	Duration   time.Duration `json:"duration_ns"`

	Err error `json:"-"`
}

func (r *PairResult) fail(stage Stage, err error) {
	r.Stage = stage
	r.Err = err
	r.Error = err.Error()
}

func (r PairResult) Status() Status {
	switch {
	case r.Err == nil && r.Error == "":
		return StatusOK
	case r.ResultPath != "":
		return StatusPartial
	default:
		return StatusFailed
	}
}

// Summary collects everything one benchmark run did.
type Summary struct {
	RunID           string       `json:"run_id"`
	BenchmarkFolder string       `json:"benchmark_folder"`
	OutputFolder    string       `json:"output_folder"`
	StartedAt       time.Time    `json:"started_at"`
	FinishedAt      time.Time    `json:"finished_at"`
	Groups          []string     `json:"groups"`
	Skipped         []Skip       `json:"skipped,omitempty"`
	Results         []PairResult `json:"results"`
}

func (s *Summary) count(status Status) int {
	n := 0
	for _, r := range s.Results {
		if r.Status() == status {
			n++
		}
	}
	return n
}

func (s *Summary) Succeeded() int { return s.count(StatusOK) }
func (s *Summary) Failed() int    { return s.count(StatusFailed) }
func (s *Summary) Partial() int   { return s.count(StatusPartial) }

// WriteTable prints the per-pair outcome and totals as an aligned table.
func (s *Summary) WriteTable(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "GROUP\tMASK\tSTATUS\tSTAGE\tERROR")
	fmt.Fprintln(w, "-----\t----\t------\t-----\t-----")
	for _, r := range s.Results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Group, filepath.Base(r.Mask), r.Status(), r.Stage, oneLine(r.Error, 80))
	}
	for _, sk := range s.Skipped {
		fmt.Fprintf(w, "%s\t-\tskipped\t-\t%s\n", sk.Group, sk.Reason)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintf(out, "\nrun %s: %d ok, %d partial, %d failed, %d skipped groups in %s\n",
		s.RunID, s.Succeeded(), s.Partial(), s.Failed(), len(s.Skipped), s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	return err
}

// oneLine collapses whitespace and cuts s to at most max runes.
func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > max {
		return string(r[:max-3]) + "..."
	}
	return s
}

// Recorder persists a finished run.
type Recorder interface {
	RecordRun(ctx context.Context, summary *Summary) error
}
