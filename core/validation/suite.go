// Package validation runs the pre-flight checks printed at startup.
package validation

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// StepStatus is the outcome of one check.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepPassed
	StepFailed
	StepWarning
	StepSkipped
)

func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepRunning:
		return "running"
	case StepPassed:
		return "passed"
	case StepFailed:
		return "failed"
	case StepWarning:
		return "warning"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome is what a check reports.
type Outcome struct {
	Status  StepStatus
	Message string
	Err     error
}

func Pass(message string) Outcome {
	return Outcome{Status: StepPassed, Message: message}
}

// Warn reports a problem that does not stop startup.
func Warn(message string, err error) Outcome {
	return Outcome{Status: StepWarning, Message: message, Err: err}
}

func Fail(message string, err error) Outcome {
	return Outcome{Status: StepFailed, Message: message, Err: err}
}

// Check is one named pre-flight check. When Requires names an earlier
// check that did not pass, this one is skipped.
type Check struct {
	Name     string
	Requires string
	Run      func(ctx context.Context) Outcome
}

// Step is a finished check.
type Step struct {
	Name    string
	Status  StepStatus
	Message string
	Err     error
	Latency time.Duration
}

// Result collects every step of a suite run.
type Result struct {
	Steps    []Step
	Passed   int
	Failed   int
	Warnings int
	Skipped  int
	Duration time.Duration
	Success  bool
}

// FirstError returns the error of the first failed step.
func (r Result) FirstError() error {
	for _, step := range r.Steps {
		if step.Status == StepFailed && step.Err != nil {
			return step.Err
		}
	}
	return nil
}

// Summary returns a one-line description for logs.
func (r Result) Summary() string {
	var sb strings.Builder
	if r.Success {
		sb.WriteString("pre-flight passed: ")
	} else {
		sb.WriteString("pre-flight failed: ")
	}
	fmt.Fprintf(&sb, "%d/%d checks passed", r.Passed, len(r.Steps))
	if r.Failed > 0 {
		fmt.Fprintf(&sb, ", %d failed", r.Failed)
	}
	if r.Warnings > 0 {
		fmt.Fprintf(&sb, ", %d warnings", r.Warnings)
	}
	fmt.Fprintf(&sb, " (took %v)", r.Duration.Round(time.Millisecond))
	return sb.String()
}

// Suite runs checks in order and prints progress.
type Suite struct {
	title        string
	checks       []Check
	output       io.Writer
	showProgress bool
	failFast     bool
}

func NewSuite(title string, checks ...Check) *Suite {
	return &Suite{
		title:        title,
		checks:       checks,
		output:       os.Stdout,
		showProgress: true,
	}
}

func (s *Suite) WithOutput(w io.Writer) *Suite {
	s.output = w
	return s
}

func (s *Suite) WithShowProgress(show bool) *Suite {
	s.showProgress = show
	return s
}

// WithFailFast stops at the first failed check.
func (s *Suite) WithFailFast(failFast bool) *Suite {
	s.failFast = failFast
	return s
}

// Run executes every check. A warning never fails the suite.
func (s *Suite) Run(ctx context.Context) Result {
	start := time.Now()
	if s.showProgress {
		s.printHeader()
	}

	statuses := make(map[string]StepStatus, len(s.checks))
	steps := make([]Step, 0, len(s.checks))
	for _, check := range s.checks {
		var step Step
		if dep := check.Requires; dep != "" && statuses[dep] != StepPassed && statuses[dep] != StepWarning {
			step = Step{Name: check.Name, Status: StepSkipped, Message: "skipped: " + dep + " did not pass"}
			if s.showProgress {
				s.printStep(step)
			}
		} else {
			step = s.runStep(ctx, check)
		}
		statuses[check.Name] = step.Status
		steps = append(steps, step)
		if s.failFast && step.Status == StepFailed {
			break
		}
	}

	result := buildResult(steps, time.Since(start))
	if s.showProgress {
		s.printSummary(result)
	}
	return result
}

func (s *Suite) runStep(ctx context.Context, check Check) Step {
	if s.showProgress {
		fmt.Fprintf(s.output, "  ◌ %s...", check.Name)
	}
	start := time.Now()
	out := check.Run(ctx)
	step := Step{
		Name:    check.Name,
		Status:  out.Status,
		Message: out.Message,
		Err:     out.Err,
		Latency: time.Since(start),
	}
	if s.showProgress {
		fmt.Fprint(s.output, "\r")
		s.printStep(step)
	}
	return step
}

func buildResult(steps []Step, d time.Duration) Result {
	r := Result{Steps: steps, Duration: d, Success: true}
	for _, step := range steps {
		switch step.Status {
		case StepPassed:
			r.Passed++
		case StepFailed:
			r.Failed++
			r.Success = false
		case StepWarning:
			r.Warnings++
		case StepSkipped:
			r.Skipped++
		}
	}
	return r
}

func (s *Suite) printHeader() {
	fmt.Fprintln(s.output)
	color.New(color.FgCyan, color.Bold).Fprintf(s.output, "━━━ %s ━━━\n", s.title)
	fmt.Fprintln(s.output)
}

func (s *Suite) printStep(step Step) {
	var icon string
	var clr *color.Color
	switch step.Status {
	case StepPassed:
		icon, clr = "✓", color.New(color.FgGreen)
	case StepFailed:
		icon, clr = "✗", color.New(color.FgRed)
	case StepWarning:
		icon, clr = "!", color.New(color.FgYellow)
	case StepSkipped:
		icon, clr = "○", color.New(color.FgHiBlack)
	default:
		icon, clr = "?", color.New(color.FgWhite)
	}

	clr.Fprintf(s.output, "  %s %s", icon, step.Name)
	if step.Message != "" {
		color.New(color.FgHiBlack).Fprintf(s.output, " - %s", step.Message)
	}
	fmt.Fprintln(s.output)

	if step.Status != StepPassed && step.Status != StepSkipped && step.Err != nil {
		clr.Fprintf(s.output, "    └─ %s\n", step.Err.Error())
	}
}

func (s *Suite) printSummary(r Result) {
	fmt.Fprintln(s.output)
	dim := color.New(color.FgHiBlack)
	if r.Success {
		ok := color.New(color.FgGreen, color.Bold)
		ok.Fprint(s.output, "━━━ Ready ")
		dim.Fprintf(s.output, "(%d/%d checks passed, %d warnings, %v)", r.Passed, len(r.Steps), r.Warnings, r.Duration.Round(time.Millisecond))
		ok.Fprintln(s.output, " ━━━")
	} else {
		bad := color.New(color.FgRed, color.Bold)
		bad.Fprint(s.output, "━━━ Not ready ")
		dim.Fprintf(s.output, "(%d passed, %d failed)", r.Passed, r.Failed)
		bad.Fprintln(s.output, " ━━━")
	}
	fmt.Fprintln(s.output)
}
