package scenario

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/entrhq/steady/pkg/browser"
	"github.com/entrhq/steady/pkg/element"
	"github.com/entrhq/steady/pkg/logging"
	"github.com/entrhq/steady/pkg/retry"
)

// Status of a run or a step.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Report is the outcome of one scenario against one browser.
type Report struct {
	Scenario  string        `json:"scenario"`
	Browser   string        `json:"browser"`
	Status    Status        `json:"status"`
	Error     string        `json:"error,omitempty"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Steps     []StepResult  `json:"steps"`
}

// Passed reports whether every step passed.
func (r *Report) Passed() bool { return r.Status == StatusPassed }

// StepResult is the outcome of one step.
type StepResult struct {
	Index      int           `json:"index"`
	Action     Action        `json:"action"`
	Target     string        `json:"target,omitempty"`
	Status     Status        `json:"status"`
	Error      string        `json:"error,omitempty"`
	Attempts   int           `json:"attempts,omitempty"`
	Duration   time.Duration `json:"duration"`
	Screenshot string        `json:"screenshot,omitempty"`
}

// Runner runs scenarios against one browser session.
type Runner struct {
	session   *browser.Session
	artifacts *ArtifactWriter
	logger    *logging.Logger
}

// NewRunner returns a runner. artifacts may be nil, in which case nothing is
// written to disk.
func NewRunner(session *browser.Session, artifacts *ArtifactWriter, logger *logging.Logger) *Runner {
	return &Runner{session: session, artifacts: artifacts, logger: logger}
}

// Run opens the scenario URL and runs its steps until one fails. Steps after
// the failure are reported as skipped. The session is left open.
func (r *Runner) Run(ctx context.Context, sc *Scenario) *Report {
	report := &Report{
		Scenario:  sc.Name,
		Browser:   r.session.Settings().Browser(),
		StartTime: time.Now(),
		Status:    StatusPassed,
	}
	defer func() {
		report.EndTime = time.Now()
		report.Duration = report.EndTime.Sub(report.StartTime)
		if r.artifacts != nil {
			if err := r.artifacts.WriteAll(report); err != nil {
				r.logger.Warnf("failed to write report: %v", err)
			}
		}
	}()

	r.logger.Infof("running %q on %s", sc.Name, report.Browser)
	if err := r.session.Get(sc.URL); err != nil {
		report.Status = StatusFailed
		report.Error = err.Error()
		r.skipFrom(report, sc, 0)
		return report
	}

	for i := range sc.Steps {
		step := &sc.Steps[i]
		res := StepResult{Index: i + 1, Action: step.Action, Target: step.Target}

		start := time.Now()
		err := r.runStep(ctx, sc, step)
		res.Duration = time.Since(start)

		if err == nil {
			res.Status = StatusPassed
			report.Steps = append(report.Steps, res)
			r.logger.Debugf("step %d %s passed in %s", res.Index, step.Action, res.Duration)
			continue
		}

		res.Status = StatusFailed
		res.Error = err.Error()
		res.Attempts = attempts(err)
		res.Screenshot = r.failureScreenshot(sc, res.Index)
		report.Steps = append(report.Steps, res)
		report.Status = StatusFailed
		report.Error = fmt.Sprintf("step %d (%s): %v", res.Index, step.Action, err)
		r.logger.Errorf("%s", report.Error)
		r.skipFrom(report, sc, i+1)
		break
	}
	return report
}

func (r *Runner) skipFrom(report *Report, sc *Scenario, from int) {
	for i := from; i < len(sc.Steps); i++ {
		report.Steps = append(report.Steps, StepResult{
			Index:  i + 1,
			Action: sc.Steps[i].Action,
			Target: sc.Steps[i].Target,
			Status: StatusSkipped,
		})
	}
}

func (r *Runner) failureScreenshot(sc *Scenario, index int) string {
	if r.artifacts == nil {
		return ""
	}
	data, err := r.session.TakeScreenshot()
	if err != nil {
		r.logger.Warnf("failed to capture screenshot: %v", err)
		return ""
	}
	path, err := r.artifacts.WriteScreenshot(fmt.Sprintf("%s-step%d", sc.Name, index), data)
	if err != nil {
		r.logger.Warnf("%v", err)
		return ""
	}
	return path
}

// attempts digs the attempt count out of a retry failure.
func attempts(err error) int {
	var re *retry.Error
	if errors.As(err, &re) {
		return re.Attempts
	}
	var ae *retry.AssertionError
	if errors.As(err, &ae) {
		return ae.Attempts
	}
	return 0
}

func (r *Runner) stepOptions(sc *Scenario, st *Step) []retry.Option {
	var opts []retry.Option
	if sc.Timeout > 0 {
		opts = append(opts, retry.WithTimeout(sc.Timeout))
	}
	if st.Timeout > 0 {
		opts = append(opts, retry.WithTimeout(st.Timeout))
	}
	if st.Message != "" {
		opts = append(opts, retry.WithMessage(st.Message), retry.ConcatenateMessages())
	}
	return opts
}

func (r *Runner) runStep(ctx context.Context, sc *Scenario, st *Step) error {
	opts := r.stepOptions(sc, st)

	switch st.Action {
	case ActionExpectURL:
		return r.session.ExpectURLToMatch(ctx, st.Pattern, opts...)
	case ActionScript:
		_, err := r.session.RetryExecuteScript(ctx, st.Script, nil, opts...)
		return err
	case ActionScreenshot:
		return r.screenshot(ctx, sc, st, opts)
	case ActionExpectCount, ActionExpectSorted:
		coll, err := r.collection(st)
		if err != nil {
			return err
		}
		if st.Action == ActionExpectCount {
			return coll.ExpectElementsCountToBe(ctx, *st.Count, opts...)
		}
		return coll.ExpectSortedListToEqual(ctx, st.Texts, opts...)
	}

	el, err := r.element(st)
	if err != nil {
		return err
	}
	switch st.Action {
	case ActionClick:
		if st.Until != "" {
			return el.ClickTillAttributeEqual(ctx, st.Until, st.Text, opts...)
		}
		return el.Click(ctx, opts...)
	case ActionType:
		return el.ClickSendKeys(ctx, st.Text, opts...)
	case ActionClear:
		return el.Clear(ctx, opts...)
	case ActionSubmit:
		return el.Submit(ctx, opts...)
	case ActionWaitVisible:
		return el.WaitForVisible(ctx, opts...)
	case ActionWaitNotPresent:
		return el.WaitForNotPresent(ctx, opts...)
	case ActionExpectText:
		return el.ExpectTextToBe(ctx, st.Text, opts...)
	case ActionExpectValue:
		return el.ExpectInputValueToBe(ctx, st.Text, opts...)
	case ActionExpectPresent:
		return el.ExpectToBePresent(ctx, opts...)
	case ActionExpectNotPresent:
		return el.ExpectToBeNotPresent(ctx, opts...)
	}
	return fmt.Errorf("unknown action %q", st.Action)
}

func (r *Runner) element(st *Step) (*element.Element, error) {
	chain, err := st.Chain()
	if err != nil {
		return nil, err
	}
	return element.New(r.session, chain), nil
}

// collection scopes the Target matches to the element found by Within.
func (r *Runner) collection(st *Step) (*element.Collection, error) {
	chain, err := st.Chain()
	if err != nil {
		return nil, err
	}
	if chain.Len() == 1 {
		return element.NewCollection(r.session, chain.Last()), nil
	}
	parent := element.New(r.session, chain.Prefix(chain.Len()-1))
	return parent.Elements(chain.Last()), nil
}

func (r *Runner) screenshot(ctx context.Context, sc *Scenario, st *Step, opts []retry.Option) error {
	var (
		data []byte
		err  error
	)
	if st.Target != "" {
		el, cerr := r.element(st)
		if cerr != nil {
			return cerr
		}
		data, err = el.TakeScreenshot(ctx, opts...)
	} else {
		data, err = r.session.TakeScreenshot()
	}
	if err != nil {
		return err
	}
	if r.artifacts == nil {
		return nil
	}
	name := st.Name
	if name == "" {
		name = sc.Name
	}
	_, err = r.artifacts.WriteScreenshot(name, data)
	return err
}
