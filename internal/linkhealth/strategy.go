package linkhealth

import "context"

// Outcome is the result of a single strategy attempt.
type Outcome struct {
	Strategy   string
	Status     Status
	HTTPStatus int
	FinalURL   string
	Port       int
	// Error is the short failure reason reported by the TCP probe: dns, timeout or the dial error.
	Error    string
	TimedOut bool
	Aborted  bool
	Err      error
}

// Failed reports whether the attempt errored for a reason other than a timeout or an abort.
func (o Outcome) Failed() bool {
	return o.Err != nil && !o.TimedOut && !o.Aborted
}

// Strategy is one step of a fallback chain.
type Strategy struct {
	Name string
	// When decides from the previous outcome whether this step runs. Nil means always.
	When func(prev Outcome) bool
	Run  func(ctx context.Context, target string) Outcome
}

// Chain is an ordered list of strategies.
type Chain []Strategy

// Run executes the strategies in order and stops at the first definite
// status or aborted attempt. Otherwise the last attempted outcome is returned.
// Nothing new starts once ctx is done.
func (c Chain) Run(ctx context.Context, target string) Outcome {
	last := Outcome{Status: StatusUnknown}
	for _, s := range c {
		if ctx.Err() != nil {
			break
		}
		if s.When != nil && !s.When(last) {
			continue
		}

		out := s.Run(ctx, target)
		if out.Strategy == "" {
			out.Strategy = s.Name
		}
		last = out
		if out.Aborted || out.Status.Definite() {
			return out
		}
	}
	return last
}
