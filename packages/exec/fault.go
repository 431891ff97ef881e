package exec

// FaultKind separates "could not materialize the run" from "could not
// execute it". Both reconcile a report to failed; neither ever reaches the
// HTTP caller that triggered the run.
type FaultKind int

const (
	FaultNone FaultKind = iota
	// FaultGeneration covers writing the plan or creating run directories.
	FaultGeneration
	// FaultExecution covers spawning either phase, phase timeouts, and
	// renderer failures.
	FaultExecution
)

type Fault struct {
	kind FaultKind
	err  error
}

func (f *Fault) Error() string { return f.err.Error() }
func (f *Fault) Unwrap() error { return f.err }
func (f *Fault) Kind() FaultKind { return f.kind }

func generationFault(err error) error {
	return &Fault{kind: FaultGeneration, err: err}
}

func executionFault(err error) error {
	return &Fault{kind: FaultExecution, err: err}
}

// KindOf classifies an error returned by Executor.Run.
func KindOf(err error) FaultKind {
	if f, ok := err.(*Fault); ok {
		return f.kind
	}
	if err != nil {
		return FaultExecution
	}
	return FaultNone
}
