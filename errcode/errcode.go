package errcode

// Code is a stable, peripheral-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
// Driver entry points return these directly so interrupt-context code never
// allocates when reporting a failure.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK Code = "ok"

	InvalidParams Code = "invalid_params" // bad argument, range, or nil buffer
	NotReady      Code = "not_ready"      // operation requires prior Init
	Busy          Code = "busy"           // conflicting operation in flight
	Timeout       Code = "timeout"        // bounded wait exhausted
	HWFault       Code = "hw_fault"       // controller-reported fault (NACK, error flag)

	UnknownBoard Code = "unknown_board"
	QueueFull    Code = "queue_full"

	Error Code = "error" // generic fallback
)

// E is an optional wrapper when we want to keep context and a cause.
// Foreground-only: the wrapper allocates, so interrupt paths stick to Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	if e.Msg != "" {
		return string(e.C) + ": " + e.Msg
	}
	return string(e.C)
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}
