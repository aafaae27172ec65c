package types

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// Kind classifies a failure so callers can render a precise message.
type Kind string

const (
	KindInvalidIPv4             Kind = "InvalidIPv4"
	KindInvalidMask             Kind = "InvalidMask"
	KindInvalidPrefixLength     Kind = "InvalidPrefixLength"
	KindInvalidGateway          Kind = "InvalidGateway"
	KindInvalidMethod           Kind = "InvalidMethod"
	KindInvalidPayload          Kind = "InvalidPayload"
	KindNotFound                Kind = "NotFound"
	KindConflict                Kind = "Conflict"
	KindProbeUnavailable        Kind = "ProbeUnavailable"
	KindPermissionDenied        Kind = "PermissionDenied"
	KindApplyFailed             Kind = "ApplyFailed"
	KindApplyVerificationFailed Kind = "ApplyVerificationFailed"
	KindPartialApplyFailure     Kind = "PartialApplyFailure"
	KindConcurrentModification  Kind = "ConcurrentModification"
	KindTimeout                 Kind = "Timeout"
)

// Sentinels for errors.Is. They match any error of the same kind.
var (
	ErrInvalidIPv4             = &Error{Kind: KindInvalidIPv4}
	ErrInvalidMask             = &Error{Kind: KindInvalidMask}
	ErrInvalidPrefixLength     = &Error{Kind: KindInvalidPrefixLength}
	ErrInvalidGateway          = &Error{Kind: KindInvalidGateway}
	ErrInvalidMethod           = &Error{Kind: KindInvalidMethod}
	ErrInvalidPayload          = &Error{Kind: KindInvalidPayload}
	ErrNotFound                = &Error{Kind: KindNotFound}
	ErrConflict                = &Error{Kind: KindConflict}
	ErrProbeUnavailable        = &Error{Kind: KindProbeUnavailable}
	ErrPermissionDenied        = &Error{Kind: KindPermissionDenied}
	ErrApplyFailed             = &Error{Kind: KindApplyFailed}
	ErrApplyVerificationFailed = &Error{Kind: KindApplyVerificationFailed}
	ErrPartialApplyFailure     = &Error{Kind: KindPartialApplyFailure}
	ErrConcurrentModification  = &Error{Kind: KindConcurrentModification}
	ErrTimeout                 = &Error{Kind: KindTimeout}
)

// Error is a classified failure with enough context to point at the offending input.
type Error struct {
	Kind   Kind
	Op     string
	Device string
	Field  string
	Value  string
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Device != "" {
		fmt.Fprintf(&b, " (device %s)", e.Device)
	}
	if e.Field != "" {
		fmt.Fprintf(&b, " %s=%q", e.Field, e.Value)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Kind only.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// PartialApplyError is returned when a multi-step apply stopped after changing the OS.
// Nothing is rolled back; the caller decides between retrying and reverting.
type PartialApplyError struct {
	Device        string
	Attempted     AddressConfig
	LastKnownGood *AddressConfig
	Completed     []string
	FailedStep    string
	Err           error
}

func (e *PartialApplyError) Error() string {
	lkg := "none"
	if e.LastKnownGood != nil {
		lkg = e.LastKnownGood.String()
	}
	return fmt.Sprintf("%s (device %s): step %q failed after [%s]; attempted %s, last known good %s: %v",
		KindPartialApplyFailure, e.Device, e.FailedStep, strings.Join(e.Completed, ", "), e.Attempted, lkg, e.Err)
}

func (e *PartialApplyError) Unwrap() error { return e.Err }

func (e *PartialApplyError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == KindPartialApplyFailure
}

// VerificationError is returned when the OS accepted a change but the observed state
// did not converge within the wait window.
type VerificationError struct {
	Device   string
	Desired  AddressConfig
	Observed DeviceState
	Reason   string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s (device %s): %s\n%s", KindApplyVerificationFailed, e.Device, e.Reason, e.Diff())
}

func (e *VerificationError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == KindApplyVerificationFailed
}

// Diff renders desired vs observed state as a unified diff.
func (e *VerificationError) Diff() string {
	desired := []string{"method: " + string(e.Desired.Method)}
	if e.Desired.Method == MethodStatic {
		desired = append(desired, fmt.Sprintf("address: %s/%s", e.Desired.IP, e.Desired.Mask))
		if e.Desired.Gateway != "" {
			desired = append(desired, "gateway: "+e.Desired.Gateway)
		}
	}

	var observed []string
	if dyn, ok := e.Observed.Dynamic(); ok && e.Desired.Method == MethodDHCP {
		observed = append(observed, "method: dhcp", fmt.Sprintf("address: %s/%s", dyn.IP, dyn.Mask))
	} else {
		observed = append(observed, "method: "+string(e.Desired.Method))
		for _, a := range e.Observed.Addresses {
			observed = append(observed, fmt.Sprintf("address: %s/%s", a.IP, a.Mask))
		}
	}
	if e.Observed.Gateway != "" && e.Desired.Gateway != "" {
		observed = append(observed, "gateway: "+e.Observed.Gateway)
	}

	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(strings.Join(desired, "\n") + "\n"),
		B:        difflib.SplitLines(strings.Join(observed, "\n") + "\n"),
		FromFile: "desired",
		ToFile:   "observed",
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return diff
}

// KindOf extracts the Kind of the outermost classified error in err's chain, or ""
// when there is none.
func KindOf(err error) Kind {
	for err != nil {
		switch e := err.(type) {
		case *Error:
			return e.Kind
		case *PartialApplyError:
			return KindPartialApplyFailure
		case *VerificationError:
			return KindApplyVerificationFailed
		}
		err = errors.Unwrap(err)
	}
	return ""
}
