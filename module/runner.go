package module

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Outcome is one module's contribution to a fan-out, successful or not.
type Outcome struct {
	Code      Code
	Result    *Result
	Err       error
	Latency   time.Duration
	Mandatory bool
}

// Failed reports whether the module produced no usable result.
func (o Outcome) Failed() bool {
	return o.Err != nil || o.Result == nil
}

// FanOut invokes the given module codes concurrently against one request and
// joins on all of them. Each invocation runs under its registered timeout; a
// timed-out module reports ErrUnavailable. Outcomes are returned in input
// order so aggregation is deterministic.
//
// FanOut itself never fails partway: every registered code yields an
// Outcome. An unknown code yields a failed Outcome rather than aborting the
// whole fan-out, so the caller can apply its mandatory/optional policy
// uniformly.
func FanOut(ctx context.Context, reg *Registry, codes []Code, input, reqContext map[string]any) []Outcome {
	outcomes := make([]Outcome, len(codes))

	var wg sync.WaitGroup
	for i, code := range codes {
		registration, err := reg.Lookup(code)
		if err != nil {
			outcomes[i] = Outcome{Code: code, Err: err, Mandatory: true}
			continue
		}

		wg.Add(1)
		go func(i int, code Code, registration Registration) {
			defer wg.Done()
			outcomes[i] = invoke(ctx, code, registration, input, reqContext)
		}(i, code, registration)
	}
	wg.Wait()

	return outcomes
}

// invoke runs one module under its timeout and converts panics and
// deadline expiry into the ErrUnavailable contract.
func invoke(ctx context.Context, code Code, registration Registration, input, reqContext map[string]any) (out Outcome) {
	out = Outcome{Code: code, Mandatory: registration.Mandatory}

	timeout := registration.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	mctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type reply struct {
		result *Result
		err    error
	}
	done := make(chan reply, 1)

	start := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- reply{nil, fmt.Errorf("module %q panicked: %v: %w", code, r, ErrUnavailable)}
			}
		}()
		result, err := registration.Module.Execute(mctx, input, reqContext)
		done <- reply{result, err}
	}()

	select {
	case r := <-done:
		out.Latency = time.Since(start)
		out.Result = r.result
		out.Err = r.err
	case <-mctx.Done():
		out.Latency = time.Since(start)
		out.Err = fmt.Errorf("module %q timed out after %s: %w", code, timeout, ErrUnavailable)
	}

	return out
}
