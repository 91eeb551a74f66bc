package module

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xraph/tribunal/types"
)

func TestDefaultsRegistry(t *testing.T) {
	reg := Defaults()

	for _, tc := range []struct {
		code      Code
		mandatory bool
	}{
		{CodePerception, true},
		{CodeEthicalCalibration, true},
		{CodePredictiveFeedback, false},
		{CodeAdvisory, false},
	} {
		t.Run(string(tc.code), func(t *testing.T) {
			r, err := reg.Lookup(tc.code)
			if err != nil {
				t.Fatalf("Lookup(%s): %v", tc.code, err)
			}
			if r.Mandatory != tc.mandatory {
				t.Errorf("mandatory = %v, want %v", r.Mandatory, tc.mandatory)
			}
			if r.Timeout != DefaultTimeout {
				t.Errorf("timeout = %s, want %s", r.Timeout, DefaultTimeout)
			}
		})
	}

	t.Run("unknown code", func(t *testing.T) {
		if _, err := reg.Lookup("audit-sink"); err == nil {
			t.Error("expected lookup error for non-executable code")
		}
	})
}

func TestRegisterReplaces(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewAdvisory())
	reg.Register(NewAdvisory(), Mandatory(), WithTimeout(time.Second))

	r, err := reg.Lookup(CodeAdvisory)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Mandatory || r.Timeout != time.Second {
		t.Errorf("registration not replaced: %+v", r)
	}
}

func TestPerception(t *testing.T) {
	p := NewPerception()

	t.Run("empty input", func(t *testing.T) {
		_, err := p.Execute(context.Background(), nil, nil)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("err = %v, want ErrInvalidInput", err)
		}
	})

	t.Run("contract features", func(t *testing.T) {
		input := map[string]any{
			"document_text": "This agreement includes confidentiality and termination clauses under GDPR.",
		}
		res, err := p.Execute(context.Background(), input, map[string]any{"jurisdiction": "us"})
		if err != nil {
			t.Fatal(err)
		}
		if res.Payload["domain"] != "contract" {
			t.Errorf("domain = %v, want contract", res.Payload["domain"])
		}
		jurisdictions := res.Payload["jurisdictions"].([]string)
		if !containsString(jurisdictions, "US") || !containsString(jurisdictions, "EU") {
			t.Errorf("jurisdictions = %v, want US and EU", jurisdictions)
		}
		clauses := res.Payload["clauses"].([]string)
		if !containsString(clauses, "confidentiality") || !containsString(clauses, "termination") {
			t.Errorf("clauses = %v, want confidentiality and termination", clauses)
		}
		if !res.Confidence.Valid() {
			t.Errorf("confidence %v out of range", res.Confidence)
		}
	})
}

func TestEthicalCalibrationBand(t *testing.T) {
	m := NewEthicalCalibration()
	res, err := m.Execute(context.Background(), map[string]any{"text": "routine vendor renewal"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Confidence < 70 || res.Confidence > 89 {
		t.Errorf("score %v outside calibration band [70,89]", res.Confidence)
	}
	if res.Payload["approved"] != true {
		t.Errorf("approved = %v, want true", res.Payload["approved"])
	}
}

func TestPredictiveFeedbackRecommendation(t *testing.T) {
	m := NewPredictiveFeedback()
	res, err := m.Execute(context.Background(), map[string]any{"text": "one two three four five"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	rec := res.Payload["recommendation"].(string)
	if rec != "proceed" && rec != "review" {
		t.Errorf("recommendation = %q", rec)
	}
	if res.Confidence < 70 {
		t.Errorf("confidence = %v, want >= 70", res.Confidence)
	}
}

func TestAdvisoryRisks(t *testing.T) {
	m := NewAdvisory()
	input := map[string]any{
		"document_text": "Vendor accepts unlimited liability. Disputes go to arbitration.",
	}
	res, err := m.Execute(context.Background(), input, nil)
	if err != nil {
		t.Fatal(err)
	}

	risks := res.Payload["risks"].([]map[string]any)
	if len(risks) != 2 {
		t.Fatalf("got %d risks, want 2", len(risks))
	}
	// Heaviest indicator sorts first.
	if risks[0]["severity"] != "high" || risks[1]["severity"] != "low" {
		t.Errorf("severities = %v, %v", risks[0]["severity"], risks[1]["severity"])
	}
	if !strings.Contains(risks[0]["recommendation"].(string), "liability cap") {
		t.Errorf("recommendation = %v", risks[0]["recommendation"])
	}
	if res.Payload["risk_score"] != 12 {
		t.Errorf("risk_score = %v, want 12", res.Payload["risk_score"])
	}
	if res.Confidence != 76 {
		t.Errorf("confidence = %v, want 76", res.Confidence)
	}
}

func TestFanOut(t *testing.T) {
	reg := Defaults()
	input := map[string]any{"document_text": "This agreement covers payment and confidentiality."}

	codes := []Code{CodePerception, CodeEthicalCalibration, CodePredictiveFeedback, CodeAdvisory}
	outcomes := FanOut(context.Background(), reg, codes, input, nil)

	if len(outcomes) != len(codes) {
		t.Fatalf("got %d outcomes, want %d", len(outcomes), len(codes))
	}
	for i, o := range outcomes {
		if o.Code != codes[i] {
			t.Errorf("outcome %d: code = %s, want %s (order must match input)", i, o.Code, codes[i])
		}
		if o.Failed() {
			t.Errorf("module %s failed: %v", o.Code, o.Err)
		}
	}
}

func TestFanOutUnknownCode(t *testing.T) {
	outcomes := FanOut(context.Background(), Defaults(), []Code{"nonexistent"}, map[string]any{"text": "x"}, nil)
	if len(outcomes) != 1 || !outcomes[0].Failed() || !outcomes[0].Mandatory {
		t.Fatalf("unknown code must yield a failed mandatory outcome, got %+v", outcomes[0])
	}
}

type slowModule struct{ delay time.Duration }

func (slowModule) Code() Code { return "slow" }
func (m slowModule) Execute(ctx context.Context, _, _ map[string]any) (*Result, error) {
	select {
	case <-time.After(m.delay):
		return &Result{Payload: map[string]any{}, Confidence: types.MaxConfidence}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func TestFanOutTimeout(t *testing.T) {
	reg := NewRegistry()
	reg.Register(slowModule{delay: time.Second}, WithTimeout(10*time.Millisecond))

	outcomes := FanOut(context.Background(), reg, []Code{"slow"}, map[string]any{"text": "x"}, nil)
	if !errors.Is(outcomes[0].Err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", outcomes[0].Err)
	}
}

type panicModule struct{}

func (panicModule) Code() Code { return "panicky" }
func (panicModule) Execute(context.Context, map[string]any, map[string]any) (*Result, error) {
	panic("boom")
}

func TestFanOutPanicRecovery(t *testing.T) {
	reg := NewRegistry()
	reg.Register(panicModule{})

	outcomes := FanOut(context.Background(), reg, []Code{"panicky"}, map[string]any{"text": "x"}, nil)
	if !errors.Is(outcomes[0].Err, ErrUnavailable) {
		t.Fatalf("err = %v, want ErrUnavailable", outcomes[0].Err)
	}
}
