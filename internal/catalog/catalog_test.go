package catalog

import (
	"context"
	"testing"

	"github.com/michaelbrown/plotbox/internal/policy"
	"github.com/michaelbrown/plotbox/internal/sandbox"
	"github.com/michaelbrown/plotbox/internal/validator"
)

func TestFunctionsCoversAllModules(t *testing.T) {
	fns := Functions()
	for _, group := range []string{"numeric", "numeric.random", "frame", "plot", "builtin"} {
		if len(fns[group]) == 0 {
			t.Errorf("group %q is empty", group)
		}
	}
}

// The sample snippet must pass the same gate user code does.
func TestSampleDataValidates(t *testing.T) {
	sample := SampleData()
	if sample.Code == "" {
		t.Fatal("empty sample code")
	}

	out := validator.New(policy.Default()).Check(sample.Code)
	if !out.Accepted {
		t.Errorf("sample code rejected: %s", out.Reason)
	}
}

func TestSampleDataRuns(t *testing.T) {
	e := sandbox.NewExecutor(policy.Default())
	res := e.Run(context.Background(), sandbox.Request{Source: SampleData().Code})
	if !res.Success {
		t.Fatalf("sample code failed: %s: %s", res.ErrKind, res.ErrMessage)
	}
	if res.Output == "" {
		t.Error("sample code should print the frame summary")
	}
}
