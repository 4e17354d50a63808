package telemetry

import (
	"context"
	"testing"
)

func TestSetupDisabledForcesOff(t *testing.T) {
	runtime, err := Setup(Config{Enabled: false, TraceMode: "detailed"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer func() { _ = runtime.Shutdown(context.Background()) }()

	if TraceMode() != "off" {
		t.Fatalf("TraceMode() = %q, want off", TraceMode())
	}
	if ShouldTraceDependencies() {
		t.Fatal("dependency tracing enabled while telemetry is disabled")
	}
}

func TestSetupDetailedEnablesDependencySpans(t *testing.T) {
	runtime, err := Setup(Config{Enabled: true, TraceMode: "detailed"})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	defer func() { _ = runtime.Shutdown(context.Background()) }()

	if !ShouldTraceDependencies() {
		t.Fatal("dependency tracing disabled in detailed mode")
	}
}

func TestNormalizeTraceMode(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty_defaults_to_sampled", in: "", want: "sampled"},
		{name: "mixed_case", in: " Detailed ", want: "detailed"},
		{name: "unknown_defaults_to_sampled", in: "verbose", want: "sampled"},
		{name: "off", in: "off", want: "off"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizeTraceMode(tc.in); got != tc.want {
				t.Fatalf("normalizeTraceMode(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}
