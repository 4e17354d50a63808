package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		err  error
		want Kind
	}{
		{
			name: "direct_kind",
			err:  New(KindReplayRejected, "code already in flight"),
			want: KindReplayRejected,
		},
		{
			name: "wrapped_kind_survives_fmt_wrapping",
			err:  fmt.Errorf("callback: %w", New(KindCodeExchangeFailed, "exchange failed")),
			want: KindCodeExchangeFailed,
		},
		{
			name: "plain_error_is_internal",
			err:  errors.New("boom"),
			want: KindInternal,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := KindOf(tc.err); got != tc.want {
				t.Fatalf("KindOf = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestMessageOfHidesInternalDetail(t *testing.T) {
	t.Parallel()

	plain := errors.New("dial tcp 10.0.0.1: connection refused")
	if got := MessageOf(plain); got != "internal error" {
		t.Fatalf("MessageOf(plain) = %q, want %q", got, "internal error")
	}

	typed := Wrap(KindUpstreamUnavailable, "github unreachable", plain)
	if got := MessageOf(typed); got != "github unreachable" {
		t.Fatalf("MessageOf(typed) = %q, want %q", got, "github unreachable")
	}
}

func TestUnwrapPreservesCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("root cause")
	err := Wrap(KindProfileFetchFailed, "profile fetch failed", cause)
	if !errors.Is(err, cause) {
		t.Fatal("wrapped error should match its cause via errors.Is")
	}
}
