package renderctx

import (
	"errors"
	"testing"
)

func TestWrapPreservesCauseAndKind(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(KindExternalModel, cause, "model %q failed", "vocoder")
	if KindOf(err) != KindExternalModel {
		t.Fatalf("expected KindExternalModel, got %v", KindOf(err))
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped error to unwrap to cause")
	}
	if got := err.Error(); got != `model "vocoder" failed: boom` {
		t.Fatalf("unexpected message: %q", got)
	}
}

func TestInvalidAndNotFoundKinds(t *testing.T) {
	if KindOf(Invalid("bad %d", 1)) != KindInvalidArgument {
		t.Fatalf("expected KindInvalidArgument")
	}
	if KindOf(NotFound("missing %s", "x")) != KindNotFound {
		t.Fatalf("expected KindNotFound")
	}
}

func TestKindOfPlainErrorIsInternal(t *testing.T) {
	if KindOf(errors.New("plain")) != KindInternal {
		t.Fatalf("expected KindInternal for a plain error")
	}
}

func TestStatusCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{Invalid("x"), 400},
		{NotFound("x"), 404},
		{&Error{Kind: KindCancelled}, 499},
		{&Error{Kind: KindInternal}, 500},
		{&Error{Kind: KindCacheCorruption}, 500},
		{&Error{Kind: KindExternalModel}, 500},
		{errors.New("plain"), 500},
	}
	for _, c := range cases {
		if got := StatusCode(c.err); got != c.want {
			t.Fatalf("StatusCode(%v): got %d, want %d", c.err, got, c.want)
		}
	}
}

func TestPollReturnsNilForNilCanceller(t *testing.T) {
	if err := Poll(nil, "stage"); err != nil {
		t.Fatalf("expected nil for nil canceller, got %v", err)
	}
}

func TestPollReturnsCancelledKind(t *testing.T) {
	c := CancelFunc(func() bool { return true })
	err := Poll(c, "warp")
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
	if KindOf(err) != KindCancelled {
		t.Fatalf("expected KindCancelled, got %v", KindOf(err))
	}
}

func TestPollReturnsNilWhenNotCancelled(t *testing.T) {
	c := CancelFunc(func() bool { return false })
	if err := Poll(c, "warp"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}
