package nats

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/knowledge-hub-tools/internal/core/domain"
	"github.com/kirillkom/knowledge-hub-tools/internal/infrastructure/resilience"
)

func TestDecodeEvent(t *testing.T) {
	event, err := DecodeEvent([]byte(`{"type":"guide.updated","guide_id":"g1","slug":"dq","reason":"relabel unit"}`))
	if err != nil {
		t.Fatalf("DecodeEvent() error = %v", err)
	}
	if event.Type != domain.GuideUpdated || event.GuideID != "g1" {
		t.Fatalf("unexpected event %+v", event)
	}

	if _, err := DecodeEvent([]byte(`{"guide_id":"g1"}`)); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input for missing type, got %v", err)
	}
	if _, err := DecodeEvent([]byte(`not json`)); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestClassifyNATSError(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want resilience.ErrorClassification
	}{
		{name: "no servers", err: nats.ErrNoServers, want: resilience.Transient},
		{name: "timeout", err: nats.ErrTimeout, want: resilience.Transient},
		{name: "max payload", err: nats.ErrMaxPayload, want: resilience.Rejected},
		{name: "canceled", err: context.Canceled, want: resilience.Rejected},
		{name: "other", err: errors.New("boom"), want: resilience.Permanent},
	}
	for _, tc := range cases {
		if got := classifyNATSError(tc.err); got != tc.want {
			t.Fatalf("%s: classifyNATSError() = %+v, want %+v", tc.name, got, tc.want)
		}
	}
}

func TestWrapTemporaryIfNeeded(t *testing.T) {
	if err := wrapTemporaryIfNeeded(nats.ErrNoServers); !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected temporary, got %v", err)
	}
	plain := errors.New("boom")
	if err := wrapTemporaryIfNeeded(plain); err != plain {
		t.Fatalf("expected unchanged error, got %v", err)
	}
}
