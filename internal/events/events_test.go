package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"
)

func TestChannels(t *testing.T) {
	if got := CompanyChannel("c-1"); got != "barbershop:events:c-1" {
		t.Fatalf("company channel = %q", got)
	}
	if got := TypeChannel(SalePaid); got != "barbershop:events:type:sale.paid" {
		t.Fatalf("type channel = %q", got)
	}
}

func TestDecode(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	payload, err := json.Marshal(Event{Type: SalePaid, CompanyID: "c-1", EntityID: "s-9", OccurredAt: at})
	if err != nil {
		t.Fatal(err)
	}
	e, err := Decode(payload)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if e.Type != SalePaid || e.EntityID != "s-9" || !e.OccurredAt.Equal(at) {
		t.Fatalf("unexpected event %+v", e)
	}
	if _, err := Decode([]byte("{")); err == nil {
		t.Fatal("expected error for malformed payload")
	}
}

func TestRecorder(t *testing.T) {
	var r Recorder
	var p Publisher = &r
	_ = p.Publish(context.Background(), Event{Type: SaleCreated})
	_ = p.Publish(context.Background(), Event{Type: SalePaid})
	if got := r.Types(); len(got) != 2 || got[0] != SaleCreated || got[1] != SalePaid {
		t.Fatalf("types = %v", got)
	}
	if err := (Discard{}).Publish(context.Background(), Event{}); err != nil {
		t.Fatal(err)
	}
}
