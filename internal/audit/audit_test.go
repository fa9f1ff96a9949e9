package audit

import (
	"context"
	"testing"
	"time"
)

type fakeRecorder struct {
	records []Record
}

func (f *fakeRecorder) OnEvent(_ context.Context, rec Record) {
	f.records = append(f.records, rec)
}

func TestMultiRecorderFansOutToEveryChild(t *testing.T) {
	a, b := &fakeRecorder{}, &fakeRecorder{}
	m := NewMultiRecorder(a, b, nil)

	rec := Record{SessionID: 1, Username: "alice", Event: EventLogon, Timestamp: time.Now()}
	m.OnEvent(context.Background(), rec)

	if len(a.records) != 1 || len(b.records) != 1 {
		t.Fatalf("expected both recorders to receive the event, got %d and %d", len(a.records), len(b.records))
	}
}

func TestMultiRecorderSkipsNilRecorders(t *testing.T) {
	m := NewMultiRecorder(nil, nil)
	// Must not panic when every entry is nil.
	m.OnEvent(context.Background(), Record{Event: EventLogout})
}

func TestNoopRecorderDiscardsEvents(t *testing.T) {
	var r NoopRecorder
	r.OnEvent(context.Background(), Record{Event: EventSessionReaped})
}

func TestSQLRecorderPersistsRecords(t *testing.T) {
	rec, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rec.Close()

	rec.OnEvent(context.Background(), Record{
		SessionID: 7,
		Username:  "alice",
		Event:     EventNewOrderSingle,
		Timestamp: time.Now(),
		Detail:    "cl_ord_id=x1",
	})

	var count int
	if err := rec.db.NewSelect().Model((*row)(nil)).ColumnExpr("count(*)").Scan(context.Background(), &count); err != nil {
		t.Fatalf("count query: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 row, got %d", count)
	}
}
