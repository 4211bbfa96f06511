package history

import (
	"context"
	"testing"

	"github.com/mind-engage/formquiz/internal/db"
)

func TestRecordAndList(t *testing.T) {
	ctx := context.Background()
	d, err := db.Open(ctx, db.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatal(err)
	}
	defer d.Close()
	s := NewStore(d)

	first, err := s.Record(ctx, Entry{OwnerID: "google|1", FormID: "f1", Title: "Cells", EditURL: "https://docs.google.com/forms/d/f1/edit", QuestionCount: 5, AuthMode: "user"})
	if err != nil {
		t.Fatal(err)
	}
	if first.ID == "" || first.CreatedAt.IsZero() {
		t.Fatalf("id/timestamp not assigned: %+v", first)
	}
	if _, err := s.Record(ctx, Entry{OwnerID: "google|2", FormID: "f2", Title: "Other", EditURL: "x", AuthMode: "service"}); err != nil {
		t.Fatal(err)
	}

	got, err := s.ListByOwner(ctx, "google|1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].FormID != "f1" || got[0].QuestionCount != 5 || got[0].Title != "Cells" {
		t.Fatalf("got %+v", got)
	}

	none, err := s.ListByOwner(ctx, "google|404", 10)
	if err != nil || none == nil || len(none) != 0 {
		t.Fatalf("want empty non-nil slice, got %v %v", none, err)
	}
}

func TestRecordRequiresFormID(t *testing.T) {
	if _, err := NewStore(nil).Record(context.Background(), Entry{}); err == nil {
		t.Fatal("expected error")
	}
}
