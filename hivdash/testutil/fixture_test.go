package testutil

import (
	"context"
	"errors"
	"testing"

	"github.com/arthur-debert/hivdash/hivdash/types"
)

func TestLoadDataset(t *testing.T) {
	s, ds := LoadDataset(t)

	if ds.USA1990.Entity != "USA" || ds.USA1990.Year != 1990 {
		t.Errorf("unexpected first record: %+v", ds.USA1990)
	}
	if ds.Kenya1991.Incidence != 60000 {
		t.Errorf("unexpected Kenya incidence: %v", ds.Kenya1991.Incidence)
	}
	for _, rec := range ds.All {
		if rec.ID == "" {
			t.Error("fixture record without id")
		}
	}

	got, err := s.Get(context.Background(), ds.Brazil1995.ID)
	if err != nil || got.Entity != "Brazil" {
		t.Errorf("Get(%s) = %+v, %v", ds.Brazil1995.ID, got, err)
	}
}

func TestFlakyStore(t *testing.T) {
	s, ds := LoadDataset(t)
	flaky := NewFlakyStore(s)
	ctx := context.Background()

	boom := errors.New("boom")
	flaky.FailOn("delete", boom)
	if err := flaky.Delete(ctx, ds.USA1990.ID); !errors.Is(err, boom) {
		t.Errorf("expected injected error, got %v", err)
	}
	flaky.FailOn("delete", nil)
	if err := flaky.Delete(ctx, ds.USA1990.ID); err != nil {
		t.Errorf("expected delete to succeed after clearing, got %v", err)
	}
	if flaky.Calls("delete") != 2 {
		t.Errorf("expected 2 delete calls, got %d", flaky.Calls("delete"))
	}

	flaky.FailCreateOn[2] = true
	flaky.CreateErr = boom
	if _, err := flaky.Create(ctx, types.Record{Entity: "A"}); err != nil {
		t.Errorf("first create should succeed: %v", err)
	}
	if _, err := flaky.Create(ctx, types.Record{Entity: "B"}); !errors.Is(err, boom) {
		t.Errorf("second create should fail, got %v", err)
	}
}
