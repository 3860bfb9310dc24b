package app_test

import (
	"context"
	"reflect"
	"testing"
	"time"

	"culture_metrics/internal/app"
	"culture_metrics/internal/domain"
)

type flakyReviews struct {
	*fakeReviews
	failFor string
}

func (f *flakyReviews) FetchReviews(ctx context.Context, companyID string, r *domain.DateRange) ([]domain.Review, error) {
	if companyID == f.failFor {
		return nil, errStorage
	}
	return f.fakeReviews.FetchReviews(ctx, companyID, r)
}

func TestBatchRefresher_RefreshAll(t *testing.T) {
	base := acmeReviews()
	base.byCompany["globex"] = []domain.Review{textReview(7, "globex", "innovative", now)}
	base.companies = []domain.Company{
		{ID: "acme", Name: "Acme", ReviewCount: 3},
		{ID: "globex", Name: "Globex", ReviewCount: 1},
		{ID: "initech", Name: "Initech"},
		{ID: "broken", Name: "Broken"},
	}
	store := newFakeStore()
	svc := app.NewMetricsService(&flakyReviews{fakeReviews: base, failFor: "broken"}, store, nil, time.Minute, app.WithClock(clock))

	rep, err := app.NewBatchRefresher(svc, 2, 0).RefreshAll(context.Background(), nil)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if rep.RunID == "" || rep.Companies != 4 {
		t.Fatalf("unexpected report header: %+v", rep)
	}
	if rep.Refreshed != 2 || rep.NoData != 1 || !reflect.DeepEqual(rep.Failed, []string{"broken"}) {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if len(store.records) != 2 {
		t.Fatalf("expected two persisted records, got %d", len(store.records))
	}
}

func TestBatchRefresher_Cancelled(t *testing.T) {
	base := acmeReviews()
	base.companies = []domain.Company{{ID: "acme"}}
	svc := app.NewMetricsService(base, newFakeStore(), nil, time.Minute, app.WithClock(clock))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := app.NewBatchRefresher(svc, 1, 1).RefreshAll(ctx, nil)
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
	if rep.Refreshed != 0 {
		t.Fatalf("nothing should run after cancellation: %+v", rep)
	}
}
