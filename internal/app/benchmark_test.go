package app_test

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"culture_metrics/internal/app"
	"culture_metrics/internal/domain"
)

func benchStore() *fakeStore {
	st := newFakeStore()
	fresh := now.Add(-time.Hour)
	for id, score := range map[string]float64{"a": -0.6, "b": -0.2, "c": 0.3, "d": 0.9} {
		st.records[id] = metricsWith(id, score, fresh)
	}
	st.sectors["a"], st.sectors["b"] = "Energy", "Energy"
	st.sectors["c"], st.sectors["d"] = "Tech", "Tech"

	// neither may contribute to industry figures
	st.records["expired"] = metricsWith("expired", 5, now.Add(-48*time.Hour))
	empty := metricsWith("empty", 5, fresh)
	empty.ReviewCount = 0
	st.records["empty"] = empty
	return st
}

func newBench(st *fakeStore, r *fakeReviews) *app.BenchmarkService {
	return app.NewBenchmarkService(newService(r, st, nil))
}

func TestIndustryAverage(t *testing.T) {
	b := newBench(benchStore(), &fakeReviews{})

	avg, err := b.IndustryAverage(context.Background(), domain.ProcessResults, nil)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if avg.Companies != 4 || math.Abs(avg.Mean-0.1) > 1e-12 {
		t.Fatalf("unexpected average: %+v", avg)
	}

	tech, err := b.IndustryAverage(context.Background(), domain.ProcessResults, ptr("Tech"))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if tech.Companies != 2 || math.Abs(tech.Mean-0.6) > 1e-12 || tech.Sector != "Tech" {
		t.Fatalf("unexpected sector average: %+v", tech)
	}
}

func TestIndustryAverage_NoPeers(t *testing.T) {
	b := newBench(newFakeStore(), &fakeReviews{})
	_, err := b.IndustryAverage(context.Background(), domain.Agility, nil)
	if !errors.Is(err, domain.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestIndustryAverage_UnknownDimension(t *testing.T) {
	b := newBench(benchStore(), &fakeReviews{})
	_, err := b.IndustryAverage(context.Background(), "vibes", nil)
	if !errors.Is(err, domain.ErrUnknownDimension) {
		t.Fatalf("expected ErrUnknownDimension, got %v", err)
	}
}

func TestIndustryAverages_AllDimensions(t *testing.T) {
	b := newBench(benchStore(), &fakeReviews{})
	avgs, err := b.IndustryAverages(context.Background(), ptr("Energy"))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(avgs) != len(domain.Dimensions()) {
		t.Fatalf("expected one average per dimension, got %d", len(avgs))
	}
	for _, a := range avgs {
		if math.Abs(a.Mean-(-0.4)) > 1e-12 || a.Companies != 2 {
			t.Fatalf("unexpected average: %+v", a)
		}
	}
}

func TestPercentile(t *testing.T) {
	b := newBench(benchStore(), &fakeReviews{})
	cases := map[string]float64{"d": 75, "c": 50, "b": 25, "a": 0}
	for id, want := range cases {
		got, err := b.Percentile(context.Background(), id, domain.Agility)
		if err != nil {
			t.Fatalf("%s: err: %v", id, err)
		}
		if got != want {
			t.Fatalf("%s: got %v want %v", id, got, want)
		}
	}
}

func TestPercentile_TiesDoNotCount(t *testing.T) {
	st := newFakeStore()
	fresh := now.Add(-time.Hour)
	st.records["x"] = metricsWith("x", 0.5, fresh)
	st.records["y"] = metricsWith("y", 0.5, fresh)
	st.records["z"] = metricsWith("z", 0.1, fresh)
	b := newBench(st, &fakeReviews{})

	for _, id := range []string{"x", "y"} {
		got, err := b.Percentile(context.Background(), id, domain.Innovation)
		if err != nil {
			t.Fatalf("err: %v", err)
		}
		if math.Abs(got-100.0/3.0) > 1e-9 {
			t.Fatalf("%s: got %v want 33.3", id, got)
		}
	}
}

func TestPercentile_NoDataCompany(t *testing.T) {
	b := newBench(benchStore(), ghostReviews())
	_, err := b.Percentile(context.Background(), "ghost", domain.Agility)
	if !errors.Is(err, domain.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestPercentile_UnknownCompany(t *testing.T) {
	b := newBench(benchStore(), ghostReviews())
	_, err := b.Percentile(context.Background(), "nobody", domain.Agility)
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCompare(t *testing.T) {
	st := benchStore()
	c := st.records["c"]
	ds := c.Dimensions[domain.Respect]
	ds.Confidence = 20
	c.Dimensions[domain.Respect] = ds
	st.records["c"] = c
	b := newBench(st, &fakeReviews{})

	cmp, err := b.Compare(context.Background(), "a", "c")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(cmp.Dimensions) != len(domain.Dimensions()) {
		t.Fatalf("expected every dimension")
	}
	r := cmp.Dimensions[domain.Respect]
	if math.Abs(r.Delta-0.9) > 1e-12 || r.ScoreA != -0.6 || r.ScoreB != 0.3 {
		t.Fatalf("unexpected delta: %+v", r)
	}
	if r.RelativeConfidence != 20 || r.ConfidenceA != 50 || r.ConfidenceB != 20 {
		t.Fatalf("relative confidence should be the weaker side: %+v", r)
	}
}

func TestCompare_MissingSide(t *testing.T) {
	b := newBench(benchStore(), ghostReviews())
	if _, err := b.Compare(context.Background(), "a", "ghost"); !errors.Is(err, domain.ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}
}

func TestBenchmark(t *testing.T) {
	b := newBench(benchStore(), &fakeReviews{})
	v, err := b.Benchmark(context.Background(), "d")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if v.Peers != 3 {
		t.Fatalf("peers should exclude the company itself: %d", v.Peers)
	}
	e := v.Dimensions[domain.TightLoose]
	if e.Company != 0.9 || math.Abs(e.IndustryAverage-(-0.5/3)) > 1e-12 || e.Percentile != 75 {
		t.Fatalf("unexpected entry: %+v", e)
	}
}
