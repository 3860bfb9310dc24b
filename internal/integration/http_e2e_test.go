//go:build integration || !unit

package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	_ "github.com/go-sql-driver/mysql"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"

	server "culture_metrics/internal/adapters/http_server"
	redisad "culture_metrics/internal/adapters/redis"
	"culture_metrics/internal/app"
	"culture_metrics/internal/domain"
	mysqlrepo "culture_metrics/internal/storage/mysql"
)

// ---------- helpers ----------
func pstr(s string) *string        { return &s }
func ptime(t time.Time) *time.Time { return &t }

func applyMigrations(t *testing.T, db *sql.DB) {
	t.Helper()
	dir := os.Getenv("MIGRATIONS_DIR")
	if dir == "" {
		dir = filepath.Join("..", "..", "migrations")
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read migrations dir %s: %v", dir, err)
	}
	var files []string
	for _, e := range ents {
		if !e.IsDir() && filepath.Ext(e.Name()) == ".sql" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	if len(files) == 0 {
		t.Fatalf("no .sql files in %s", dir)
	}
	sort.Strings(files)
	for _, f := range files {
		sqlBytes, err := os.ReadFile(f)
		if err != nil {
			t.Fatalf("read %s: %v", f, err)
		}
		if _, err := db.Exec(string(sqlBytes)); err != nil {
			t.Fatalf("exec %s: %v", f, err)
		}
	}
}

func startMySQL(t *testing.T) *sql.DB {
	t.Helper()
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("dockertest unavailable: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mysql",
		Tag:        "8.0.36",
		Env:        []string{"MYSQL_ROOT_PASSWORD=root", "MYSQL_DATABASE=culture"},
	}, func(hc *docker.HostConfig) {
		hc.AutoRemove = true
		hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		t.Skipf("run mysql: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	dsn := fmt.Sprintf("root:root@tcp(127.0.0.1:%s)/culture?parseTime=true&multiStatements=true&charset=utf8mb4,utf8&loc=UTC",
		resource.GetPort("3306/tcp"))
	var db *sql.DB
	if err := pool.Retry(func() error {
		var e error
		db, e = sql.Open("mysql", dsn)
		if e != nil {
			return e
		}
		return db.Ping()
	}); err != nil {
		t.Fatalf("connect mysql: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	applyMigrations(t, db)
	return db
}

func seed(t *testing.T, repo *mysqlrepo.Repo, day time.Time) {
	t.Helper()
	ctx := context.Background()
	for _, c := range []domain.Company{
		{ID: "acme", Name: "Acme", Sector: pstr("Industrials")},
		{ID: "globex", Name: "Globex", Sector: pstr("Industrials")},
	} {
		if err := repo.UpsertCompany(ctx, c); err != nil {
			t.Fatalf("UpsertCompany: %v", err)
		}
	}
	reviews := []domain.Review{
		{CompanyID: "acme", SourceID: pstr("a1"), Summary: pstr("Fast-paced environment."), ReviewedAt: ptime(day)},
		{CompanyID: "acme", SourceID: pstr("a2"), Summary: pstr("Really fast-paced."), ReviewedAt: ptime(day)},
		{CompanyID: "acme", SourceID: pstr("a3"), Summary: pstr("Quite bureaucratic."), ReviewedAt: ptime(day)},
		{CompanyID: "globex", SourceID: pstr("g1"), Summary: pstr("Bureaucratic, red tape everywhere."), ReviewedAt: ptime(day)},
	}
	if err := repo.UpsertReviews(ctx, reviews); err != nil {
		t.Fatalf("UpsertReviews: %v", err)
	}
}

func getJSON(t *testing.T, url string, dst any) int {
	t.Helper()
	res, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer res.Body.Close()
	if dst != nil && res.StatusCode == http.StatusOK {
		if err := json.NewDecoder(res.Body).Decode(dst); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return res.StatusCode
}

// ---------- the test ----------
func TestHTTP_EndToEnd_Metrics(t *testing.T) {
	db := startMySQL(t)
	mr := miniredis.RunT(t)

	now := time.Now().UTC()
	repo := mysqlrepo.New(db)
	seed(t, repo, now.Add(-time.Hour))

	cache := redisad.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	metrics := app.NewMetricsService(repo, repo, cache, time.Minute)
	srv := server.New(10 * time.Second)
	srv.MountHandlers(&server.Handlers{Metrics: metrics, Bench: app.NewBenchmarkService(metrics)})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	var first domain.MetricsResult
	if code := getJSON(t, ts.URL+"/v1/companies/acme/metrics", &first); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if !first.Recomputed || first.Metrics.ReviewCount != 3 {
		t.Fatalf("first read should compute: %+v", first)
	}
	if s := first.Metrics.Dimensions[domain.ProcessResults].Score; s < 0.333 || s > 0.334 {
		t.Fatalf("process_results: %v", s)
	}

	var second domain.MetricsResult
	getJSON(t, ts.URL+"/v1/companies/acme/metrics", &second)
	if second.Recomputed || !second.Metrics.ComputedAt.Equal(first.Metrics.ComputedAt) {
		t.Fatalf("second read should come from cache: %+v", second)
	}

	var cmp domain.Comparison
	if code := getJSON(t, ts.URL+"/v1/compare?a=acme&b=globex", &cmp); code != http.StatusOK {
		t.Fatalf("compare status %d", code)
	}
	if d := cmp.Dimensions[domain.ProcessResults]; d.ScoreB != -1 || d.Delta >= 0 {
		t.Fatalf("unexpected comparison: %+v", d)
	}

	var pct struct {
		Percentile float64 `json:"percentile"`
	}
	getJSON(t, ts.URL+"/v1/companies/acme/percentile?dimension=process_results", &pct)
	if pct.Percentile != 50 {
		t.Fatalf("acme should be above globex: %+v", pct)
	}

	if code := getJSON(t, ts.URL+"/v1/companies/nobody/metrics", nil); code != http.StatusOK {
		t.Fatalf("no-data company should answer 200, got %d", code)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/v1/companies/acme/metrics", nil)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE: %v", err)
	}
	res.Body.Close()
	if res.StatusCode != http.StatusNoContent {
		t.Fatalf("invalidate status %d", res.StatusCode)
	}
	if _, err := repo.GetMetrics(context.Background(), "acme"); err != domain.ErrNotFound {
		t.Fatalf("record should be gone, got %v", err)
	}
}
