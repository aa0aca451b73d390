package jobclient_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/simuq/internal/domain/model"
	"github.com/okian/simuq/internal/jobclient"
	"github.com/okian/simuq/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// fakeService acknowledges every request and reports a record after
// pendingPolls lookups. Jobs for model "broken" fail.
type fakeService struct {
	mu           sync.Mutex
	next         atomic.Int64
	polls        map[string]int
	models       map[string]string
	pendingPolls atomic.Int64
	reject       atomic.Bool
}

func newFakeService(pending int) *fakeService {
	f := &fakeService{polls: map[string]int{}, models: map[string]string{}}
	f.pendingPolls.Store(int64(pending))
	return f
}

func (f *fakeService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/healthz":
		w.WriteHeader(http.StatusOK)
	case r.URL.Path == "/jobs" && r.Method == http.MethodPost:
		if f.reject.Load() {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"validation_error"}`))
			return
		}
		var req model.Request
		_ = json.NewDecoder(r.Body).Decode(&req)
		id := "job-" + string(rune('a'+f.next.Add(1)-1))
		f.mu.Lock()
		f.models[id] = req.Model
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]any{
			"statusCode": 200,
			"body":       model.Ack{JobID: id, JobTimestamp: "1700000000", Status: model.StatusProcessing},
		})
	case strings.HasPrefix(r.URL.Path, "/jobs/"):
		id := strings.TrimPrefix(r.URL.Path, "/jobs/")
		f.mu.Lock()
		f.polls[id]++
		n, m := f.polls[id], f.models[id]
		f.mu.Unlock()

		res := model.LookupResult{Item: model.NoData, JobID: id, Status: "running"}
		switch {
		case m == "broken":
			res.Status = "failed"
		case int64(n) > f.pendingPolls.Load():
			res.Item = model.Record{JobID: id, JobTimestamp: 1700000000, Results: json.RawMessage(`{"TCI":[280]}`)}
			res.Status = "completed"
		}
		_ = json.NewEncoder(w).Encode(res)
	default:
		http.NotFound(w, r)
	}
}

func writeRequest(t *testing.T, dir, name, modelName string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	body := `{"model":"` + modelName + `","simulationKind":"single","params":[]}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestClient(t *testing.T) {
	convey.Convey("Given a client against a fake service", t, func() {
		fake := newFakeService(2)
		srv := httptest.NewServer(fake)
		defer srv.Close()
		client := jobclient.NewClient(srv.URL+"/", time.Second, 5*time.Millisecond)
		ctx := context.Background()

		convey.Convey("Then health should pass", func() {
			convey.So(client.Health(ctx), convey.ShouldBeNil)
		})

		convey.Convey("When a request is submitted and awaited", func() {
			ack, err := client.Submit(ctx, model.Request{Model: "oilcane", SimulationKind: "single"})
			convey.So(err, convey.ShouldBeNil)
			convey.So(ack.JobID, convey.ShouldEqual, "job-a")

			res, err := client.Wait(ctx, ack.JobID)

			convey.Convey("Then the record should be returned after polling", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(res.Found(), convey.ShouldBeTrue)
				convey.So(res.Status, convey.ShouldEqual, "completed")
				convey.So(string(res.Item), convey.ShouldContainSubstring, `"jobId":"job-a"`)
			})
		})

		convey.Convey("When the job fails", func() {
			ack, err := client.Submit(ctx, model.Request{Model: "broken"})
			convey.So(err, convey.ShouldBeNil)
			_, err = client.Wait(ctx, ack.JobID)

			convey.Convey("Then Wait should report it", func() {
				convey.So(errors.Is(err, jobclient.ErrJobFailed), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the service rejects the request", func() {
			fake.reject.Store(true)
			_, err := client.Submit(ctx, model.Request{Model: "oilcane"})

			convey.Convey("Then Submit should return ErrRejected", func() {
				convey.So(errors.Is(err, jobclient.ErrRejected), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "400")
			})
		})

		convey.Convey("When the wait deadline passes", func() {
			fake.pendingPolls.Store(1 << 20)
			ack, _ := client.Submit(ctx, model.Request{Model: "oilcane"})
			waitCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
			defer cancel()
			_, err := client.Wait(waitCtx, ack.JobID)

			convey.Convey("Then the deadline error should be returned", func() {
				convey.So(errors.Is(err, context.DeadlineExceeded), convey.ShouldBeTrue)
			})
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given request files and a fake service", t, func() {
		fake := newFakeService(1)
		srv := httptest.NewServer(fake)
		defer srv.Close()

		dir := t.TempDir()
		out := filepath.Join(dir, "out")
		files := []string{
			writeRequest(t, dir, "a.json", "oilcane"),
			writeRequest(t, dir, "b.json", "cornstover"),
			writeRequest(t, dir, "c.json", "broken"),
			filepath.Join(dir, "missing.json"),
		}
		cfg := &jobclient.Config{
			BaseURL:      srv.URL,
			Workers:      2,
			Timeout:      time.Second,
			PollInterval: 5 * time.Millisecond,
			Wait:         time.Second,
			OutputDir:    out,
		}

		stats, outcomes, err := jobclient.Run(context.Background(), cfg, files)

		convey.Convey("Then completed records should be saved and failures counted", func() {
			convey.So(err, convey.ShouldBeNil)
			convey.So(outcomes, convey.ShouldHaveLength, 4)
			convey.So(stats.Submitted, convey.ShouldEqual, 3)
			convey.So(stats.Completed, convey.ShouldEqual, 2)
			convey.So(stats.Failed, convey.ShouldEqual, 2)

			saved, _ := filepath.Glob(filepath.Join(out, "*.json"))
			convey.So(saved, convey.ShouldHaveLength, 2)
		})
	})

	convey.Convey("Given no files", t, func() {
		_, _, err := jobclient.Run(context.Background(), &jobclient.Config{BaseURL: "http://127.0.0.1:1"}, nil)

		convey.Convey("Then Run should fail", func() {
			convey.So(err, convey.ShouldNotBeNil)
		})
	})
}
