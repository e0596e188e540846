package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/metabench/hubcrawl/models"
	"github.com/metabench/hubcrawl/runner"
)

// taskStore holds in-flight/completed async task state for both the
// depth-probe and task-generation endpoints, generalizing the teacher's
// crawl-job sync.Map pattern (id → status, expired after an hour) from a
// single job kind to any background task this package starts.
var taskStore sync.Map

func init() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-1 * time.Hour)
			taskStore.Range(func(key, value any) bool {
				if t := value.(*taskState); t.createdAt.Before(cutoff) {
					taskStore.Delete(key)
				}
				return true
			})
		}
	}()
}

type taskState struct {
	Status    string `json:"status"`
	Processed int    `json:"processed"`
	Total     int    `json:"total"`
	Error     string `json:"error,omitempty"`
	createdAt time.Time
}

func newTaskID(prefix string) string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return prefix + "-" + hex.EncodeToString(b)
}

type probeRequest struct {
	Host  string `json:"host"`
	Limit int    `json:"limit"`
}

// ProbeHubDepth returns a handler for POST /api/hub-archive/probe: runs
// §4.J against mappings needing a depth check and returns a task ID the
// caller can poll via the streaming event channel.
func ProbeHubDepth(c *runner.Crawler) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req probeRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if req.Limit <= 0 {
			req.Limit = 50
		}

		mappings, err := c.Store.ListMappingsNeedingDepthProbe(ctx.Request.Context(), req.Host, req.Limit)
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		taskID := newTaskID("probe")
		state := &taskState{Status: "processing", Total: len(mappings), createdAt: time.Now()}
		taskStore.Store(taskID, state)

		go runDepthProbe(c, taskID, state, mappings)

		ctx.JSON(http.StatusOK, gin.H{"taskId": taskID})
	}
}

func runDepthProbe(c *runner.Crawler, taskID string, state *taskState, mappings []models.PlacePageMapping) {
	ctx := context.Background()
	for _, m := range mappings {
		pageURL := func(n int) string { return paginatedURL(m.URL, n) }
		result := c.Depth.Probe(ctx, m.Host, pageURL)
		var oldest interface{}
		if !result.OldestContentDate.IsZero() {
			oldest = result.OldestContentDate
		}
		if err := c.Store.UpdateDepthProbeResult(ctx, m.ID, result.MaxPageDepth, oldest, result.Err); err != nil {
			slog.Error("probe-hub-depth: update result", "mapping_id", m.ID, "error", err)
		}
		state.Processed++
	}
	state.Status = "completed"
}

func paginatedURL(base string, page int) string {
	if page <= 1 {
		return base
	}
	sep := "?"
	if containsQuery(base) {
		sep = "&"
	}
	return base + sep + "page=" + itoa(page)
}

func containsQuery(u string) bool {
	for _, r := range u {
		if r == '?' {
			return true
		}
	}
	return false
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

type tasksRequest struct {
	Host  string   `json:"host"`
	Kinds []string `json:"kinds"`
}

// GenerateCrawlTasks returns a handler for POST /api/hub-archive/tasks:
// expands the gazetteer through the host's learned patterns (§4.I hub
// seeder) into candidate hub mappings, one task ID per requested kind.
func GenerateCrawlTasks(c *runner.Crawler) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var req tasksRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if len(req.Kinds) == 0 {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "kinds must be non-empty"})
			return
		}

		taskIDs := make([]string, 0, len(req.Kinds))
		for _, kind := range req.Kinds {
			taskID := newTaskID("seed")
			state := &taskState{Status: "processing", createdAt: time.Now()}
			taskStore.Store(taskID, state)
			taskIDs = append(taskIDs, taskID)

			go func(kind string, state *taskState) {
				n, err := c.HubSeeder.Seed(context.Background(), req.Host, kind)
				if err != nil {
					state.Status = "failed"
					state.Error = err.Error()
					return
				}
				state.Processed = n
				state.Total = n
				state.Status = "completed"
			}(kind, state)
		}

		ctx.JSON(http.StatusOK, gin.H{"taskIds": taskIDs})
	}
}

// ArchiveStats returns a handler for GET /api/hub-archive/stats: archive
// coverage totals plus a per-host breakdown, computed in Go over
// ListVerifiedHubs rather than a bespoke aggregation query since
// PlacePageMapping already carries Host and MaxPageDepth.
func ArchiveStats(c *runner.Crawler) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		hubs, err := c.Store.ListVerifiedHubs(ctx.Request.Context())
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		type hostStat struct {
			Host        string `json:"host"`
			Hubs        int    `json:"hubs"`
			TotalDepth  int    `json:"total_depth"`
			DeepestPage int    `json:"deepest_page"`
		}
		byHost := map[string]*hostStat{}
		var totalHubs, totalDepth int

		for _, m := range hubs {
			hs, ok := byHost[m.Host]
			if !ok {
				hs = &hostStat{Host: m.Host}
				byHost[m.Host] = hs
			}
			hs.Hubs++
			hs.TotalDepth += m.MaxPageDepth
			if m.MaxPageDepth > hs.DeepestPage {
				hs.DeepestPage = m.MaxPageDepth
			}
			totalHubs++
			totalDepth += m.MaxPageDepth
		}

		out := make([]*hostStat, 0, len(byHost))
		for _, hs := range byHost {
			out = append(out, hs)
		}

		ctx.JSON(http.StatusOK, gin.H{
			"totals": gin.H{"hubs": totalHubs, "total_depth": totalDepth},
			"byHost": out,
		})
	}
}

// ListHubs returns a handler for GET /api/hub-archive/hubs: the raw
// verified-hub list behind ArchiveStats' aggregation.
func ListHubs(c *runner.Crawler) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		hubs, err := c.Store.ListVerifiedHubs(ctx.Request.Context())
		if err != nil {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"hubs": hubs})
	}
}
