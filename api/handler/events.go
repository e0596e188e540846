package handler

import (
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/metabench/hubcrawl/models"
	"github.com/metabench/hubcrawl/runner"
)

// Events returns a handler for GET /api/events: a server-sent-events
// stream of TaskEvent records, optionally filtered to a comma-separated
// "types" query parameter (§6 streaming event channel).
func Events(c *runner.Crawler) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		var types []models.EventType
		for _, raw := range ctx.QueryArray("types") {
			for _, t := range strings.Split(raw, ",") {
				if t = strings.TrimSpace(t); t != "" {
					types = append(types, models.EventType(t))
				}
			}
		}

		id, events := c.Stream.Register(types...)
		defer c.Stream.Unregister(id)

		ctx.Header("Content-Type", "text/event-stream")
		ctx.Header("Cache-Control", "no-cache")
		ctx.Header("Connection", "keep-alive")

		clientGone := ctx.Request.Context().Done()
		ctx.Stream(func(w io.Writer) bool {
			select {
			case <-clientGone:
				return false
			case e, ok := <-events:
				if !ok {
					return false
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", e.EventType, eventJSON(e))
				return true
			}
		})
	}
}

func eventJSON(e models.TaskEvent) string {
	return fmt.Sprintf(
		`{"id":%d,"task_id":%q,"event_type":%q,"severity":%q,"scope":%q,"target":%q,"emitted_at":%q}`,
		e.ID, e.TaskID, e.EventType, e.Severity, e.Scope, e.Target, e.EmittedAt.Format("2006-01-02T15:04:05Z07:00"),
	)
}
