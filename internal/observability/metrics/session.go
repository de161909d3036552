// Package metrics holds the metric names and tag conventions used across findash.
package metrics

import (
	"strconv"
	"time"

	obserrors "github.com/findash/findash/internal/observability/errors"
	"github.com/findash/findash/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Session lifecycle events.
const (
	SessionEventLogin   = "login"
	SessionEventLogout  = "logout"
	SessionEventRefresh = "refresh"
	SessionEventExpired = "expired"
)

// BackendRequest captures one round trip to the finance backend.
type BackendRequest struct {
	Method   string
	Path     string
	Attempt  string
	Status   int
	Duration time.Duration
	Err      error
}

// EmitBackendRequest emits the session.request counter and its duration.
func EmitBackendRequest(sink statsd.Sink, in BackendRequest) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"method":  in.Method,
		"path":    in.Path,
		"attempt": in.Attempt,
	}
	if in.Err != nil {
		tags["result"] = ResultError
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	} else {
		tags["status"] = strconv.Itoa(in.Status)
		tags["result"] = resultForStatus(in.Status)
	}

	sink.Count("session.request", 1, tags)
	if in.Duration > 0 {
		sink.Timing("session.request.duration", in.Duration, CloneTags(tags))
	}
}

// EmitSessionEvent counts a login, logout, refresh or expiry. The refresh
// event is emitted under its own name so dashboards can alert on it.
func EmitSessionEvent(sink statsd.Sink, event string, err error) {
	if sink == nil {
		return
	}

	tags := map[string]string{"event": event, "result": ResultSuccess}
	if err != nil {
		tags["result"] = ResultError
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	name := "session.event"
	if event == SessionEventRefresh {
		name = "session.refresh"
	}
	sink.Count(name, 1, tags)
}

func resultForStatus(status int) string {
	if status >= 200 && status < 300 {
		return ResultSuccess
	}
	return ResultError
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
