package policy

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/reglet-dev/hookguard/domain/entities"
	"github.com/reglet-dev/hookguard/domain/ports"
)

// Ensure implementations satisfy the interface.
var _ ports.DenialHandler = (*StderrDenialHandler)(nil)
var _ ports.DenialHandler = (*NopDenialHandler)(nil)
var _ ports.DenialHandler = (*LogDenialHandler)(nil)
var _ ports.DenialHandler = (*MetricsDenialHandler)(nil)

// StderrDenialHandler writes one line per denial to stderr, or to W when set.
type StderrDenialHandler struct {
	W io.Writer
}

func (h *StderrDenialHandler) OnDenial(kind string, request interface{}, reason string) {
	w := h.W
	if w == nil {
		w = os.Stderr
	}
	_, _ = fmt.Fprintf(w, "[hookguard] denied [%s]: %s (%s)\n", kind, describeRequest(request), reason)
}

// NopDenialHandler does nothing.
type NopDenialHandler struct{}

func (h *NopDenialHandler) OnDenial(kind string, request interface{}, reason string) {}

// LogDenialHandler logs denials at debug level. It is the engine default;
// user-facing diagnostics are the coordinator's job.
type LogDenialHandler struct {
	logger *slog.Logger
}

// NewLogDenialHandler creates a LogDenialHandler. A nil logger uses slog.Default().
func NewLogDenialHandler(logger *slog.Logger) *LogDenialHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogDenialHandler{logger: logger}
}

func (h *LogDenialHandler) OnDenial(kind string, request interface{}, reason string) {
	h.logger.Debug("permission denied", "kind", kind, "request", describeRequest(request), "reason", reason)
}

// MetricsDenialHandler counts denials by kind and event, then forwards them.
type MetricsDenialHandler struct {
	denials *prometheus.CounterVec
	next    ports.DenialHandler
}

// NewMetricsDenialHandler registers the denial counter with reg and wraps
// next, which may be nil.
func NewMetricsDenialHandler(reg prometheus.Registerer, next ports.DenialHandler) (*MetricsDenialHandler, error) {
	denials := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hookguard",
		Name:      "denials_total",
		Help:      "Events denied by the permission engine.",
	}, []string{"kind", "event"})
	if err := reg.Register(denials); err != nil {
		return nil, fmt.Errorf("failed to register denial counter: %w", err)
	}
	if next == nil {
		next = &NopDenialHandler{}
	}
	return &MetricsDenialHandler{denials: denials, next: next}, nil
}

func (h *MetricsDenialHandler) OnDenial(kind string, request interface{}, reason string) {
	event := "unknown"
	if ev, ok := request.(entities.Event); ok {
		event = entities.EventName(ev)
	}
	h.denials.WithLabelValues(kind, event).Inc()
	h.next.OnDenial(kind, request, reason)
}

// Collector returns the underlying counter.
func (h *MetricsDenialHandler) Collector() *prometheus.CounterVec {
	return h.denials
}

func describeRequest(request interface{}) string {
	if ev, ok := request.(entities.Event); ok {
		return entities.EventName(ev) + " " + entities.Describe(ev)
	}
	return fmt.Sprintf("%v", request)
}
