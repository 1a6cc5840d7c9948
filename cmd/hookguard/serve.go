package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sourcegraph/conc/pool"

	"github.com/reglet-dev/hookguard/application/coordinator"
	"github.com/reglet-dev/hookguard/application/recorder"
	domainerrors "github.com/reglet-dev/hookguard/domain/errors"
	"github.com/reglet-dev/hookguard/domain/policy"
	"github.com/reglet-dev/hookguard/domain/ports"
	"github.com/reglet-dev/hookguard/infrastructure/configstore"
	"github.com/reglet-dev/hookguard/infrastructure/prompter"
)

type serveOptions struct {
	mode        string
	metricsAddr string
	watch       bool
	in          io.Reader
	out         io.Writer

	// prompter replaces the controlling terminal in review mode.
	prompter ports.Prompter
	// registry replaces a fresh metrics registry.
	registry *prometheus.Registry
}

// eventRequest is one line of input.
type eventRequest struct {
	Event string   `json:"event"`
	Args  []any    `json:"args"`
	Stack []string `json:"stack,omitempty"`
}

// eventResponse is written for every input line.
type eventResponse struct {
	Allowed  bool   `json:"allowed"`
	ExitCode int    `json:"exit_code,omitempty"`
	Error    string `json:"error,omitempty"`
}

// exitLatch records the status the coordinator asks to end with. The serve
// loop answers the pending event first and then stops.
type exitLatch struct {
	mu   sync.Mutex
	code int
	set  bool
}

var _ ports.Terminator = (*exitLatch)(nil)

func (l *exitLatch) Exit(code int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.set {
		l.code, l.set = code, true
	}
}

func (l *exitLatch) status() (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.code, l.set
}

// runServe answers events until input ends, ctx is cancelled or the
// coordinator ends the run. It returns the process status.
func runServe(ctx context.Context, rt *runtime, opts serveOptions) (int, error) {
	modeName := opts.mode
	if modeName == "" {
		modeName = rt.settings.Mode
	}
	mode, err := coordinator.ParseMode(modeName)
	if err != nil {
		return domainerrors.ExitUsage, &usageError{err: err}
	}
	if !rt.settings.Enabled {
		mode = coordinator.ModeLogOnly
	}

	reg := opts.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics, err := policy.NewMetricsDenialHandler(reg, policy.NewLogDenialHandler(rt.logger))
	if err != nil {
		return 1, err
	}
	engine, err := rt.engine(policy.WithDenialHandler(metrics))
	if err != nil {
		return domainerrors.ExitCode(err), err
	}

	latch := &exitLatch{}
	coordOpts := []coordinator.CoordinatorOption{
		coordinator.WithMode(mode),
		coordinator.WithLogger(rt.logger),
		coordinator.WithTerminator(latch),
		coordinator.WithRecorder(recorder.New(rt.store,
			recorder.WithLogger(rt.logger),
			recorder.WithPathVars(rt.vars),
		)),
	}
	if mode == coordinator.ModeInteractive {
		p := opts.prompter
		if p == nil {
			tty, release, err := prompter.OpenTerminal()
			if err != nil {
				return 1, err
			}
			defer func() { _ = release() }()
			if !tty.IsInteractive() {
				return domainerrors.ExitUsage, &usageError{err: errors.New("review mode needs a terminal")}
			}
			p = tty
		}
		coordOpts = append(coordOpts, coordinator.WithPrompter(p))
	}
	coord, err := coordinator.New(engine, coordOpts...)
	if err != nil {
		return 1, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(func(ctx context.Context) error {
		defer cancel()
		return serveEvents(ctx, coord, latch, opts.in, opts.out)
	})
	if opts.watch {
		p.Go(func(ctx context.Context) error {
			return configstore.Watch(ctx, rt.store, coord.Reload, configstore.WithWatchLogger(rt.logger))
		})
	}
	if opts.metricsAddr != "" {
		srv := &http.Server{
			Addr:              opts.metricsAddr,
			Handler:           metricsMux(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		p.Go(func(context.Context) error {
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		p.Go(func(ctx context.Context) error {
			<-ctx.Done()
			shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			return srv.Shutdown(shutdownCtx)
		})
	}

	runErr := p.Wait()
	// The recorder reports persist failures itself.
	_ = coord.Close()
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return 1, runErr
	}
	if code, ok := latch.status(); ok {
		return code, nil
	}
	return domainerrors.ExitOK, nil
}

func metricsMux(reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		ErrorHandling:     promhttp.ContinueOnError,
	}))
	return mux
}

// serveEvents reads one JSON request per line and writes one response per
// line. Lines that do not decode are denied.
func serveEvents(ctx context.Context, coord *coordinator.Coordinator, latch *exitLatch, in io.Reader, out io.Writer) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)
	// The reader may stay blocked on input until the process ends.
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
		for scanner.Scan() {
			line := append([]byte(nil), scanner.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	enc := json.NewEncoder(out)
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("failed to read events: %w", err)
					}
				default:
				}
				return nil
			}
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			resp := handleLine(ctx, coord, line)
			code, stop := latch.status()
			if stop {
				resp.Allowed = false
				resp.ExitCode = code
			}
			if err := enc.Encode(resp); err != nil {
				return fmt.Errorf("failed to write response: %w", err)
			}
			if stop {
				return nil
			}
		}
	}
}

func handleLine(ctx context.Context, coord *coordinator.Coordinator, line []byte) eventResponse {
	var req eventRequest
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		return eventResponse{Error: fmt.Sprintf("bad request: %v", err)}
	}
	if req.Event == "" {
		return eventResponse{Error: "bad request: missing event"}
	}
	v := coord.HandleWithStack(ctx, req.Event, req.Args, req.Stack)
	return eventResponse{Allowed: v.Allowed}
}
