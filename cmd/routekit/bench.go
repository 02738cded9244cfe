package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"runtime"
	"runtime/metrics"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"github.com/vango-dev/routekit/internal/errors"
	"github.com/vango-dev/routekit/pkg/router"
)

// sampleEvery is how many lookups a worker runs per timed lookup.
const sampleEvery = 64

type benchConfig struct {
	Duration   time.Duration
	Workers    int
	Cache      int
	Backend    string
	Variants   int
	MissEvery  int
	JSONOutput string
}

type benchCounters struct {
	lookups atomic.Uint64
	found   atomic.Uint64
	missed  atomic.Uint64
}

// benchRequest is one synthesized lookup.
type benchRequest struct {
	method string
	path   string
}

func benchCmd(g *globals) *cobra.Command {
	cfg := benchConfig{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark lookups against the route table",
		Long: `Run concurrent lookups against the router built from the manifest.

Concrete paths are synthesized from every route: parameters get generated
values, catch-alls get a two-segment tail, and a share of requests target
paths no route matches. --cache and --backend override the manifest.

Examples:
  routekit bench --duration 10s --workers 8
  routekit bench --cache 0 --backend chi --json bench.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.Workers < 1 {
				return errors.New(errors.CodeInvalidSetting).
					WithDetail(fmt.Sprintf("--workers must be at least 1, got %d", cfg.Workers))
			}
			if cfg.Duration <= 0 {
				return errors.New(errors.CodeInvalidSetting).
					WithDetail(fmt.Sprintf("--duration must be positive, got %s", cfg.Duration))
			}
			if cfg.Cache < 0 {
				return errors.New(errors.CodeInvalidSetting).
					WithDetail(fmt.Sprintf("--cache must not be negative, got %d", cfg.Cache))
			}
			if cfg.Variants < 1 {
				cfg.Variants = 1
			}

			var opts []router.Option
			if cmd.Flags().Changed("cache") {
				opts = append(opts, router.WithMaxCacheSize(cfg.Cache))
			}
			if cmd.Flags().Changed("backend") {
				kind, err := router.ParseBackendKind(cfg.Backend)
				if err != nil {
					return errors.FromError(err, errors.CodeInvalidSetting).
						WithSuggestion("Use --backend tree or --backend chi")
				}
				opts = append(opts, router.WithBackend(kind))
			}

			_, r, err := g.loadRouter(opts...)
			if err != nil {
				return err
			}
			requests := synthesize(r.Routes(), cfg.Variants, cfg.MissEvery)
			if len(requests) == 0 {
				return errors.New(errors.CodeInvalidRoute).
					WithDetail("The manifest has no routes to benchmark")
			}

			report := runBench(cmd.Context(), r, requests, cfg)

			writeSummary(cmd.ErrOrStderr(), report)
			if cfg.JSONOutput != "" {
				return writeJSON(cmd.OutOrStdout(), cfg.JSONOutput, report)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.DurationVarP(&cfg.Duration, "duration", "d", 5*time.Second, "how long to run")
	flags.IntVarP(&cfg.Workers, "workers", "w", runtime.GOMAXPROCS(0), "concurrent lookup goroutines")
	flags.IntVar(&cfg.Cache, "cache", router.DefaultMaxCacheSize, "route cache capacity, 0 disables the cache")
	flags.StringVar(&cfg.Backend, "backend", "tree", "route table backend: tree or chi")
	flags.IntVar(&cfg.Variants, "variants", 100, "distinct values generated per parameter")
	flags.IntVar(&cfg.MissEvery, "miss-every", 10, "send an unmatched path every N requests, 0 for never")
	flags.StringVar(&cfg.JSONOutput, "json", "", "write a JSON report to this file, - for stdout")

	return cmd
}

// synthesize expands routes into concrete lookups, variants per route, with
// an unmatched path inserted every missEvery requests.
func synthesize(routes []router.Route, variants, missEvery int) []benchRequest {
	var out []benchRequest
	for v := 0; v < variants; v++ {
		for _, route := range routes {
			if missEvery > 0 && (len(out)+1)%missEvery == 0 {
				out = append(out, benchRequest{method: route.Method, path: "/__routekit_miss/" + strconv.Itoa(v)})
			}
			out = append(out, benchRequest{method: route.Method, path: concretePath(route.Pattern, v)})
		}
	}
	return out
}

// concretePath fills the wildcards of a canonical pattern.
//
// Input: "/users/:id/files/*path", 7
// Output: "/users/v7/files/a/b7"
func concretePath(pattern string, variant int) string {
	if pattern == "/" {
		return "/"
	}
	n := strconv.Itoa(variant)
	var b strings.Builder
	for _, seg := range strings.Split(strings.TrimPrefix(pattern, "/"), "/") {
		b.WriteByte('/')
		switch {
		case strings.HasPrefix(seg, ":"):
			b.WriteString("v" + n)
		case strings.HasPrefix(seg, "*"):
			b.WriteString("a/b" + n)
		default:
			b.WriteString(seg)
		}
	}
	return b.String()
}

func runBench(ctx context.Context, r *router.Router, requests []benchRequest, cfg benchConfig) benchReport {
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var counters benchCounters
	samples := make([][]time.Duration, cfg.Workers)

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	beforeMetrics := readRuntimeMetrics()

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(cfg.Workers)
	for w := 0; w < cfg.Workers; w++ {
		go func() {
			defer wg.Done()
			samples[w] = runWorker(ctx, r, requests, w*len(requests)/cfg.Workers, &counters)
		}()
	}
	wg.Wait()
	elapsed := time.Since(start)

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)
	afterMetrics := readRuntimeMetrics()

	var latencies []time.Duration
	for _, s := range samples {
		latencies = append(latencies, s...)
	}
	slices.Sort(latencies)

	return buildReport(cfg, r, len(requests), elapsed, latencies, &counters, before, after, beforeMetrics, afterMetrics)
}

// runWorker loops over requests, starting at an offset so workers do not
// walk the list in lockstep, until ctx is done.
func runWorker(ctx context.Context, r *router.Router, requests []benchRequest, offset int, counters *benchCounters) []time.Duration {
	var (
		lookups, found uint64
		samples        []time.Duration
	)
	i := offset
	for {
		select {
		case <-ctx.Done():
			counters.lookups.Add(lookups)
			counters.found.Add(found)
			counters.missed.Add(lookups - found)
			return samples
		default:
		}

		for batch := 0; batch < sampleEvery; batch++ {
			req := requests[i%len(requests)]
			i++
			if batch == 0 {
				t := time.Now()
				m := r.Find(req.method, req.path)
				samples = append(samples, time.Since(t))
				if m.Found {
					found++
				}
			} else if r.Find(req.method, req.path).Found {
				found++
			}
			lookups++
		}
	}
}

type runtimeMetricsSnapshot struct {
	cpuTotalSeconds float64
	cpuGCSeconds    float64

	heapAllocsBytes   uint64
	heapAllocsObjects uint64
}

func readRuntimeMetrics() runtimeMetricsSnapshot {
	samples := []metrics.Sample{
		{Name: "/cpu/classes/total:cpu-seconds"},
		{Name: "/cpu/classes/gc/total:cpu-seconds"},
		{Name: "/gc/heap/allocs:bytes"},
		{Name: "/gc/heap/allocs:objects"},
	}
	metrics.Read(samples)

	var out runtimeMetricsSnapshot
	for _, s := range samples {
		if s.Value.Kind() == metrics.KindBad {
			continue
		}
		switch s.Name {
		case "/cpu/classes/total:cpu-seconds":
			out.cpuTotalSeconds = s.Value.Float64()
		case "/cpu/classes/gc/total:cpu-seconds":
			out.cpuGCSeconds = s.Value.Float64()
		case "/gc/heap/allocs:bytes":
			out.heapAllocsBytes = s.Value.Uint64()
		case "/gc/heap/allocs:objects":
			out.heapAllocsObjects = s.Value.Uint64()
		}
	}
	return out
}

func cpuFraction(after, before runtimeMetricsSnapshot) float64 {
	total := after.cpuTotalSeconds - before.cpuTotalSeconds
	if total <= 0 {
		return 0
	}
	gc := after.cpuGCSeconds - before.cpuGCSeconds
	if gc < 0 {
		return 0
	}
	return gc / total
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func avgPause(after, before runtime.MemStats) time.Duration {
	gcCount := after.NumGC - before.NumGC
	if gcCount == 0 {
		return 0
	}
	return time.Duration((after.PauseTotalNs - before.PauseTotalNs) / uint64(gcCount))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

type benchReport struct {
	Version    string         `json:"version"`
	Run        runInfo        `json:"run"`
	Workload   workloadInfo   `json:"workload"`
	LatencyNS  latencyInfo    `json:"latency_ns"`
	Throughput throughputInfo `json:"throughput"`
	Cache      cacheInfo      `json:"cache"`
	GC         gcInfo         `json:"gc"`
}

type runInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCount  int    `json:"cpu_count"`
	GitCommit string `json:"git_commit,omitempty"`
}

type workloadInfo struct {
	Backend       string `json:"backend"`
	Routes        int    `json:"routes"`
	DistinctPaths int    `json:"distinct_paths"`
	Workers       int    `json:"workers"`
	DurationMS    int64  `json:"duration_ms"`
	CacheCapacity int    `json:"cache_capacity"`
	MissEvery     int    `json:"miss_every"`
}

type latencyInfo struct {
	Samples int   `json:"samples"`
	Min     int64 `json:"min"`
	P50     int64 `json:"p50"`
	P95     int64 `json:"p95"`
	P99     int64 `json:"p99"`
	Max     int64 `json:"max"`
}

type throughputInfo struct {
	LookupsTotal     uint64  `json:"lookups_total"`
	Found            uint64  `json:"found"`
	NotFound         uint64  `json:"not_found"`
	LookupsPerSec    float64 `json:"lookups_per_sec"`
	LookupsPerSecWkr float64 `json:"lookups_per_sec_per_worker"`
	NSPerOp          float64 `json:"ns_per_op"`
}

type cacheInfo struct {
	Size      int     `json:"size"`
	Capacity  int     `json:"capacity"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	HitRatio  float64 `json:"hit_ratio"`
}

type gcInfo struct {
	AllocMB       float64 `json:"alloc_mb"`
	HeapLiveMB    float64 `json:"heap_live_mb"`
	NumGC         uint32  `json:"num_gc"`
	PauseTotalMS  float64 `json:"pause_total_ms"`
	PauseAvgMS    float64 `json:"pause_avg_ms"`
	GCCPUFraction float64 `json:"gc_cpu_fraction"`
	AllocsObjects uint64  `json:"allocs_objects"`
	AllocsPerOp   float64 `json:"allocs_per_op"`
}

func buildReport(
	cfg benchConfig,
	r *router.Router,
	distinct int,
	elapsed time.Duration,
	latencies []time.Duration,
	counters *benchCounters,
	before runtime.MemStats,
	after runtime.MemStats,
	beforeMetrics runtimeMetricsSnapshot,
	afterMetrics runtimeMetricsSnapshot,
) benchReport {
	lookups := counters.lookups.Load()

	elapsedSeconds := math.Max(0.001, elapsed.Seconds())
	perSec := float64(lookups) / elapsedSeconds

	latency := latencyInfo{Samples: len(latencies)}
	if len(latencies) > 0 {
		latency.Min = latencies[0].Nanoseconds()
		latency.P50 = percentile(latencies, 0.50).Nanoseconds()
		latency.P95 = percentile(latencies, 0.95).Nanoseconds()
		latency.P99 = percentile(latencies, 0.99).Nanoseconds()
		latency.Max = latencies[len(latencies)-1].Nanoseconds()
	}

	nsPerOp := 0.0
	allocsPerOp := 0.0
	allocs := afterMetrics.heapAllocsObjects - beforeMetrics.heapAllocsObjects
	if lookups > 0 {
		nsPerOp = float64(elapsed.Nanoseconds()*int64(cfg.Workers)) / float64(lookups)
		allocsPerOp = float64(allocs) / float64(lookups)
	}

	stats := r.CacheStats()

	return benchReport{
		Version: "1",
		Run: runInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
			GitCommit: gitCommit(),
		},
		Workload: workloadInfo{
			Backend:       r.Backend().String(),
			Routes:        r.Len(),
			DistinctPaths: distinct,
			Workers:       cfg.Workers,
			DurationMS:    cfg.Duration.Milliseconds(),
			CacheCapacity: stats.Capacity,
			MissEvery:     cfg.MissEvery,
		},
		LatencyNS: latency,
		Throughput: throughputInfo{
			LookupsTotal:     lookups,
			Found:            counters.found.Load(),
			NotFound:         counters.missed.Load(),
			LookupsPerSec:    perSec,
			LookupsPerSecWkr: perSec / float64(cfg.Workers),
			NSPerOp:          nsPerOp,
		},
		Cache: cacheInfo{
			Size:      stats.Size,
			Capacity:  stats.Capacity,
			Hits:      stats.Hits,
			Misses:    stats.Misses,
			Evictions: stats.Evictions,
			HitRatio:  stats.HitRatio(),
		},
		GC: gcInfo{
			AllocMB:       float64(after.TotalAlloc-before.TotalAlloc) / (1024 * 1024),
			HeapLiveMB:    float64(after.HeapAlloc) / (1024 * 1024),
			NumGC:         after.NumGC - before.NumGC,
			PauseTotalMS:  ms(time.Duration(after.PauseTotalNs - before.PauseTotalNs)),
			PauseAvgMS:    ms(avgPause(after, before)),
			GCCPUFraction: cpuFraction(afterMetrics, beforeMetrics),
			AllocsObjects: allocs,
			AllocsPerOp:   allocsPerOp,
		},
	}
}

func writeSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== routekit lookup benchmark ===")
	fmt.Fprintf(w, "Backend: %s\n", report.Workload.Backend)
	fmt.Fprintf(w, "Routes: %d (%d distinct paths)\n", report.Workload.Routes, report.Workload.DistinctPaths)
	fmt.Fprintf(w, "Workers: %d\n", report.Workload.Workers)
	fmt.Fprintf(w, "Duration: %s\n", time.Duration(report.Workload.DurationMS)*time.Millisecond)
	if report.Workload.CacheCapacity > 0 {
		fmt.Fprintf(w, "Cache capacity: %d\n", report.Workload.CacheCapacity)
	} else {
		fmt.Fprintln(w, "Cache: disabled")
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total lookups: %d (%d found, %d not found)\n",
		report.Throughput.LookupsTotal, report.Throughput.Found, report.Throughput.NotFound)
	fmt.Fprintf(w, "Throughput: %.0f lookups/s (%.0f per worker)\n",
		report.Throughput.LookupsPerSec, report.Throughput.LookupsPerSecWkr)
	fmt.Fprintf(w, "Cost: %.1f ns/op, %.2f allocs/op\n", report.Throughput.NSPerOp, report.GC.AllocsPerOp)
	fmt.Fprintln(w)

	if report.LatencyNS.Samples == 0 {
		fmt.Fprintln(w, "No latency samples recorded.")
	} else {
		fmt.Fprintf(w, "Lookup latency (%d samples):\n", report.LatencyNS.Samples)
		fmt.Fprintf(w, "  min: %d ns\n", report.LatencyNS.Min)
		fmt.Fprintf(w, "  p50: %d ns\n", report.LatencyNS.P50)
		fmt.Fprintf(w, "  p95: %d ns\n", report.LatencyNS.P95)
		fmt.Fprintf(w, "  p99: %d ns\n", report.LatencyNS.P99)
		fmt.Fprintf(w, "  max: %d ns\n", report.LatencyNS.Max)
	}
	fmt.Fprintln(w)

	if report.Cache.Capacity > 0 {
		fmt.Fprintln(w, "Route cache:")
		fmt.Fprintf(w, "  size:      %d / %d\n", report.Cache.Size, report.Cache.Capacity)
		fmt.Fprintf(w, "  hits:      %d\n", report.Cache.Hits)
		fmt.Fprintf(w, "  misses:    %d\n", report.Cache.Misses)
		fmt.Fprintf(w, "  evictions: %d\n", report.Cache.Evictions)
		fmt.Fprintf(w, "  hit ratio: %.2f%%\n", report.Cache.HitRatio*100)
		fmt.Fprintln(w)
	}

	fmt.Fprintln(w, "Go runtime / GC (process-wide):")
	fmt.Fprintf(w, "  alloc:     %.2f MB\n", report.GC.AllocMB)
	fmt.Fprintf(w, "  heap_live: %.2f MB\n", report.GC.HeapLiveMB)
	fmt.Fprintf(w, "  num_gc:    %d\n", report.GC.NumGC)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (total)\n", report.GC.PauseTotalMS)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (avg)\n", report.GC.PauseAvgMS)
	fmt.Fprintf(w, "  gc_cpu:    %.2f%%\n", report.GC.GCCPUFraction*100)
}

// writeJSON writes report to path, or to stdout when path is "-".
func writeJSON(stdout io.Writer, path string, report benchReport) error {
	out := stdout
	if path != "-" {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func gitCommit() string {
	if val := strings.TrimSpace(os.Getenv("ROUTEKIT_GIT_COMMIT")); val != "" {
		return val
	}
	if val := strings.TrimSpace(os.Getenv("GIT_COMMIT")); val != "" {
		return val
	}
	cmd := exec.Command("git", "rev-parse", "HEAD")
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
