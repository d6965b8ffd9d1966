package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"runtime/debug"
	"runtime/metrics"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wayfinder-dev/wayfinder/pkg/live"
	"github.com/wayfinder-dev/wayfinder/pkg/route"
)

const (
	gib = int64(1024 * 1024 * 1024)

	// maxHopBucket caps the redirect hop histogram; anything deeper
	// lands in the top bucket.
	maxHopBucket = 15
)

type profile struct {
	Name          string
	Clients       int
	Duration      time.Duration
	RPS           float64
	RouteCount    int
	PadBytes      int
	MaxProcs      int
	MemLimitBytes int64
}

var profiles = map[string]profile{
	"fast": {
		Name:       "fast",
		Clients:    50,
		Duration:   10 * time.Second,
		RPS:        2,
		RouteCount: 20,
		PadBytes:   24,
	},
	"standard": {
		Name:       "standard",
		Clients:    200,
		Duration:   30 * time.Second,
		RPS:        5,
		RouteCount: 50,
		PadBytes:   24,
	},
	"stress": {
		Name:          "stress",
		Clients:       500,
		Duration:      60 * time.Second,
		RPS:           10,
		RouteCount:    100,
		PadBytes:      24,
		MaxProcs:      4,
		MemLimitBytes: 2 * gib,
	},
}

// config seeds a runnable benchConfig from the profile's baseline.
func (p profile) config() benchConfig {
	return benchConfig{
		Profile:       p.Name,
		Clients:       p.Clients,
		Duration:      p.Duration,
		RPS:           p.RPS,
		RouteCount:    p.RouteCount,
		PadBytes:      p.PadBytes,
		MaxProcs:      p.MaxProcs,
		MemLimitBytes: p.MemLimitBytes,
	}
}

type benchConfig struct {
	Profile         string
	Clients         int
	Duration        time.Duration
	RPS             float64
	RouteCount      int
	PadBytes        int
	MaxProcs        int
	MemLimitBytes   int64
	JSONOutput      string
	NavigateTimeout time.Duration
	BroadcastEvery  time.Duration
}

type benchCounters struct {
	navigationsSent     atomic.Uint64
	navigationsComplete atomic.Uint64
	navigateBytes       atomic.Uint64
	resolutionBytes     atomic.Uint64
	resolutionMessages  atomic.Uint64
	redirectsTotal      atomic.Uint64
}

type benchErrors struct {
	handshakeFailures     atomic.Uint64
	navigateWriteFailures atomic.Uint64
	messageDecodeFailures atomic.Uint64
	serverErrorMessages   atomic.Uint64
	responseMissing       atomic.Uint64
	totalErrors           atomic.Uint64
}

// hopCounts tracks how many navigations resolved after 0, 1, 2, ...
// redirect hops.
type hopCounts struct {
	counts [maxHopBucket + 1]atomic.Uint64
}

func (h *hopCounts) add(hops int) {
	if hops < 0 {
		hops = 0
	}
	if hops > maxHopBucket {
		hops = maxHopBucket
	}
	h.counts[hops].Add(1)
}

func (h *hopCounts) snapshot() map[string]uint64 {
	out := make(map[string]uint64, len(h.counts))
	for i := range h.counts {
		if n := h.counts[i].Load(); n > 0 {
			key := strconv.Itoa(i)
			if i == maxHopBucket {
				key += "+"
			}
			out[key] = n
		}
	}
	return out
}

func main() {
	log.SetFlags(0)

	cfg, err := parseConfig()
	if err != nil {
		log.Fatal(err)
	}
	applyRuntimeCaps(cfg)

	// Session lifecycle logging would drown the summary at bench
	// client counts.
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	liveCfg := live.DefaultConfig()
	liveCfg.CheckOrigin = func(r *http.Request) bool {
		return true
	}
	srv := live.New(newBenchTree(cfg.RouteCount), liveCfg)

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		log.Fatalf("listen: %v", err)
	}

	httpServer := &http.Server{Handler: srv.Handler()}
	go func() {
		_ = httpServer.Serve(ln)
	}()
	defer func() {
		_ = srv.Shutdown(context.Background())
		_ = httpServer.Shutdown(context.Background())
	}()

	wsURL := "ws://" + ln.Addr().String() + "/ws"
	deck := buildDeck(cfg.RouteCount)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	// One goroutine owns the sample slice; clients feed it over a
	// buffered channel so recording an RTT never blocks the send loop.
	samplesCh := make(chan time.Duration, sampleBuffer(cfg.Clients))
	var samples []time.Duration
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for rtt := range samplesCh {
			samples = append(samples, rtt)
		}
	}()

	var counters benchCounters
	var errCounts benchErrors
	var hops hopCounts

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	beforeMetrics := readRuntimeMetrics()

	if cfg.BroadcastEvery > 0 {
		go func() {
			ticker := time.NewTicker(cfg.BroadcastEvery)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					srv.Broadcast()
				}
			}
		}()
	}

	start := time.Now()
	var wg sync.WaitGroup
	for id := range cfg.Clients {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := runClient(ctx, wsURL, id, cfg, deck, &counters, &errCounts, &hops, samplesCh); err != nil {
				errCounts.totalErrors.Add(1)
			}
		}()
	}
	wg.Wait()
	close(samplesCh)
	<-collectorDone
	elapsed := time.Since(start)

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)
	afterMetrics := readRuntimeMetrics()

	// Collector goroutine has exited, so samples is safe to use here.
	slices.Sort(samples)

	report := buildReport(cfg, elapsed, samples, &counters, &errCounts, &hops, before, after, beforeMetrics, afterMetrics)

	writeSummary(os.Stderr, report)
	if err := writeJSON(cfg.JSONOutput, report); err != nil {
		log.Fatalf("write json: %v", err)
	}
}

// applyRuntimeCaps pins GOMAXPROCS and GOMEMLIMIT for profiles that
// define them, so stress runs exercise the scheduler and GC under the
// same caps every time.
func applyRuntimeCaps(cfg benchConfig) {
	if cfg.MaxProcs > 0 {
		runtime.GOMAXPROCS(cfg.MaxProcs)
	}
	if cfg.MemLimitBytes > 0 {
		debug.SetMemoryLimit(cfg.MemLimitBytes)
	}
	debug.SetGCPercent(100)
}

func sampleBuffer(clients int) int {
	return max(clients*4, 1024)
}

func parseConfig() (benchConfig, error) {
	profileFlag := flag.String("profile", "standard", "profile: fast|standard|stress")
	clientsFlag := flag.Int("clients", -1, "number of concurrent websocket clients")
	durationFlag := flag.String("duration", "", "benchmark duration, e.g. 30s")
	rpsFlag := flag.Float64("rps", -1, "target navigations/sec per client")
	routesFlag := flag.Int("routes", -1, "generated routes registered under the tree root")
	padFlag := flag.Int("pad-bytes", -1, "bytes of query padding per navigation")
	maxProcsFlag := flag.Int("max-procs", -1, "GOMAXPROCS cap (0 to leave unchanged)")
	memLimitFlag := flag.String("mem-limit", "", "GOMEMLIMIT (e.g. 2GiB)")
	broadcastFlag := flag.String("broadcast", "", "interval between server-wide refreshes, e.g. 5s (default off)")
	jsonFlag := flag.String("json", "-", "JSON output path ('-' for stdout)")
	flag.Parse()

	name := strings.ToLower(strings.TrimSpace(*profileFlag))
	if name == "" {
		name = "standard"
	}
	base, ok := profiles[name]
	if !ok {
		return benchConfig{}, fmt.Errorf("unknown profile %q", name)
	}
	cfg := base.config()

	cfg.JSONOutput = strings.TrimSpace(*jsonFlag)
	if cfg.JSONOutput == "" {
		cfg.JSONOutput = "-"
	}

	// Flags override the profile: -1 / "" means "keep the profile value".
	overrideInt(&cfg.Clients, *clientsFlag)
	overrideInt(&cfg.RouteCount, *routesFlag)
	overrideInt(&cfg.PadBytes, *padFlag)
	overrideInt(&cfg.MaxProcs, *maxProcsFlag)
	if *rpsFlag != -1 {
		cfg.RPS = *rpsFlag
	}
	if err := overrideDuration(&cfg.Duration, *durationFlag, "-duration"); err != nil {
		return benchConfig{}, err
	}
	if err := overrideDuration(&cfg.BroadcastEvery, *broadcastFlag, "-broadcast"); err != nil {
		return benchConfig{}, err
	}
	if *memLimitFlag != "" {
		limit, err := parseBytes(*memLimitFlag)
		if err != nil {
			return benchConfig{}, fmt.Errorf("invalid -mem-limit: %w", err)
		}
		cfg.MemLimitBytes = limit
	}

	for _, check := range []struct {
		bad  bool
		name string
	}{
		{cfg.Clients <= 0, "-clients must be > 0"},
		{cfg.Duration <= 0, "-duration must be > 0"},
		{cfg.RPS <= 0, "-rps must be > 0"},
		{cfg.RouteCount <= 0, "-routes must be > 0"},
		{cfg.PadBytes < 0, "-pad-bytes must be >= 0"},
		{cfg.MaxProcs < 0, "-max-procs must be >= 0"},
		{cfg.MemLimitBytes < 0, "-mem-limit must be >= 0"},
		{cfg.BroadcastEvery < 0, "-broadcast must be >= 0"},
	} {
		if check.bad {
			return benchConfig{}, errors.New(check.name)
		}
	}

	cfg.NavigateTimeout = navigateTimeout(cfg.RPS)
	return cfg, nil
}

func overrideInt(dst *int, flagValue int) {
	if flagValue != -1 {
		*dst = flagValue
	}
}

func overrideDuration(dst *time.Duration, flagValue, flagName string) error {
	if flagValue == "" {
		return nil
	}
	d, err := time.ParseDuration(flagValue)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", flagName, err)
	}
	*dst = d
	return nil
}

func navigateTimeout(rps float64) time.Duration {
	if rps <= 0 {
		return 0
	}
	period := time.Duration(float64(time.Second) / rps)
	timeout := period * 10
	if timeout < 2*time.Second {
		timeout = 2 * time.Second
	}
	return timeout
}

// byteSuffixes accepts both SI and binary suffixes, case-insensitive.
var byteSuffixes = map[string]float64{
	"": 1, "b": 1,
	"kb": 1e3, "mb": 1e6, "gb": 1e9, "tb": 1e12,
	"kib": 1 << 10, "mib": 1 << 20, "gib": 1 << 30, "tib": 1 << 40,
}

func parseBytes(input string) (int64, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return 0, errors.New("empty size")
	}

	cut := len(s)
	for cut > 0 {
		c := s[cut-1]
		if (c >= '0' && c <= '9') || c == '.' {
			break
		}
		cut--
	}
	if cut == 0 {
		return 0, fmt.Errorf("invalid size %q", input)
	}

	value, err := strconv.ParseFloat(s[:cut], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", input, err)
	}
	mult, ok := byteSuffixes[strings.ToLower(strings.TrimSpace(s[cut:]))]
	if !ok {
		return 0, fmt.Errorf("unknown size suffix in %q", input)
	}
	if value < 0 {
		return 0, fmt.Errorf("invalid size %q", input)
	}
	return int64(value*mult + 0.5), nil
}

// newBenchTree builds the tree every session resolves against: a root
// with routeCount generated section leaves, a named parameter route,
// and two forwarding routes so redirect hops show up in every run.
func newBenchTree(routeCount int) *route.Tree {
	page := func(name string) route.Builder {
		return func(route.State) any { return name }
	}
	forward := func(target string) route.RedirectFunc {
		return func(route.State) route.Outcome { return route.RedirectTo(target) }
	}

	kids := make([]*route.Route, 0, routeCount+3)
	kids = append(kids,
		&route.Route{Path: "family/:fid", Name: "family", Build: page("family")},
		&route.Route{Path: "old", Redirect: forward("/family/1")},
		&route.Route{Path: "legacy", Redirect: forward("/old")},
	)
	for i := 0; i < routeCount; i++ {
		name := "s" + strconv.Itoa(i)
		kids = append(kids, &route.Route{Path: name, Build: page(name)})
	}

	return route.MustNewTree(&route.Route{
		Path:   "/",
		Name:   "home",
		Build:  page("home"),
		Routes: kids,
	})
}

// deckEntry is one location in the cycle each client walks. target is
// set on entries that resolve through a forwarding route; it names the
// final location the client waits for.
type deckEntry struct {
	path   string
	target string
}

// buildDeck spreads direct hits across the generated section routes and
// mixes in one- and two-hop redirects.
func buildDeck(routeCount int) []deckEntry {
	deck := make([]deckEntry, 0, 16)
	step := routeCount / 8
	if step < 1 {
		step = 1
	}
	for i := 0; i < routeCount && len(deck) < 8; i += step {
		deck = append(deck, deckEntry{path: "/s" + strconv.Itoa(i)})
	}
	deck = append(deck,
		deckEntry{path: "/family/1"},
		deckEntry{path: "/old", target: "/family/1"},
		deckEntry{path: "/family/2"},
		deckEntry{path: "/legacy", target: "/family/1"},
		deckEntry{path: "/family/3"},
		deckEntry{path: "/old", target: "/family/1"},
		deckEntry{path: "/"},
	)
	return deck
}

func runClient(
	ctx context.Context,
	wsURL string,
	clientID int,
	cfg benchConfig,
	deck []deckEntry,
	counters *benchCounters,
	errCounts *benchErrors,
	hops *hopCounts,
	samples chan<- time.Duration,
) error {
	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"?location=/", nil)
	if err != nil {
		errCounts.handshakeFailures.Add(1)
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	// The server resolves the entry location as soon as the session
	// opens; consume that resolution before the navigate loop starts.
	if cfg.NavigateTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(cfg.NavigateTimeout))
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		errCounts.handshakeFailures.Add(1)
		return fmt.Errorf("entry read: %w", err)
	}
	var entry live.Message
	if err := json.Unmarshal(data, &entry); err != nil {
		errCounts.handshakeFailures.Add(1)
		return fmt.Errorf("entry decode: %w", err)
	}
	if entry.Type != live.MessageResolution || entry.Final != "/" {
		errCounts.handshakeFailures.Add(1)
		return fmt.Errorf("entry: expected resolution of /, got %s %q", entry.Type, entry.Final)
	}

	period := time.Duration(float64(time.Second) / cfg.RPS)
	var seq uint64

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		seq++
		pick := deck[(int(seq)+clientID)%len(deck)]
		loc := pick.path
		if token := makeToken(clientID, seq, cfg.PadBytes); token != "" {
			loc += "?pad=" + token
		}
		want := loc
		if pick.target != "" {
			want = pick.target
		}

		start := time.Now()

		msg := &live.Message{Type: live.MessageNavigate, Location: loc}
		frame, err := msg.Encode()
		if err != nil {
			return fmt.Errorf("encode navigate: %w", err)
		}
		if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			errCounts.navigateWriteFailures.Add(1)
			return fmt.Errorf("navigate write: %w", err)
		}

		counters.navigationsSent.Add(1)
		counters.navigateBytes.Add(uint64(len(frame)))

		if cfg.NavigateTimeout > 0 {
			conn.SetReadDeadline(time.Now().Add(cfg.NavigateTimeout))
		}
		navCtx, cancel := context.WithTimeout(ctx, cfg.NavigateTimeout)
		redirects, err := waitForFinal(navCtx, conn, want, counters, errCounts)
		cancel()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) || isTimeout(err) {
				errCounts.responseMissing.Add(1)
				return fmt.Errorf("resolution for %s not observed", pick.path)
			}
			return fmt.Errorf("wait for resolution: %w", err)
		}

		counters.navigationsComplete.Add(1)
		if redirects > 0 {
			counters.redirectsTotal.Add(uint64(redirects))
		}
		hops.add(redirects)
		samples <- time.Since(start)

		// Pace to the target per-client rate, counting the request
		// itself against the period.
		if !sleepCtx(ctx, period-time.Since(start)) {
			return nil
		}
	}
}

// sleepCtx sleeps for d or until ctx is done, reporting false on
// cancellation. Non-positive durations return immediately.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// waitForFinal reads messages until a resolution for want arrives and
// returns its redirect hop count. Resolutions for other locations are
// refresh echoes of an earlier state and are skipped.
func waitForFinal(
	ctx context.Context,
	conn *websocket.Conn,
	want string,
	counters *benchCounters,
	errCounts *benchErrors,
) (int, error) {
	for {
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		default:
		}

		_, data, err := conn.ReadMessage()
		if err != nil {
			return 0, err
		}

		var msg live.Message
		if err := json.Unmarshal(data, &msg); err != nil {
			errCounts.messageDecodeFailures.Add(1)
			return 0, err
		}

		switch msg.Type {
		case live.MessageResolution:
			counters.resolutionMessages.Add(1)
			counters.resolutionBytes.Add(uint64(len(data)))
			if msg.Final == want {
				return msg.Redirects, nil
			}

		case live.MessageError:
			errCounts.serverErrorMessages.Add(1)
			return 0, fmt.Errorf("server error: %s: %s", msg.Kind, msg.Reason)

		default:
			// Nothing else is defined; skip.
		}
	}
}

func makeToken(clientID int, seq uint64, padBytes int) string {
	if padBytes <= 0 {
		return ""
	}
	seed := (uint64(clientID) << 32) ^ seq
	base := strings.ToLower(strconv.FormatUint(seed, 36))
	if len(base) >= padBytes {
		return base[len(base)-padBytes:]
	}
	pad := strings.Repeat("x", padBytes-len(base))
	return base + pad
}

func isTimeout(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// Indices into the runtime/metrics sample slice; keep in step with
// newRuntimeSamples.
const (
	sampleCPUTotal = iota
	sampleCPUGC
	sampleAllocObjects
	sampleCount
)

type runtimeMetricsSnapshot [sampleCount]metrics.Sample

func readRuntimeMetrics() runtimeMetricsSnapshot {
	snap := runtimeMetricsSnapshot{
		{Name: "/cpu/classes/total:cpu-seconds"},
		{Name: "/cpu/classes/gc/total:cpu-seconds"},
		{Name: "/gc/heap/allocs:objects"},
	}
	metrics.Read(snap[:])
	return snap
}

func (s runtimeMetricsSnapshot) cpuTotal() float64    { return s[sampleCPUTotal].Value.Float64() }
func (s runtimeMetricsSnapshot) cpuGC() float64       { return s[sampleCPUGC].Value.Float64() }
func (s runtimeMetricsSnapshot) allocObjects() uint64 { return s[sampleAllocObjects].Value.Uint64() }

// cpuFraction reports what share of the CPU time spent between the two
// snapshots went to the garbage collector.
func cpuFraction(after, before runtimeMetricsSnapshot) float64 {
	total := after.cpuTotal() - before.cpuTotal()
	gc := after.cpuGC() - before.cpuGC()
	if total <= 0 || gc < 0 {
		return 0
	}
	return gc / total
}

// percentile returns the nearest-rank percentile of an ascending-sorted
// sample slice.
func percentile(sorted []time.Duration, p float64) time.Duration {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Ceil(float64(n)*p)) - 1
	idx = min(max(idx, 0), n-1)
	return sorted[idx]
}

func avgPause(after, before runtime.MemStats) time.Duration {
	gcs := after.NumGC - before.NumGC
	if gcs == 0 {
		return 0
	}
	return time.Duration((after.PauseTotalNs - before.PauseTotalNs) / uint64(gcs))
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }

// ratio divides two counters, guarding the zero denominator.
func ratio(num, den uint64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

type benchReport struct {
	Schema     string         `json:"schema"`
	Run        runInfo        `json:"run"`
	Workload   workloadInfo   `json:"workload"`
	LatencyMS  latencyInfo    `json:"latency_ms"`
	Throughput throughputInfo `json:"throughput"`
	GC         gcInfo         `json:"gc"`
	Protocol   protocolInfo   `json:"protocol"`
	Errors     errorInfo      `json:"errors"`
}

type runInfo struct {
	Timestamp string `json:"timestamp"`
	GoVersion string `json:"go_version"`
	Platform  string `json:"platform"`
	CPUCount  int    `json:"cpu_count"`
	GitCommit string `json:"git_commit,omitempty"`
}

type workloadInfo struct {
	Profile           string  `json:"profile"`
	Clients           int     `json:"clients"`
	DurationMS        int64   `json:"duration_ms"`
	RPSPerClient      float64 `json:"rps_per_client"`
	RouteCount        int     `json:"route_count"`
	PadBytes          int     `json:"pad_bytes"`
	MaxProcs          int     `json:"max_procs"`
	MemLimitBytes     int64   `json:"mem_limit_bytes"`
	NavigateTimeoutMS int64   `json:"navigate_timeout_ms"`
	BroadcastEveryMS  int64   `json:"broadcast_every_ms"`
}

type latencyInfo struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

// summarize converts an ascending-sorted sample slice into millisecond
// percentiles. An empty slice yields the zero value.
func summarize(sorted []time.Duration) latencyInfo {
	if len(sorted) == 0 {
		return latencyInfo{}
	}
	return latencyInfo{
		Min: ms(sorted[0]),
		P50: ms(percentile(sorted, 0.50)),
		P95: ms(percentile(sorted, 0.95)),
		P99: ms(percentile(sorted, 0.99)),
		Max: ms(sorted[len(sorted)-1]),
	}
}

type throughputInfo struct {
	NavigationsTotal        uint64  `json:"navigations_total"`
	NavigationsPerSec       float64 `json:"navigations_per_sec"`
	NavigationsPerSecClient float64 `json:"navigations_per_sec_per_client"`
}

type gcInfo struct {
	AllocMB       float64 `json:"alloc_mb"`
	HeapLiveMB    float64 `json:"heap_live_mb"`
	Collections   uint32  `json:"collections"`
	PauseTotalMS  float64 `json:"pause_total_ms"`
	PauseAvgMS    float64 `json:"pause_avg_ms"`
	GCCPUFraction float64 `json:"gc_cpu_fraction"`
	AllocsObjects uint64  `json:"allocs_objects"`
}

type protocolInfo struct {
	NavigateBytesTotal     uint64            `json:"navigate_bytes_total"`
	ResolutionBytesTotal   uint64            `json:"resolution_bytes_total"`
	ResolutionMessages     uint64            `json:"resolution_messages_total"`
	RedirectsTotal         uint64            `json:"redirects_total"`
	AvgNavigateBytes       float64           `json:"avg_navigate_bytes"`
	AvgResolutionBytes     float64           `json:"avg_resolution_bytes"`
	RedirectsPerNavigation float64           `json:"redirects_per_navigation"`
	RedirectHops           map[string]uint64 `json:"redirect_hops"`
}

type errorInfo struct {
	TotalErrors           uint64 `json:"total_errors"`
	HandshakeFailures     uint64 `json:"handshake_failures"`
	NavigateWriteFailures uint64 `json:"navigate_write_failures"`
	MessageDecodeFailures uint64 `json:"message_decode_failures"`
	ServerErrorMessages   uint64 `json:"server_error_messages"`
	ResponseMissing       uint64 `json:"response_missing"`
}

func buildReport(
	cfg benchConfig,
	elapsed time.Duration,
	latencies []time.Duration,
	counters *benchCounters,
	errors *benchErrors,
	hops *hopCounts,
	before runtime.MemStats,
	after runtime.MemStats,
	beforeMetrics runtimeMetricsSnapshot,
	afterMetrics runtimeMetricsSnapshot,
) benchReport {
	navTotal := counters.navigationsComplete.Load()
	navSent := counters.navigationsSent.Load()
	resolutionMessages := counters.resolutionMessages.Load()
	redirectsTotal := counters.redirectsTotal.Load()
	navigateBytes := counters.navigateBytes.Load()
	resolutionBytes := counters.resolutionBytes.Load()

	navPerSec := float64(navTotal) / math.Max(0.001, elapsed.Seconds())

	pauseTotal := time.Duration(after.PauseTotalNs - before.PauseTotalNs)

	report := benchReport{
		Schema: "wayfinder-bench/1",
		Run: runInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			GoVersion: runtime.Version(),
			Platform:  runtime.GOOS + "/" + runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
			GitCommit: gitCommit(),
		},
		Workload: workloadInfo{
			Profile:           cfg.Profile,
			Clients:           cfg.Clients,
			DurationMS:        cfg.Duration.Milliseconds(),
			RPSPerClient:      cfg.RPS,
			RouteCount:        cfg.RouteCount,
			PadBytes:          cfg.PadBytes,
			MaxProcs:          cfg.MaxProcs,
			MemLimitBytes:     cfg.MemLimitBytes,
			NavigateTimeoutMS: cfg.NavigateTimeout.Milliseconds(),
			BroadcastEveryMS:  cfg.BroadcastEvery.Milliseconds(),
		},
		LatencyMS: summarize(latencies),
		Throughput: throughputInfo{
			NavigationsTotal:        navTotal,
			NavigationsPerSec:       navPerSec,
			NavigationsPerSecClient: navPerSec / float64(cfg.Clients),
		},
		GC: gcInfo{
			AllocMB:       float64(after.TotalAlloc-before.TotalAlloc) / (1 << 20),
			HeapLiveMB:    float64(after.HeapAlloc) / (1 << 20),
			Collections:   after.NumGC - before.NumGC,
			PauseTotalMS:  ms(pauseTotal),
			PauseAvgMS:    ms(avgPause(after, before)),
			GCCPUFraction: cpuFraction(afterMetrics, beforeMetrics),
			AllocsObjects: afterMetrics.allocObjects() - beforeMetrics.allocObjects(),
		},
		Protocol: protocolInfo{
			NavigateBytesTotal:     navigateBytes,
			ResolutionBytesTotal:   resolutionBytes,
			ResolutionMessages:     resolutionMessages,
			RedirectsTotal:         redirectsTotal,
			AvgNavigateBytes:       ratio(navigateBytes, navSent),
			AvgResolutionBytes:     ratio(resolutionBytes, resolutionMessages),
			RedirectsPerNavigation: ratio(redirectsTotal, navTotal),
			RedirectHops:           hops.snapshot(),
		},
		Errors: errorInfo{
			TotalErrors:           errors.totalErrors.Load(),
			HandshakeFailures:     errors.handshakeFailures.Load(),
			NavigateWriteFailures: errors.navigateWriteFailures.Load(),
			MessageDecodeFailures: errors.messageDecodeFailures.Load(),
			ServerErrorMessages:   errors.serverErrorMessages.Load(),
			ResponseMissing:       errors.responseMissing.Load(),
		},
	}

	return report
}

func writeSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== Wayfinder Navigation Benchmark ===")
	fmt.Fprintf(w, "Profile: %s\n", report.Workload.Profile)
	fmt.Fprintf(w, "Clients: %d\n", report.Workload.Clients)
	fmt.Fprintf(w, "Duration: %s\n", time.Duration(report.Workload.DurationMS)*time.Millisecond)
	fmt.Fprintf(w, "Target per-client rate: %.2f navigations/s\n", report.Workload.RPSPerClient)
	fmt.Fprintf(w, "Route count: %d\n", report.Workload.RouteCount)
	fmt.Fprintf(w, "Pad bytes: %d\n", report.Workload.PadBytes)
	if report.Workload.MaxProcs > 0 {
		fmt.Fprintf(w, "GOMAXPROCS cap: %d\n", report.Workload.MaxProcs)
	}
	if report.Workload.MemLimitBytes > 0 {
		fmt.Fprintf(w, "GOMEMLIMIT cap: %.2f GiB\n", float64(report.Workload.MemLimitBytes)/float64(gib))
	}
	if report.Workload.BroadcastEveryMS > 0 {
		fmt.Fprintf(w, "Broadcast every: %s\n", time.Duration(report.Workload.BroadcastEveryMS)*time.Millisecond)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Total navigations: %d\n", report.Throughput.NavigationsTotal)
	fmt.Fprintf(w, "Throughput: %.1f navigations/s (%.2f per client)\n", report.Throughput.NavigationsPerSec, report.Throughput.NavigationsPerSecClient)
	fmt.Fprintf(w, "Errors: %d\n", report.Errors.TotalErrors)
	fmt.Fprintln(w)

	if report.LatencyMS.Max == 0 {
		fmt.Fprintln(w, "No latency samples recorded.")
	} else {
		fmt.Fprintln(w, "RTT (navigate send -> resolve -> resolution receive+decode):")
		for _, row := range []struct {
			label string
			value float64
		}{
			{"min", report.LatencyMS.Min},
			{"p50", report.LatencyMS.P50},
			{"p95", report.LatencyMS.P95},
			{"p99", report.LatencyMS.P99},
			{"max", report.LatencyMS.Max},
		} {
			fmt.Fprintf(w, "  %s: %.2f ms\n", row.label, row.value)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Protocol (avg per navigation):")
	fmt.Fprintf(w, "  navigate bytes: %.1f\n", report.Protocol.AvgNavigateBytes)
	fmt.Fprintf(w, "  resolution bytes: %.1f\n", report.Protocol.AvgResolutionBytes)
	fmt.Fprintf(w, "  redirect hops: %.2f\n", report.Protocol.RedirectsPerNavigation)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Go runtime / GC (process-wide):")
	fmt.Fprintf(w, "  alloc %.2f MB, heap live %.2f MB, %d collections\n",
		report.GC.AllocMB, report.GC.HeapLiveMB, report.GC.Collections)
	fmt.Fprintf(w, "  pause %.2f ms total (%.2f ms avg), %.2f%% of CPU in GC\n",
		report.GC.PauseTotalMS, report.GC.PauseAvgMS, report.GC.GCCPUFraction*100)
}

func writeJSON(path string, report benchReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "-" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func gitCommit() string {
	for _, env := range []string{"WAYFINDER_GIT_COMMIT", "GIT_COMMIT"} {
		if val := strings.TrimSpace(os.Getenv(env)); val != "" {
			return val
		}
	}
	out, err := exec.Command("git", "rev-parse", "HEAD").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
