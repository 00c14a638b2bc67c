package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// NewCollector creates a new metrics collector with default latency buckets
func NewCollector() *Collector {
	return NewCollectorWithBuckets(DefaultLatencyBuckets)
}

// NewCollectorWithBuckets creates a new metrics collector with custom histogram buckets
func NewCollectorWithBuckets(buckets []float64) *Collector {
	return &Collector{
		requestCounter:    make(map[string]int64),
		requestHistogram:  make(map[string][]float64),
		orderLatencyHist:  make(map[string][]float64),
		orderStatusCount:  make(map[string]int64),
		wsConnectionCount: make(map[string]int64),
		histogramBuckets:  buckets,
		startTime:         time.Now(),
	}
}

// RecordHTTPRequest increments the HTTP request counter
func (c *Collector) RecordHTTPRequest(method, path string, status int) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.requestCounter[buildKey(method, path, strconv.Itoa(status))]++
}

// RecordHTTPDuration records HTTP request duration
func (c *Collector) RecordHTTPDuration(method, endpoint string, duration float64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	key := buildKey(method, endpoint)
	c.requestHistogram[key] = append(c.requestHistogram[key], duration)
}

// RecordOrderLatency records the round-trip of one order operation
func (c *Collector) RecordOrderLatency(exchange, operation string, latency float64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	key := buildKey(exchange, operation)
	c.orderLatencyHist[key] = append(c.orderLatencyHist[key], latency)
}

// RecordOrderStatus increments order status counter
func (c *Collector) RecordOrderStatus(exchange, status string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.orderStatusCount[buildKey(exchange, status)]++
}

// RecordWebSocketConnection counts mids feed state changes
func (c *Collector) RecordWebSocketConnection(state string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.wsConnectionCount[state]++
}

// GetSnapshot returns a point-in-time view of all metrics
func (c *Collector) GetSnapshot() MetricSnapshot {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	var counters []CounterEntry
	var histograms []HistogramEntry

	for key, count := range c.requestCounter {
		parts := parseKey(key, 3)
		counters = append(counters, CounterEntry{
			Name:   "http_requests_total",
			Value:  count,
			Labels: map[string]string{"method": parts[0], "path": parts[1], "status": parts[2]},
		})
	}

	for key, durations := range c.requestHistogram {
		parts := parseKey(key, 2)
		for _, duration := range durations {
			histograms = append(histograms, HistogramEntry{
				Name:   "http_request_duration_seconds",
				Value:  duration,
				Labels: map[string]string{"method": parts[0], "endpoint": parts[1]},
			})
		}
	}

	for key, latencies := range c.orderLatencyHist {
		parts := parseKey(key, 2)
		for _, latency := range latencies {
			histograms = append(histograms, HistogramEntry{
				Name:   "order_latency_seconds",
				Value:  latency,
				Labels: map[string]string{"exchange": parts[0], "operation": parts[1]},
			})
		}
	}

	for key, count := range c.orderStatusCount {
		parts := parseKey(key, 2)
		counters = append(counters, CounterEntry{
			Name:   "order_status_total",
			Value:  count,
			Labels: map[string]string{"exchange": parts[0], "status": parts[1]},
		})
	}

	for state, count := range c.wsConnectionCount {
		counters = append(counters, CounterEntry{
			Name:   "websocket_connections_total",
			Value:  count,
			Labels: map[string]string{"state": state},
		})
	}

	return MetricSnapshot{
		Counters:   counters,
		Histograms: histograms,
		Timestamp:  time.Now(),
	}
}

// Reset clears all metrics
func (c *Collector) Reset() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.requestCounter = make(map[string]int64)
	c.requestHistogram = make(map[string][]float64)
	c.orderLatencyHist = make(map[string][]float64)
	c.orderStatusCount = make(map[string]int64)
	c.wsConnectionCount = make(map[string]int64)
	c.startTime = time.Now()
}

// Collect returns Prometheus-formatted metrics
func (c *Collector) Collect() (string, error) {
	snapshot := c.GetSnapshot()
	ts := snapshot.Timestamp.Unix()

	c.mutex.RLock()
	uptime := time.Since(c.startTime).Seconds()
	c.mutex.RUnlock()

	var lines []string
	lines = append(lines,
		"# HELP hlexec_uptime_seconds Time since the server started",
		"# TYPE hlexec_uptime_seconds counter",
		fmt.Sprintf("hlexec_uptime_seconds %f %d", uptime, ts),
		"",
	)

	counterGroups := make(map[string][]CounterEntry)
	for _, counter := range snapshot.Counters {
		counterGroups[counter.Name] = append(counterGroups[counter.Name], counter)
	}

	for _, metricName := range sortedNames(counterGroups) {
		lines = append(lines,
			fmt.Sprintf("# HELP %s %s", metricName, getCounterHelp(metricName)),
			fmt.Sprintf("# TYPE %s counter", metricName),
		)

		var values []string
		for _, counter := range counterGroups[metricName] {
			values = append(values, fmt.Sprintf("%s%s %d %d", metricName, formatLabels(counter.Labels), counter.Value, ts))
		}
		sort.Strings(values)
		lines = append(lines, values...)
		lines = append(lines, "")
	}

	histogramGroups := make(map[string][]HistogramEntry)
	for _, histogram := range snapshot.Histograms {
		histogramGroups[histogram.Name] = append(histogramGroups[histogram.Name], histogram)
	}

	for _, metricName := range sortedNames(histogramGroups) {
		lines = append(lines,
			fmt.Sprintf("# HELP %s %s", metricName, getHistogramHelp(metricName)),
			fmt.Sprintf("# TYPE %s histogram", metricName),
		)

		// Group histograms by labels to create buckets
		labelGroups := make(map[string][]float64)
		for _, hist := range histogramGroups[metricName] {
			labelKey := formatLabels(hist.Labels)
			labelGroups[labelKey] = append(labelGroups[labelKey], hist.Value)
		}

		for _, labelKey := range sortedNames(labelGroups) {
			values := labelGroups[labelKey]
			bucketCounts := c.calculateBucketCounts(values)

			for i, bucketLimit := range c.histogramBuckets {
				lines = append(lines, fmt.Sprintf("%s_bucket%s %d %d",
					metricName, addBucketLabel(labelKey, bucketLimit), bucketCounts[i], ts))
			}
			lines = append(lines, fmt.Sprintf("%s_bucket%s %d %d",
				metricName, addBucketLabel(labelKey, "+Inf"), len(values), ts))

			sum := 0.0
			for _, value := range values {
				sum += value
			}
			lines = append(lines,
				fmt.Sprintf("%s_sum%s %f %d", metricName, labelKey, sum, ts),
				fmt.Sprintf("%s_count%s %d %d", metricName, labelKey, len(values), ts),
			)
		}
		lines = append(lines, "")
	}

	return strings.Join(lines, "\n"), nil
}

func buildKey(parts ...string) string {
	return strings.Join(parts, "\x1f")
}

// parseKey always returns n parts so label lookups cannot go out of range
func parseKey(key string, n int) []string {
	parts := strings.SplitN(key, "\x1f", n)
	for len(parts) < n {
		parts = append(parts, "")
	}
	return parts
}

func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func getCounterHelp(metricName string) string {
	switch metricName {
	case "http_requests_total":
		return "Total number of HTTP requests"
	case "order_status_total":
		return "Total number of orders by outcome"
	case "websocket_connections_total":
		return "Total number of mids feed state changes"
	default:
		return "Counter metric"
	}
}

func getHistogramHelp(metricName string) string {
	switch metricName {
	case "http_request_duration_seconds":
		return "HTTP request duration in seconds"
	case "order_latency_seconds":
		return "Exchange round-trip latency of order operations in seconds"
	default:
		return "Histogram metric"
	}
}

func formatLabels(labels map[string]string) string {
	if len(labels) == 0 {
		return ""
	}

	pairs := make([]string, 0, len(labels))
	for _, key := range sortedNames(labels) {
		pairs = append(pairs, fmt.Sprintf(`%s="%s"`, key, labels[key]))
	}
	return "{" + strings.Join(pairs, ",") + "}"
}

func addBucketLabel(existingLabels string, bucketLimit any) string {
	bucketLimitStr := fmt.Sprintf("%v", bucketLimit)

	if existingLabels == "" {
		return fmt.Sprintf(`{le="%s"}`, bucketLimitStr)
	}

	trimmed := strings.TrimSuffix(existingLabels, "}")
	return fmt.Sprintf(`%s,le="%s"}`, trimmed, bucketLimitStr)
}

// calculateBucketCounts returns cumulative counts per bucket
func (c *Collector) calculateBucketCounts(values []float64) []int {
	bucketCounts := make([]int, len(c.histogramBuckets))

	for _, value := range values {
		for i, bucketLimit := range c.histogramBuckets {
			if value <= bucketLimit {
				bucketCounts[i]++
				break
			}
		}
	}

	for i := 1; i < len(bucketCounts); i++ {
		bucketCounts[i] += bucketCounts[i-1]
	}

	return bucketCounts
}
