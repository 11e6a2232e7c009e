package metrics

import (
	"strings"
	"sync"
	"time"

	"mood-diary/backend/internal/infra/model/gemini"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	registerOnce           sync.Once
	diaryWrites            *prometheus.CounterVec
	modelRequests          *prometheus.CounterVec
	modelDuration          *prometheus.HistogramVec
	modelTokens            *prometheus.CounterVec
	videoLookups           *prometheus.CounterVec
	videoLookupDuration    *prometheus.HistogramVec
	socialLogins           *prometheus.CounterVec
	defaultDurationBuckets = prometheus.DefBuckets
)

const namespaceMetrics = "moodiary"

// MustRegister 注册业务指标与 Go 运行时指标，可重复调用。
func MustRegister() {
	registerOnce.Do(func() {
		diaryWrites = registerCounterVec(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespaceMetrics,
				Subsystem: "diary",
				Name:      "writes_total",
				Help:      "Diary create attempts by outcome.",
			},
			[]string{"result"},
		))
		modelRequests = registerCounterVec(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespaceMetrics,
				Subsystem: "ai",
				Name:      "requests_total",
				Help:      "Generative model calls by operation and status.",
			},
			[]string{"operation", "status"},
		))
		modelDuration = registerHistogramVec(prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespaceMetrics,
				Subsystem: "ai",
				Name:      "duration_seconds",
				Help:      "Generative model call latency by model.",
				Buckets:   defaultDurationBuckets,
			},
			[]string{"model"},
		))
		modelTokens = registerCounterVec(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespaceMetrics,
				Subsystem: "ai",
				Name:      "tokens_total",
				Help:      "Tokens consumed by generative model calls.",
			},
			[]string{"token_type"},
		))
		videoLookups = registerCounterVec(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespaceMetrics,
				Subsystem: "music",
				Name:      "video_lookups_total",
				Help:      "Video metadata lookups by status.",
			},
			[]string{"status"},
		))
		videoLookupDuration = registerHistogramVec(prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespaceMetrics,
				Subsystem: "music",
				Name:      "video_lookup_duration_seconds",
				Help:      "Video metadata lookup latency.",
				Buckets:   defaultDurationBuckets,
			},
			[]string{"status"},
		))
		socialLogins = registerCounterVec(prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespaceMetrics,
				Subsystem: "auth",
				Name:      "social_logins_total",
				Help:      "OAuth callbacks by provider and result.",
			},
			[]string{"provider", "result"},
		))

		registerRuntimeCollectors()
	})
}

// RecordDiaryWrite 记录一次写日记请求。
func RecordDiaryWrite(result string) {
	if diaryWrites == nil {
		return
	}
	diaryWrites.WithLabelValues(normalizeLabel(result, "unknown")).Inc()
}

// ObserveModelCall 记录一次模型调用的状态、耗时与 token 用量。
func ObserveModelCall(operation, status, model string, duration time.Duration, usage *gemini.UsageMetadata) {
	if modelRequests == nil || modelDuration == nil {
		return
	}
	modelRequests.WithLabelValues(normalizeLabel(operation, "unknown"), normalizeLabel(status, "unknown")).Inc()
	modelDuration.WithLabelValues(normalizeLabel(model, "unspecified")).Observe(duration.Seconds())

	if modelTokens == nil || usage == nil {
		return
	}
	if usage.PromptTokenCount > 0 {
		modelTokens.WithLabelValues("prompt").Add(float64(usage.PromptTokenCount))
	}
	if usage.CandidatesTokenCount > 0 {
		modelTokens.WithLabelValues("candidates").Add(float64(usage.CandidatesTokenCount))
	}
	if usage.TotalTokenCount > 0 {
		modelTokens.WithLabelValues("total").Add(float64(usage.TotalTokenCount))
	}
}

// ObserveVideoLookup 记录一次视频检索。
func ObserveVideoLookup(status string, duration time.Duration) {
	if videoLookups == nil || videoLookupDuration == nil {
		return
	}
	label := normalizeLabel(status, "unknown")
	videoLookups.WithLabelValues(label).Inc()
	videoLookupDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordSocialLogin 记录一次 OAuth 回调。
func RecordSocialLogin(provider, result string) {
	if socialLogins == nil {
		return
	}
	socialLogins.WithLabelValues(normalizeLabel(provider, "unknown"), normalizeLabel(result, "unknown")).Inc()
}

func normalizeLabel(value string, fallback string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return fallback
}

func registerCounterVec(vec *prometheus.CounterVec) *prometheus.CounterVec {
	if err := prometheus.Register(vec); err != nil {
		if existing := alreadyRegisteredCounterVec(err); existing != nil {
			return existing
		}
		panic(err)
	}
	return vec
}

func registerHistogramVec(vec *prometheus.HistogramVec) *prometheus.HistogramVec {
	if err := prometheus.Register(vec); err != nil {
		if existing := alreadyRegisteredHistogramVec(err); existing != nil {
			return existing
		}
		panic(err)
	}
	return vec
}

func registerRuntimeCollectors() {
	for _, c := range []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	} {
		if err := prometheus.Register(c); err != nil && !isAlreadyRegistered(err) {
			panic(err)
		}
	}
}

func alreadyRegisteredCounterVec(err error) *prometheus.CounterVec {
	if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
		if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
			return existing
		}
	}
	return nil
}

func alreadyRegisteredHistogramVec(err error) *prometheus.HistogramVec {
	if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
		if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
			return existing
		}
	}
	return nil
}

func isAlreadyRegistered(err error) bool {
	_, ok := err.(prometheus.AlreadyRegisteredError)
	return ok
}
