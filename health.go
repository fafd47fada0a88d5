package mcpconn

import (
	"sync"
	"time"
)

// QualityLevel is an ordered classification of recent connection performance.
type QualityLevel int

// Quality levels, ordered from worst to best. QualityUnknown sorts below
// every real measurement.
const (
	QualityUnknown QualityLevel = iota
	QualityPoor
	QualityBelowAverage
	QualityAverage
	QualityGood
	QualityExcellent
)

// String returns a string representation of the quality level.
func (q QualityLevel) String() string {
	switch q {
	case QualityPoor:
		return "Poor"
	case QualityBelowAverage:
		return "BelowAverage"
	case QualityAverage:
		return "Average"
	case QualityGood:
		return "Good"
	case QualityExcellent:
		return "Excellent"
	default:
		return "Unknown"
	}
}

// HealthTrend is an ordered classification of the recent direction of
// connection performance.
type HealthTrend int

// Health trends, ordered from worst to best.
const (
	TrendDeteriorating HealthTrend = iota
	TrendDeclining
	TrendStable
	TrendImproving
	TrendOptimizing
)

// String returns a string representation of the trend.
func (t HealthTrend) String() string {
	switch t {
	case TrendDeteriorating:
		return "Deteriorating"
	case TrendDeclining:
		return "Declining"
	case TrendImproving:
		return "Improving"
	case TrendOptimizing:
		return "Optimizing"
	default:
		return "Stable"
	}
}

// IssueType classifies a condition degrading connection quality.
type IssueType string

// Known issue classifications.
const (
	IssueTimeout            IssueType = "timeout"
	IssueNetwork            IssueType = "network"
	IssueAuth               IssueType = "auth"
	IssueServerError        IssueType = "server-error"
	IssueProtocolError      IssueType = "protocol-error"
	IssueResourceExhaustion IssueType = "resource-exhaustion"
	IssueConfig             IssueType = "config"
	IssueRateLimit          IssueType = "rate-limit"
	IssueSerialization      IssueType = "serialization"
	IssueHighLatency        IssueType = "high-latency"
)

// IssueSeverity ranks how much an issue degrades the connection.
type IssueSeverity int

// Issue severities, ordered from least to most severe.
const (
	SeverityInfo IssueSeverity = iota
	SeverityLow
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// String returns a string representation of the severity.
func (s IssueSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "Info"
	case SeverityLow:
		return "Low"
	case SeverityMedium:
		return "Medium"
	case SeverityHigh:
		return "High"
	case SeverityCritical:
		return "Critical"
	default:
		return "Unknown"
	}
}

// HealthIssue is a deduplicated, severity-ranked condition degrading
// connection quality. Repeated reports of the same type increment Occurrences
// on the existing entry instead of creating a duplicate.
type HealthIssue struct {
	Type          IssueType
	Severity      IssueSeverity
	Description   string
	FirstDetected time.Time
	LastDetected  time.Time
	Occurrences   int
}

// QualityMetrics is an immutable snapshot of a ConnectionQuality aggregate.
type QualityMetrics struct {
	Level          QualityLevel
	Trend          HealthTrend
	SuccessCount   int64
	ErrorCount     int64
	TimeoutCount   int64
	SuccessRate    float64
	AverageLatency time.Duration
	ActiveIssues   []HealthIssue
	LastUpdated    time.Time
}

const defaultHealthySuccessRate = 90.0

// ConnectionQuality aggregates connection-quality measurements supplied by an
// instrumentation layer. The lifecycle core never feeds it; callers record
// operation outcomes and report issues as they see them, and read back a
// derived health verdict.
//
// All methods are safe for concurrent use.
type ConnectionQuality struct {
	mu sync.Mutex

	level QualityLevel
	trend HealthTrend

	successCount int64
	errorCount   int64
	timeoutCount int64
	totalLatency time.Duration
	samples      int64

	issues map[IssueType]*HealthIssue

	healthySuccessRate float64
	lastUpdated        time.Time
}

// QualityOption configures a ConnectionQuality.
type QualityOption func(*ConnectionQuality)

// WithHealthySuccessRate sets the minimum success rate, in percent, required
// for Healthy to return true. The default is 90.
func WithHealthySuccessRate(rate float64) QualityOption {
	return func(q *ConnectionQuality) {
		q.healthySuccessRate = rate
	}
}

// NewConnectionQuality creates an empty quality aggregate. With no recorded
// samples the success rate is defined as 100 and the level is QualityUnknown.
func NewConnectionQuality(options ...QualityOption) *ConnectionQuality {
	q := &ConnectionQuality{
		trend:              TrendStable,
		issues:             make(map[IssueType]*HealthIssue),
		healthySuccessRate: defaultHealthySuccessRate,
	}
	for _, opt := range options {
		opt(q)
	}
	return q
}

// RecordSuccess records one successful operation and its observed latency.
func (q *ConnectionQuality) RecordSuccess(latency time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.successCount++
	q.totalLatency += latency
	q.samples++
	q.lastUpdated = time.Now()
}

// RecordError records one failed operation.
func (q *ConnectionQuality) RecordError() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.errorCount++
	q.lastUpdated = time.Now()
}

// RecordTimeout records one timed-out operation. A timeout also counts as an
// error, so it lowers the success rate; the timeout counter stays separately
// visible in snapshots.
func (q *ConnectionQuality) RecordTimeout() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.timeoutCount++
	q.errorCount++
	q.lastUpdated = time.Now()
}

// ReportIssue records a detection of the given issue type. A repeated
// detection increments the occurrence count of the existing entry and renews
// its detection time; severity and description are updated so the entry
// reflects the most recent observation.
func (q *ConnectionQuality) ReportIssue(typ IssueType, severity IssueSeverity, description string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	if issue, ok := q.issues[typ]; ok {
		issue.Occurrences++
		issue.LastDetected = now
		issue.Severity = severity
		issue.Description = description
	} else {
		q.issues[typ] = &HealthIssue{
			Type:          typ,
			Severity:      severity,
			Description:   description,
			FirstDetected: now,
			LastDetected:  now,
			Occurrences:   1,
		}
	}
	q.lastUpdated = now
}

// ResolveIssue clears an active issue of the given type. Resolving an
// unknown type is a no-op.
func (q *ConnectionQuality) ResolveIssue(typ IssueType) {
	q.mu.Lock()
	defer q.mu.Unlock()

	delete(q.issues, typ)
	q.lastUpdated = time.Now()
}

// SetLevel sets the current quality level.
func (q *ConnectionQuality) SetLevel(level QualityLevel) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.level = level
	q.lastUpdated = time.Now()
}

// SetTrend sets the current quality trend.
func (q *ConnectionQuality) SetTrend(trend HealthTrend) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.trend = trend
	q.lastUpdated = time.Now()
}

// SuccessRate returns the percentage of successful operations. With no
// successes and no errors recorded it is defined as 100.
func (q *ConnectionQuality) SuccessRate() float64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.successRateLocked()
}

func (q *ConnectionQuality) successRateLocked() float64 {
	total := q.successCount + q.errorCount
	if total == 0 {
		return 100.0
	}
	return float64(q.successCount) / float64(total) * 100.0
}

// AverageLatency returns the mean latency over all recorded successes.
func (q *ConnectionQuality) AverageLatency() time.Duration {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.averageLatencyLocked()
}

func (q *ConnectionQuality) averageLatencyLocked() time.Duration {
	if q.samples == 0 {
		return 0
	}
	return q.totalLatency / time.Duration(q.samples)
}

// Healthy reports the derived health verdict: the quality level is at least
// QualityAverage, the success rate meets the configured threshold, and no
// active issue has severity SeverityHigh or above.
func (q *ConnectionQuality) Healthy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.level < QualityAverage {
		return false
	}
	if q.successRateLocked() < q.healthySuccessRate {
		return false
	}
	for _, issue := range q.issues {
		if issue.Severity >= SeverityHigh {
			return false
		}
	}
	return true
}

// HighestSeverityIssue returns the active issue with the highest severity.
// Ties are broken by the most recent detection. The second return value is
// false when no issues are active.
func (q *ConnectionQuality) HighestSeverityIssue() (HealthIssue, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var best *HealthIssue
	for _, issue := range q.issues {
		if best == nil ||
			issue.Severity > best.Severity ||
			(issue.Severity == best.Severity && issue.LastDetected.After(best.LastDetected)) {
			best = issue
		}
	}
	if best == nil {
		return HealthIssue{}, false
	}
	return *best, true
}

// Snapshot returns an immutable copy of the current metrics.
func (q *ConnectionQuality) Snapshot() QualityMetrics {
	q.mu.Lock()
	defer q.mu.Unlock()

	issues := make([]HealthIssue, 0, len(q.issues))
	for _, issue := range q.issues {
		issues = append(issues, *issue)
	}

	return QualityMetrics{
		Level:          q.level,
		Trend:          q.trend,
		SuccessCount:   q.successCount,
		ErrorCount:     q.errorCount,
		TimeoutCount:   q.timeoutCount,
		SuccessRate:    q.successRateLocked(),
		AverageLatency: q.averageLatencyLocked(),
		ActiveIssues:   issues,
		LastUpdated:    q.lastUpdated,
	}
}
