// Command healthprobe connects to an MCP server, pings it on an interval, and
// reports a running health verdict derived from the observed latencies and
// failures.
//
// Usage:
//
//	healthprobe -config probe.toml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MegaGrindStone/mcpconn"
)

func main() {
	configPath := flag.String("config", "probe.toml", "path to probe config")
	flag.Parse()

	cfg, err := loadProbeConfig(*configPath)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}

	var transport mcpconn.ClientTransport
	switch cfg.Transport {
	case "sse":
		transport = mcpconn.NewSSEClient(cfg.URL, nil)
	case "websocket":
		transport = mcpconn.NewWSClient(cfg.URL)
	}

	var options []mcpconn.ClientOption
	if cfg.ProtocolVersion != "" {
		options = append(options, mcpconn.WithProtocolVersion(cfg.ProtocolVersion))
	}

	cli := mcpconn.NewClient(mcpconn.Info{Name: "healthprobe", Version: "0.1.0"},
		transport, options...)

	probe := &prober{
		cli: cli,
		quality: mcpconn.NewConnectionQuality(
			mcpconn.WithHealthySuccessRate(cfg.HealthyRate)),
		slowThreshold: cfg.SlowThreshold,
		lastRate:      100.0,
	}

	disconnected := make(chan mcpconn.DisconnectedInfo, 1)
	cli.OnConnected(func(info mcpconn.ConnectedInfo) {
		fmt.Printf("Connected to %s (protocol %s)\n", info.ServerInfo.Name, info.ProtocolVersion)
	})
	cli.OnDisconnected(func(info mcpconn.DisconnectedInfo) {
		disconnected <- info
	})
	cli.OnConnectionError(func(info mcpconn.ConnectionErrorInfo) {
		fmt.Printf("Connection error (retryable=%t): %v\n", info.Retryable, info.Err)
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	err = cli.Connect(ctx)
	cancel()
	if err != nil {
		log.Fatalf("Connect error: %v", err)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	probeTicker := time.NewTicker(cfg.ProbeInterval)
	defer probeTicker.Stop()
	reportTicker := time.NewTicker(cfg.ReportInterval)
	defer reportTicker.Stop()

	for {
		select {
		case <-sig:
			fmt.Println("Shutting down...")
			cli.Dispose()
			<-disconnected
			return
		case info := <-disconnected:
			if info.Graceful() {
				fmt.Println("Session closed")
				return
			}
			log.Fatalf("Session lost: %v", info.Err)
		case <-probeTicker.C:
			probe.runProbe()
		case <-reportTicker.C:
			probe.printReport()
		}
	}
}

// prober owns the probing state: the client, the quality aggregate it feeds,
// and the last observed rate used for the trend.
type prober struct {
	cli           *mcpconn.Client
	quality       *mcpconn.ConnectionQuality
	slowThreshold time.Duration
	lastRate      float64
}

func (p *prober) runProbe() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	err := p.cli.Ping(ctx)
	latency := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			p.quality.RecordTimeout()
			p.quality.ReportIssue(mcpconn.IssueTimeout, mcpconn.SeverityMedium,
				fmt.Sprintf("ping timed out after %s", latency.Round(time.Millisecond)))
		} else {
			p.quality.RecordError()
			p.quality.ReportIssue(mcpconn.IssueNetwork, mcpconn.SeverityHigh, err.Error())
		}
		p.reclassify()
		return
	}

	p.quality.RecordSuccess(latency)
	if latency > p.slowThreshold {
		p.quality.ReportIssue(mcpconn.IssueHighLatency, mcpconn.SeverityLow,
			fmt.Sprintf("ping took %s", latency.Round(time.Millisecond)))
	} else {
		p.quality.ResolveIssue(mcpconn.IssueHighLatency)
		p.quality.ResolveIssue(mcpconn.IssueTimeout)
		p.quality.ResolveIssue(mcpconn.IssueNetwork)
	}
	p.reclassify()
}

// reclassify maps the raw counters onto a quality level and trend.
func (p *prober) reclassify() {
	rate := p.quality.SuccessRate()
	avg := p.quality.AverageLatency()

	switch {
	case rate > p.lastRate:
		p.quality.SetTrend(mcpconn.TrendImproving)
	case rate < p.lastRate:
		p.quality.SetTrend(mcpconn.TrendDeclining)
	default:
		p.quality.SetTrend(mcpconn.TrendStable)
	}
	p.lastRate = rate

	switch {
	case rate >= 99 && avg <= p.slowThreshold/2:
		p.quality.SetLevel(mcpconn.QualityExcellent)
	case rate >= 95 && avg <= p.slowThreshold:
		p.quality.SetLevel(mcpconn.QualityGood)
	case rate >= 90:
		p.quality.SetLevel(mcpconn.QualityAverage)
	case rate >= 75:
		p.quality.SetLevel(mcpconn.QualityBelowAverage)
	default:
		p.quality.SetLevel(mcpconn.QualityPoor)
	}
}

func (p *prober) printReport() {
	snap := p.quality.Snapshot()

	verdict := "UNHEALTHY"
	if p.quality.Healthy() {
		verdict = "HEALTHY"
	}

	fmt.Printf("[%s] level=%s rate=%.1f%% avgLatency=%s successes=%d errors=%d timeouts=%d\n",
		verdict, snap.Level, snap.SuccessRate,
		snap.AverageLatency.Round(time.Millisecond),
		snap.SuccessCount, snap.ErrorCount, snap.TimeoutCount)

	if issue, ok := p.quality.HighestSeverityIssue(); ok {
		fmt.Printf("  worst issue: [%s/%s] %s (seen %d times)\n",
			issue.Type, issue.Severity, issue.Description, issue.Occurrences)
	}
}
