package logger

import (
	"context"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	gnet "github.com/shirou/gopsutil/v3/net"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type sourceStat struct {
	fetches   int64
	softFails int64
}

var (
	warnsBank     int64
	warnsExchange int64
	warnsPool     int64
	errsBank      int64
	errsExchange  int64
	errsPool      int64
	sources       sync.Map // map[string]*sourceStat
)

func classify(component string) (*int64, *int64) {
	switch {
	case strings.Contains(component, "cbr"), strings.Contains(component, "bank"):
		return &warnsBank, &errsBank
	case strings.Contains(component, "binance"), strings.Contains(component, "exchange"):
		return &warnsExchange, &errsExchange
	case strings.Contains(component, "pool"), strings.Contains(component, "mining"):
		return &warnsPool, &errsPool
	}
	return nil, nil
}

func recordWarn(component string) {
	if w, _ := classify(component); w != nil {
		atomic.AddInt64(w, 1)
	}
}

func recordError(component string) {
	if _, e := classify(component); e != nil {
		atomic.AddInt64(e, 1)
	}
}

// RecordFetch counts one upstream request issued on behalf of the named
// source adapter.
func RecordFetch(source string) {
	v, _ := sources.LoadOrStore(source, &sourceStat{})
	atomic.AddInt64(&v.(*sourceStat).fetches, 1)
}

// RecordSoftFail counts one degraded (nil/empty) result for the named source.
func RecordSoftFail(source string) {
	v, _ := sources.LoadOrStore(source, &sourceStat{})
	atomic.AddInt64(&v.(*sourceStat).softFails, 1)
}

// StartReport begins periodic logging of runtime and per-source fetch
// statistics. The report also feeds CloudWatch when metrics are enabled.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()
	diskStats, _ := disk.Usage("/")
	netStats, _ := gnet.IOCounters(false)

	sourceData := map[string]map[string]int64{}
	sources.Range(func(k, v any) bool {
		st := v.(*sourceStat)
		sourceData[k.(string)] = map[string]int64{
			"fetches":    atomic.LoadInt64(&st.fetches),
			"soft_fails": atomic.LoadInt64(&st.softFails),
		}
		return true
	})

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	bytesSent := uint64(0)
	bytesRecv := uint64(0)
	if len(netStats) > 0 {
		bytesSent = netStats[0].BytesSent
		bytesRecv = netStats[0].BytesRecv
	}

	fields := Fields{
		"warns_bank":      atomic.LoadInt64(&warnsBank),
		"warns_exchange":  atomic.LoadInt64(&warnsExchange),
		"warns_pool":      atomic.LoadInt64(&warnsPool),
		"errors_bank":     atomic.LoadInt64(&errsBank),
		"errors_exchange": atomic.LoadInt64(&errsExchange),
		"errors_pool":     atomic.LoadInt64(&errsPool),
		"goroutines":      runtime.NumGoroutine(),
		"cpu_percent":     cpuPct,
		"memory_mb":       int64(memStats.Used) / 1024 / 1024,
		"disk_mb":         int64(diskStats.Used) / 1024 / 1024,
		"sources":         sourceData,
		"net_bytes_sent":  int64(bytesSent),
		"net_bytes_recv":  int64(bytesRecv),
	}

	log.WithComponent("report").WithFields(fields).Info("runtime report")

	data := []cwtypes.MetricDatum{
		{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		{MetricName: aws.String("WarnsBank"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&warnsBank)))},
		{MetricName: aws.String("WarnsExchange"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&warnsExchange)))},
		{MetricName: aws.String("WarnsPool"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&warnsPool)))},
		{MetricName: aws.String("NetBytesSent"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesSent))},
		{MetricName: aws.String("NetBytesRecv"), Unit: cwtypes.StandardUnitBytes, Value: aws.Float64(float64(bytesRecv))},
	}

	for name, stats := range sourceData {
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("SourceFetches"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Source"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["fetches"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("SourceSoftFails"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: []cwtypes.Dimension{{Name: aws.String("Source"), Value: aws.String(name)}},
				Value:      aws.Float64(float64(stats["soft_fails"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
