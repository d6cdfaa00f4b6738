package logger

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type componentStat struct {
	warns  int64
	errors int64
}

var components sync.Map // map[string]*componentStat

func recordWarn(component string) {
	stat(component).addWarn()
}

func recordError(component string) {
	stat(component).addError()
}

func stat(component string) *componentStat {
	v, _ := components.LoadOrStore(component, &componentStat{})
	return v.(*componentStat)
}

func (s *componentStat) addWarn()  { atomic.AddInt64(&s.warns, 1) }
func (s *componentStat) addError() { atomic.AddInt64(&s.errors, 1) }

// StartReport begins periodic logging of runtime and per-component
// warning/error counters, publishing them to CloudWatch when configured.
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
	perComponent := map[string]map[string]int64{}
	components.Range(func(k, v any) bool {
		name := k.(string)
		cs := v.(*componentStat)
		perComponent[name] = map[string]int64{
			"warns":  atomic.LoadInt64(&cs.warns),
			"errors": atomic.LoadInt64(&cs.errors),
		}
		return true
	})

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	log.WithComponent("report").WithFields(Fields{
		"goroutines": runtime.NumGoroutine(),
		"heap_mb":    int64(memStats.HeapAlloc) / 1024 / 1024,
		"components": perComponent,
	}).Info("runtime report")

	var data []cwtypes.MetricDatum
	for name, stats := range perComponent {
		dims := []cwtypes.Dimension{{Name: aws.String("component"), Value: aws.String(name)}}
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("Warns"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: dims,
				Value:      aws.Float64(float64(stats["warns"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("Errors"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: dims,
				Value:      aws.Float64(float64(stats["errors"])),
			},
		)
	}
	publishMetrics(ctx, data)
}
