package profiler

import (
	"runtime"
	"time"

	"github.com/Carmen-Shannon/oxy-render/engine/logger"
	"github.com/Carmen-Shannon/oxy-render/engine/renderer"
	"go.uber.org/zap"
)

// Profiler aggregates renderer frame statistics and memory statistics over an interval and logs a
// report at info level each time the interval elapses.
type Profiler struct {
	interval time.Duration
	now      func() time.Time
	memory   bool

	frames   int
	lastTime time.Time
	sum      renderer.Stats

	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64
}

// Report is one interval of profiling. Counters are averaged per frame.
type Report struct {
	FPS      float64
	Frames   int
	Interval time.Duration

	DrawCalls        float64
	Instances        float64
	VisibleObjects   float64
	ShadowCasters    float64
	ValidLights      float64
	InstancedObjects float64
	BatchedObjects   float64

	Pipelines       int
	PipelineHitRate float64

	HeapMB      float64
	AllocRateMB float64
	NumGC       uint32
	MaxPauseUs  uint64
}

// NewProfiler creates a Profiler. The interval defaults to 1 second.
//
// Parameters:
//   - options: variadic list of ProfilerBuilderOption functions to configure the profiler
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler(options ...ProfilerBuilderOption) *Profiler {
	p := &Profiler{
		interval: time.Second,
		now:      time.Now,
		memory:   true,
	}
	for _, opt := range options {
		opt(p)
	}
	p.lastTime = p.now()
	return p
}

// Tick records one frame. When the interval has elapsed it builds and logs a report and starts a
// new interval.
//
// Parameters:
//   - stats: the statistics of the frame that just ended
//
// Returns:
//   - Report: the report of the elapsed interval, valid only when ok is true
//   - bool: true if a report was produced this tick
func (p *Profiler) Tick(stats renderer.Stats) (Report, bool) {
	p.frames++
	p.add(stats)

	now := p.now()
	elapsed := now.Sub(p.lastTime)
	if elapsed < p.interval || elapsed <= 0 {
		return Report{}, false
	}

	n := float64(p.frames)
	r := Report{
		FPS:              n / elapsed.Seconds(),
		Frames:           p.frames,
		Interval:         elapsed,
		DrawCalls:        float64(p.sum.DrawCalls) / n,
		Instances:        float64(p.sum.Instances) / n,
		VisibleObjects:   float64(p.sum.VisibleObjects) / n,
		ShadowCasters:    float64(p.sum.ShadowCasters) / n,
		ValidLights:      float64(p.sum.ValidLights) / n,
		InstancedObjects: float64(p.sum.InstancedObjects) / n,
		BatchedObjects:   float64(p.sum.BatchedObjects) / n,
		Pipelines:        stats.Pipelines,
	}
	if lookups := stats.PipelineHits + stats.PipelineMisses; lookups > 0 {
		r.PipelineHitRate = float64(stats.PipelineHits) / float64(lookups)
	}
	if p.memory {
		p.sampleMemory(&r, elapsed)
	}
	p.log(r)

	p.frames = 0
	p.sum = renderer.Stats{}
	p.lastTime = now
	return r, true
}

func (p *Profiler) add(s renderer.Stats) {
	p.sum.DrawCalls += s.DrawCalls
	p.sum.Instances += s.Instances
	p.sum.VisibleObjects += s.VisibleObjects
	p.sum.ShadowCasters += s.ShadowCasters
	p.sum.ValidLights += s.ValidLights
	p.sum.InstancedObjects += s.InstancedObjects
	p.sum.BatchedObjects += s.BatchedObjects
}

func (p *Profiler) sampleMemory(r *Report, elapsed time.Duration) {
	runtime.ReadMemStats(&p.memStats)
	r.HeapMB = float64(p.memStats.Alloc) / 1024 / 1024
	r.AllocRateMB = float64(p.memStats.TotalAlloc-p.lastTotalAlloc) / 1024 / 1024 / elapsed.Seconds()
	r.NumGC = p.memStats.NumGC

	// PauseNs is a circular buffer of the last 256 pauses
	start := p.lastGCCount
	if r.NumGC-start > 256 {
		start = r.NumGC - 256
	}
	for i := start; i < r.NumGC; i++ {
		r.MaxPauseUs = max(r.MaxPauseUs, p.memStats.PauseNs[i%256]/1000)
	}
	p.lastGCCount = r.NumGC
	p.lastTotalAlloc = p.memStats.TotalAlloc
}

func (p *Profiler) log(r Report) {
	fields := []zap.Field{
		zap.Float64("fps", r.FPS),
		zap.Float64("draw_calls", r.DrawCalls),
		zap.Float64("instances", r.Instances),
		zap.Float64("visible", r.VisibleObjects),
		zap.Float64("shadow_casters", r.ShadowCasters),
		zap.Float64("lights", r.ValidLights),
		zap.Float64("instanced", r.InstancedObjects),
		zap.Float64("batched", r.BatchedObjects),
		zap.Int("pipelines", r.Pipelines),
		zap.Float64("pipeline_hit_rate", r.PipelineHitRate),
	}
	if p.memory {
		fields = append(fields,
			zap.Float64("heap_mb", r.HeapMB),
			zap.Float64("alloc_rate_mb", r.AllocRateMB),
			zap.Uint32("gc", r.NumGC),
			zap.Uint64("max_pause_us", r.MaxPauseUs),
		)
	}
	logger.Logger().Info("profiler", fields...)
}
