package debugapi

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessInfo - сведения о процессе для /stats
type ProcessInfo struct {
	Uptime     string `json:"uptime"`
	RSS        string `json:"rss,omitempty"`
	RSSBytes   uint64 `json:"rss_bytes,omitempty"`
	HeapAlloc  string `json:"heap_alloc"`
	HeapSys    string `json:"heap_sys"`
	NumGC      uint32 `json:"num_gc"`
	Goroutines int    `json:"goroutines"`
}

// ProcessMetrics снимает метрики текущего процесса
type ProcessMetrics struct {
	StartTime time.Time
	proc      *process.Process
}

// NewProcessMetrics создаёт сборщик. Если gopsutil не видит процесс,
// RSS просто не попадает в отчёт.
func NewProcessMetrics() *ProcessMetrics {
	pm := &ProcessMetrics{StartTime: time.Now()}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		pm.proc = proc
	}
	return pm
}

// GetUptime возвращает время работы процесса
func (pm *ProcessMetrics) GetUptime() string {
	uptime := time.Since(pm.StartTime)

	days := int(uptime.Hours()) / 24
	hours := int(uptime.Hours()) % 24
	minutes := int(uptime.Minutes()) % 60
	seconds := int(uptime.Seconds()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dд %dч %dм %dс", days, hours, minutes, seconds)
	case hours > 0:
		return fmt.Sprintf("%dч %dм %dс", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dм %dс", minutes, seconds)
	default:
		return fmt.Sprintf("%dс", seconds)
	}
}

// GetRSS возвращает резидентную память процесса в байтах
func (pm *ProcessMetrics) GetRSS() (uint64, error) {
	if pm.proc == nil {
		return 0, fmt.Errorf("process %d not available", os.Getpid())
	}
	mem, err := pm.proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return mem.RSS, nil
}

// Collect собирает ProcessInfo
func (pm *ProcessMetrics) Collect() ProcessInfo {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	info := ProcessInfo{
		Uptime:     pm.GetUptime(),
		HeapAlloc:  humanize.IBytes(m.HeapAlloc),
		HeapSys:    humanize.IBytes(m.HeapSys),
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}
	if rss, err := pm.GetRSS(); err == nil {
		info.RSSBytes = rss
		info.RSS = humanize.IBytes(rss)
	}
	return info
}
