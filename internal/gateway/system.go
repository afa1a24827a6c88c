package gateway

import (
	"bufio"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// SystemStats is the process and host snapshot reported on /health.
type SystemStats struct {
	CPULoad1    float64 `json:"cpu_load_1"`
	CPULoad5    float64 `json:"cpu_load_5"`
	CPULoad15   float64 `json:"cpu_load_15"`
	CPUCores    int     `json:"cpu_cores"`
	MemUsedMB   float64 `json:"mem_used_mb"`
	MemTotalMB  float64 `json:"mem_total_mb"`
	HeapAllocMB float64 `json:"heap_alloc_mb"`
	GCRuns      uint32  `json:"gc_runs"`
	Goroutines  int     `json:"goroutines"`
	UptimeSec   int64   `json:"uptime_sec"`
}

// ReadSystemStats collects runtime stats plus load and memory from /proc.
// The /proc fields stay zero on hosts without it.
func ReadSystemStats(start time.Time) SystemStats {
	s := SystemStats{
		CPUCores:   runtime.NumCPU(),
		Goroutines: runtime.NumGoroutine(),
		UptimeSec:  int64(time.Since(start).Seconds()),
	}

	if data, err := os.ReadFile("/proc/loadavg"); err == nil {
		fields := strings.Fields(string(data))
		if len(fields) >= 3 {
			s.CPULoad1, _ = strconv.ParseFloat(fields[0], 64)
			s.CPULoad5, _ = strconv.ParseFloat(fields[1], 64)
			s.CPULoad15, _ = strconv.ParseFloat(fields[2], 64)
		}
	}

	if f, err := os.Open("/proc/meminfo"); err == nil {
		var total, available uint64
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			fields := strings.Fields(scanner.Text())
			if len(fields) < 2 {
				continue
			}
			switch fields[0] {
			case "MemTotal:":
				total, _ = strconv.ParseUint(fields[1], 10, 64)
			case "MemAvailable:":
				available, _ = strconv.ParseUint(fields[1], 10, 64)
			}
		}
		f.Close()
		if total > 0 && available <= total {
			s.MemTotalMB = float64(total) / 1024
			s.MemUsedMB = float64(total-available) / 1024
		}
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.HeapAllocMB = float64(ms.HeapAlloc) / 1024 / 1024
	s.GCRuns = ms.NumGC
	return s
}
