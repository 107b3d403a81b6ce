package core

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SystemStatus is the aggregate health view served at /status.
type SystemStatus struct {
	Database struct {
		Reachable bool  `json:"reachable"`
		Verses    int64 `json:"verses"`
		Users     int64 `json:"users"`
	} `json:"database"`
	Cache struct {
		Reachable bool `json:"reachable"`
	} `json:"cache"`
	Memory struct {
		UsedBytes  uint64 `json:"used_bytes"`
		TotalBytes uint64 `json:"total_bytes"`
	} `json:"memory"`
	UptimeSeconds int64 `json:"uptime_seconds"`
}

// CollectSystemStatus aggregates the current status, best-effort: an
// unreachable dependency is reported, never an error.
func CollectSystemStatus(ctx context.Context, db *pgxpool.Pool, cache *Cache, verses VerseRepository, startedAt time.Time) SystemStatus {
	var st SystemStatus

	if db != nil && db.Ping(ctx) == nil {
		st.Database.Reachable = true
		if verses != nil {
			if n, err := verses.Count(ctx); err == nil {
				st.Database.Verses = n
			}
		}
		var users int64
		if err := db.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&users); err == nil {
			st.Database.Users = users
		}
	}

	st.Cache.Reachable = cache.Ping(ctx) == nil

	// Memory (best-effort from /proc/meminfo)
	used, total := readMemInfo()
	st.Memory.UsedBytes = used
	st.Memory.TotalBytes = total

	if !startedAt.IsZero() {
		st.UptimeSeconds = int64(time.Since(startedAt).Seconds())
	}

	return st
}

// readMemInfo returns used and total bytes using /proc/meminfo.
// If unavailable, returns zeros.
func readMemInfo() (used, total uint64) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0
	}
	defer f.Close()
	var memTotal, memAvailable uint64
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "MemTotal:") {
			memTotal = parseKiBLine(line)
		} else if strings.HasPrefix(line, "MemAvailable:") {
			memAvailable = parseKiBLine(line)
		}
	}
	if memTotal > 0 {
		total = memTotal
		if memAvailable <= memTotal {
			used = memTotal - memAvailable
		}
		// convert KiB -> bytes
		used *= 1024
		total *= 1024
	}
	return used, total
}

func parseKiBLine(line string) uint64 {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0
	}
	v, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return 0
	}
	return v
}
