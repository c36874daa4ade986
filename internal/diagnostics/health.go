package diagnostics

import (
	"os"
	"runtime"

	"github.com/dustin/go-humanize"
)

// Health is a snapshot of the client process and its ledger file.
type Health struct {
	Alloc      string
	TotalAlloc string
	Sys        string
	NumGC      uint32
	Goroutines int
	LedgerSize string
}

// GetHealth collects process memory figures and the size of the ledger at
// dbPath. A missing ledger reports as "-".
func GetHealth(dbPath string) Health {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return Health{
		Alloc:      humanize.IBytes(m.Alloc),
		TotalAlloc: humanize.IBytes(m.TotalAlloc),
		Sys:        humanize.IBytes(m.Sys),
		NumGC:      m.NumGC,
		Goroutines: runtime.NumGoroutine(),
		LedgerSize: fileSize(dbPath),
	}
}

func fileSize(path string) string {
	var size uint64
	// SQLite keeps recent writes in the -wal file until a checkpoint.
	for _, p := range []string{path, path + "-wal"} {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		size += uint64(info.Size())
	}
	if size == 0 {
		return "-"
	}
	return humanize.IBytes(size)
}
