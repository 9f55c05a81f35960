package system

import (
	"fmt"
	"io/fs"
	"log"
	"path/filepath"
	"runtime"
	"syscall"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// InitResourceLimits raises the open file limit; extraction workers keep
// one patch file open each.
func InitResourceLimits() {
	var rLimit syscall.Rlimit
	err := syscall.Getrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Could not read the open file limit: %v", err)
		return
	}

	rLimit.Cur = 2048
	if rLimit.Cur > rLimit.Max {
		rLimit.Cur = rLimit.Max
	}

	err = syscall.Setrlimit(syscall.RLIMIT_NOFILE, &rLimit)
	if err != nil {
		log.Printf("[!] Could not raise the open file limit: %v", err)
	} else {
		fmt.Printf("[*] Open file limit raised to %d\n", rLimit.Cur)
	}
}

// DefaultWorkers is the logical CPU count, falling back to the Go runtime
// when the platform query fails.
func DefaultWorkers() int {
	n, err := cpu.Counts(true)
	if err != nil || n <= 0 {
		return runtime.NumCPU()
	}
	return n
}

// MemoryReport describes available system memory for the start-up banner.
func MemoryReport() string {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return "memory: unknown"
	}
	return fmt.Sprintf("memory: %.1fGB free of %.1fGB", gb(vm.Available), gb(vm.Total))
}

// FolderStats returns the total size in bytes and the number of regular
// files below dir.
func FolderStats(dir string) (size int64, files int, err error) {
	err = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		size += info.Size()
		files++
		return nil
	})
	return size, files, err
}

func gb(b uint64) float64 {
	return float64(b) / (1 << 30)
}
