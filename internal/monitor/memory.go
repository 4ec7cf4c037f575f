package monitor

import (
	"fmt"
	"os"
	"sync"

	"github.com/shirou/gopsutil/v4/process"
)

const bytesPerMB = 1024 * 1024

// Memory tracks resident memory of this process and its children (the
// browser driver and Chromium), remembering the peak.
type Memory struct {
	mu     sync.Mutex
	read   func() (uint64, error)
	peakMB float64
}

func NewMemory() *Memory {
	pid := int32(os.Getpid())
	return &Memory{read: func() (uint64, error) { return treeRSS(pid) }}
}

// Sample reads current usage in MB and updates the peak.
func (m *Memory) Sample() (float64, error) {
	rss, err := m.read()
	if err != nil {
		return 0, err
	}
	mb := float64(rss) / bytesPerMB

	m.mu.Lock()
	if mb > m.peakMB {
		m.peakMB = mb
	}
	m.mu.Unlock()
	return mb, nil
}

func (m *Memory) PeakMB() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peakMB
}

// Exceeded samples and reports whether usage is above limitMB. A zero limit
// never trips.
func (m *Memory) Exceeded(limitMB int) (bool, float64) {
	mb, err := m.Sample()
	if err != nil || limitMB <= 0 {
		return false, mb
	}
	return mb > float64(limitMB), mb
}

func treeRSS(pid int32) (uint64, error) {
	p, err := process.NewProcess(pid)
	if err != nil {
		return 0, fmt.Errorf("inspect process %d: %w", pid, err)
	}
	return sumRSS(p, 0)
}

func sumRSS(p *process.Process, depth int) (uint64, error) {
	info, err := p.MemoryInfo()
	if err != nil {
		return 0, err
	}
	total := info.RSS
	if depth > 4 {
		return total, nil
	}
	children, err := p.Children()
	if err != nil {
		// no children is reported as an error on some platforms
		return total, nil
	}
	for _, c := range children {
		if rss, err := sumRSS(c, depth+1); err == nil {
			total += rss
		}
	}
	return total, nil
}
