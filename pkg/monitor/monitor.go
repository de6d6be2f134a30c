package monitor

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

var monitorCtx context.Context
var monitorCancel context.CancelFunc

// Task is one timed unit of work observed by a Monitor.
type Task struct {
	sTime   int64
	lTime   int64
	success bool
}

// Monitor keeps a sliding window of task timings for one subsystem
// (redis, mysql, discovery) and exposes avg latency / success rate.
type Monitor struct {
	name           string
	tasks          []Task
	count          int
	headindex      int
	tailindex      int
	maxLen         int
	windowdur      int64
	totalTimeCount int64
	successCount   int64
	rwmu           sync.RWMutex
	insertChan     chan *Task
}

func NewMonitor(name string, maxLen int, windowdur int64) *Monitor {
	m := &Monitor{
		name:       name,
		tasks:      make([]Task, maxLen),
		maxLen:     maxLen,
		windowdur:  windowdur,
		insertChan: make(chan *Task, maxLen),
	}
	registerMonitor(m)
	m.run()
	return m
}

func NewTask() *Task {
	return &Task{sTime: time.Now().UnixMilli()}
}

func (m *Monitor) CompleteTask(t *Task, success bool) {
	t.lTime = time.Now().UnixMilli()
	t.success = success
	select {
	case m.insertChan <- t:
	default:
		// window accounting is best effort; dropping under pressure is fine
	}
}

func (m *Monitor) GetStats() (avgTime float64, successRate float64, count int) {
	m.rwmu.RLock()
	defer m.rwmu.RUnlock()
	if m.count == 0 {
		return 0, 0, 0
	}
	avgTime = float64(m.totalTimeCount) / float64(m.count)
	successRate = float64(m.successCount) / float64(m.count)
	count = m.count
	return
}

func (m *Monitor) run() {
	go func() {
		if monitorCtx == nil {
			monitorCtx, monitorCancel = context.WithCancel(context.Background())
			zap.L().Warn("monitor: package context was not initialized; created default background context")
		}

		for {
			select {
			case <-monitorCtx.Done():
				zap.L().Info("Monitor " + m.name + " received shutdown signal, exiting")
				return
			case t := <-m.insertChan:
				m.insert(t)
			}
		}
	}()
}

func (m *Monitor) insert(t *Task) {
	m.rwmu.Lock()
	defer m.rwmu.Unlock()

	// evict entries outside the window
	now := time.Now().UnixMilli()
	for m.headindex != m.tailindex {
		old := &m.tasks[m.headindex]
		if old.lTime == 0 || now-old.lTime < m.windowdur {
			break
		}
		m.evictHead()
	}

	// buffer full: overwrite oldest
	if m.count == m.maxLen {
		m.evictHead()
	}

	m.tasks[m.tailindex] = *t
	m.tailindex = (m.tailindex + 1) % m.maxLen
	m.count++
	m.totalTimeCount += t.lTime - t.sTime
	if t.success {
		m.successCount++
	}
}

func (m *Monitor) evictHead() {
	old := &m.tasks[m.headindex]
	m.totalTimeCount -= old.lTime - old.sTime
	if old.success && m.successCount > 0 {
		m.successCount--
	}
	m.headindex = (m.headindex + 1) % m.maxLen
	if m.count > 0 {
		m.count--
	}
}

// InitMonitor sets up the package context. Stop cancels all monitor loops;
// it is part of the bootstrap cleanup path.
func InitMonitor() {
	monitorCtx, monitorCancel = context.WithCancel(context.Background())
}

func Stop() {
	if monitorCancel != nil {
		monitorCancel()
	}
}
