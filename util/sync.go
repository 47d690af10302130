// util/sync.go
// Copyright(c) 2022-2024 vice contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import (
	"context"
	"encoding/json"
	"log/slog"
	gomath "math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/humaa-taj/aircontrolx/log"

	"github.com/shirou/gopsutil/cpu"
)

///////////////////////////////////////////////////////////////////////////
// AtomicBool

// AtomicBool is a simple wrapper around atomic.Bool that adds support for
// JSON marshaling/unmarshaling.
type AtomicBool struct {
	atomic.Bool
}

func (a *AtomicBool) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Load())
}

func (a *AtomicBool) UnmarshalJSON(data []byte) error {
	var b bool
	err := json.Unmarshal(data, &b)
	if err == nil {
		a.Store(b)
	}
	return err
}

///////////////////////////////////////////////////////////////////////////
// LoggingMutex

var heldMutexesMutex sync.Mutex
var heldMutexes map[*LoggingMutex]interface{} = make(map[*LoggingMutex]interface{})

// LoggingMutex is a sync.Mutex that logs acquisition and release at debug
// level and complains loudly about long waits and long holds. Its
// bookkeeping fields are only touched while the mutex is held.
type LoggingMutex struct {
	sync.Mutex
	Name     string
	acq      time.Time
	acqStack []log.StackFrame
}

// LockTimeout is how long Lock waits before logging diagnostics about a
// possible deadlock; it keeps waiting afterward.
const LockTimeout = 10 * time.Second

func (l *LoggingMutex) Lock(lg *log.Logger) {
	tryTime := time.Now()
	lg.Debug("attempting to acquire mutex", slog.String("mutex", l.Name))

	if !l.Mutex.TryLock() {
		// Lock with timeout.
		locked := make(chan struct{}, 1)

		go func() {
			l.Mutex.Lock()
			locked <- struct{}{}
		}()

		select {
		case <-locked:

		case <-time.After(LockTimeout):
			heldMutexesMutex.Lock()
			lg.Error("unable to acquire mutex", slog.String("mutex", l.Name),
				slog.Duration("timeout", LockTimeout), slog.Int("held_mutexes", len(heldMutexes)))
			heldMutexesMutex.Unlock()

			var m runtime.MemStats
			runtime.ReadMemStats(&m)
			cpuUsage := 0
			if usage, err := cpu.Percent(time.Second, false); err == nil && len(usage) > 0 {
				cpuUsage = int(gomath.Round(usage[0]))
			}

			lg.Errorf("CPU: %d%% alloc: %dMB total alloc: %dMB sys mem: %dMB goroutines: %d",
				cpuUsage, m.Alloc/(1024*1024), m.TotalAlloc/(1024*1024), m.Sys/(1024*1024),
				runtime.NumGoroutine())

			<-locked
		}
	}

	heldMutexesMutex.Lock()
	heldMutexes[l] = nil
	heldMutexesMutex.Unlock()

	l.acq = time.Now()
	if lg != nil && lg.Enabled(context.Background(), slog.LevelDebug) {
		l.acqStack = log.Callstack(l.acqStack)
	}
	w := l.acq.Sub(tryTime)
	lg.Debug("acquired mutex", slog.Any("mutex", l), slog.Duration("wait", w))
	if w > time.Second {
		lg.Warn("long wait to acquire mutex", slog.Any("mutex", l), slog.Duration("wait", w))
	}
}

func (l *LoggingMutex) Unlock(lg *log.Logger) {
	heldMutexesMutex.Lock()
	// Holding this until the function returns ensures that if we end up
	// logging below, other mutexes aren't unlocked while we're trying to
	// log the held ones.
	defer heldMutexesMutex.Unlock()

	if _, ok := heldMutexes[l]; !ok {
		lg.Error("mutex not held", slog.String("mutex", l.Name))
	}
	delete(heldMutexes, l)

	if d := time.Since(l.acq); d > time.Second {
		lg.Warn("mutex held for over 1 second", slog.Any("mutex", l), slog.Duration("held", d))
	}

	l.acq = time.Time{}
	l.acqStack = l.acqStack[:0]
	l.Mutex.Unlock()

	lg.Debug("released mutex", slog.String("mutex", l.Name))
}

// LogValue must only be called while the mutex is held.
func (l *LoggingMutex) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("name", l.Name),
		slog.Time("acq", l.acq),
		slog.Duration("held", time.Since(l.acq)),
		slog.Any("acq_stack", l.acqStack))
}
