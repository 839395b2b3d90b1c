package dispatcher

import (
	"log"
	"sync"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"

	"github.com/LeonardoBeccarini/telldus_queue/internal/model"
)

// Sink stores delivered status reports and command outcomes.
type Sink interface {
	WriteStatus(ev model.DeviceEvent)
	WriteResult(res model.CommandResultEvent)
}

// Writer incapsula WriteAPI e traccia l'ultimo errore di scrittura per /healthz e /readyz.
// A nil *Writer discards everything, so the service runs without Influx.
type Writer struct {
	api     api.WriteAPI
	mu      sync.RWMutex
	lastErr time.Time
	counts  map[string]int64
}

func NewWriter(w api.WriteAPI) *Writer {
	ww := &Writer{
		api:     w,
		lastErr: time.Now().Add(-24 * time.Hour), // di default "lontano nel tempo"
		counts:  make(map[string]int64),
	}
	go func() {
		for err := range w.Errors() {
			if err != nil {
				ww.mu.Lock()
				ww.lastErr = time.Now()
				ww.mu.Unlock()
				log.Printf("dispatcher: influx write error: %v", err)
			}
		}
	}()
	return ww
}

func (w *Writer) WriteStatus(ev model.DeviceEvent) {
	if w == nil {
		return
	}
	w.api.WritePoint(StatusToPoint(ev))
	w.mark(measurementStatus)
}

func (w *Writer) WriteResult(res model.CommandResultEvent) {
	if w == nil {
		return
	}
	w.api.WritePoint(ResultToPoint(res))
	w.mark(measurementResult)
}

// LastErrorAge ritorna da quanto tempo non si verificano errori di scrittura.
func (w *Writer) LastErrorAge() time.Duration {
	if w == nil {
		return 99999 * time.Hour
	}
	w.mu.RLock()
	t := w.lastErr
	w.mu.RUnlock()
	return time.Since(t)
}

func (w *Writer) mark(measurement string) {
	w.mu.Lock()
	w.counts[measurement]++
	w.mu.Unlock()
}

func (w *Writer) Count(measurement string) int64 {
	if w == nil {
		return 0
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.counts[measurement]
}

// Flush forces pending points out; called on shutdown.
func (w *Writer) Flush() {
	if w != nil {
		w.api.Flush()
	}
}
