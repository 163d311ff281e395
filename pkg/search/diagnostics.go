package search

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Diagnostics is the injected collaborator behind guarded invariants:
// faults are logged once per key, or escalated to a panic in strict
// builds. It also keeps the picker stage histogram.
type Diagnostics struct {
	Strict bool

	log  zerolog.Logger
	seen sync.Map

	mu        sync.Mutex
	histogram [pickerStageCount]int64
}

func NewDiagnostics(log zerolog.Logger) *Diagnostics {
	return &Diagnostics{log: log}
}

func (d *Diagnostics) Faultf(key, format string, args ...any) {
	var msg = fmt.Sprintf(format, args...)
	if d.Strict {
		panic("diagnostics fault: " + key + ": " + msg)
	}
	if _, dup := d.seen.LoadOrStore(key, struct{}{}); dup {
		return
	}
	d.log.Error().Str("fault", key).Msg(msg)
}

func (d *Diagnostics) CountStage(stage int) {
	d.mu.Lock()
	d.histogram[stage]++
	d.mu.Unlock()
}

func (d *Diagnostics) StageHistogram() [pickerStageCount]int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.histogram
}

// Reset clears de-duplication and histogram state between tests.
func (d *Diagnostics) Reset() {
	d.seen = sync.Map{}
	d.mu.Lock()
	d.histogram = [pickerStageCount]int64{}
	d.mu.Unlock()
}
