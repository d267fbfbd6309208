package report

import (
	"sync"

	"forum-sync/internal/batch"
)

// Message is one recorded operator message.
type Message struct {
	Level batch.Level
	Text  string
}

// Recorder keeps messages and the latest progress in memory, for rendering after a run.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
	progress float64
}

func (r *Recorder) Progress(fraction float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = fraction
}

func (r *Recorder) Message(level batch.Level, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Level: level, Text: text})
}

// Messages returns a copy of the recorded messages in order.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

func (r *Recorder) LastProgress() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.progress
}

type multi []batch.Reporter

// Multi fans progress and messages out to every reporter.
func Multi(reporters ...batch.Reporter) batch.Reporter {
	return multi(reporters)
}

func (m multi) Progress(fraction float64) {
	for _, r := range m {
		r.Progress(fraction)
	}
}

func (m multi) Message(level batch.Level, text string) {
	for _, r := range m {
		r.Message(level, text)
	}
}

// Audit collects per-forum outcomes for the CSV report.
type Audit struct {
	mu       sync.Mutex
	outcomes []batch.Outcome
}

func (a *Audit) Record(o batch.Outcome) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.outcomes = append(a.outcomes, o)
}

func (a *Audit) Outcomes() []batch.Outcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]batch.Outcome, len(a.outcomes))
	copy(out, a.outcomes)
	return out
}
