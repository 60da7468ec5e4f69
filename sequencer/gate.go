package sequencer

import "stepseq/debug"

// advanceSubStep moves playback by half a step and recomputes the outputs.
// Caller holds e.mu.
func (e *Engine) advanceSubStep(b *batch) {
	e.firstHalf = !e.firstHalf
	firstHalf := e.firstHalf
	gateWasOn := e.gate

	if firstHalf {
		if e.repetition >= e.steps.Repeat(e.currentStep) {
			e.advanceSequence()
			e.repetition = 0
		}

		e.skipDisabled()
		e.repetition++

		// one notification per step start, whether or not the step moved
		b.add(Event{Kind: EventStep, Step: e.currentStep})
	}

	e.setGate(b, e.gateFor(e.steps.GateMode(e.currentStep), firstHalf))

	if e.gate && firstHalf && (e.repetition == 1 || !gateWasOn) {
		e.setTrigger(b, true)
	} else if !firstHalf {
		e.setTrigger(b, false)
	}
}

// skipDisabled advances past steps with a zero repeat count. The scan is
// bounded by the sequence length: if every entry is disabled the step it
// stopped on is played once.
func (e *Engine) skipDisabled() {
	limit := e.selector.Len()
	for i := 0; e.steps.Repeat(e.currentStep) == 0; i++ {
		if i >= limit {
			debug.LogEvery(64, e.name, "no playable step in %s, holding step %d", e.selector.Mode(), e.currentStep)
			return
		}
		e.advanceSequence()
		e.repetition = 0
	}
}

// advanceSequence moves to the next entry of the working sequence. The
// caller notifies.
func (e *Engine) advanceSequence() {
	e.currentStep = e.selector.Advance()
}

// selectStep moves playback outside the tick path and notifies on change
func (e *Engine) selectStep(b *batch, step int) {
	if e.currentStep == step {
		return
	}
	e.currentStep = step
	b.add(Event{Kind: EventStep, Step: step})
}

// gateFor evaluates a gate mode against the current repetition
func (e *Engine) gateFor(mode GateMode, firstHalf bool) bool {
	switch mode {
	case GateHalfStep:
		return firstHalf && e.repetition == 1
	case GateFullStep:
		return e.repetition == 1
	case GateRepeatHalf:
		return firstHalf
	case GateRepeatFull:
		return true
	default:
		return false
	}
}

// setGate records an edge; a rising gate also raises the trigger
func (e *Engine) setGate(b *batch, on bool) {
	if e.gate == on {
		return
	}
	e.gate = on
	b.add(Event{Kind: EventGate, On: on})

	if on {
		e.setTrigger(b, true)
	}
}

func (e *Engine) setTrigger(b *batch, on bool) {
	if e.trigger == on {
		return
	}
	e.trigger = on
	b.add(Event{Kind: EventTrigger, On: on})
}

// Gate returns the current gate level
func (e *Engine) Gate() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gate
}

// Trigger returns the current trigger level
func (e *Engine) Trigger() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.trigger
}
