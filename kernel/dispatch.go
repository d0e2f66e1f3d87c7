package kernel

import "github.com/nexar-sim/modulehost/internal/trigger"

// shouldRun implements §4.7.1: a reactive event override beats a reactive
// component-watermark override beats the plain frequency timer.
func shouldRun(ms *moduleState, trig *trigger.Index) bool {
	if trig.AnyEventActive(ms.policy.WatchEvents) {
		return true
	}
	if trig.WatermarkAfter(ms.policy.WatchComponents.Members(), ms.lastRunTick) {
		return true
	}
	return timerDue(ms)
}

// timerDue reports whether accumulated_dt has crossed one period at the
// module's configured frequency, consuming exactly one period's worth and
// carrying the remainder forward rather than resetting to zero, so a
// frequency that does not evenly divide the frame rate does not drift over
// a long run.
func timerDue(ms *moduleState) bool {
	if ms.policy.FrequencyHz <= 0 {
		return false
	}
	period := 1.0 / float64(ms.policy.FrequencyHz)
	if ms.accumulatedDt*float64(ms.policy.FrequencyHz) < 1.0 {
		return false
	}
	ms.accumulatedDt -= period
	return true
}
