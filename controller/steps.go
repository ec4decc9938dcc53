package controller

// Bring-up step names. The order they run in is fixed; Requires records
// why, so the order can be checked.
const (
	StepClock     = "clock"
	StepCalendar  = "calendar"
	StepInterrupt = "interrupt"
	StepWakeup    = "wakeup"
	StepSleep     = "sleep"
	StepStart     = "start"
)

// StepInfo describes one bring-up step and the steps that must have run
// before it.
type StepInfo struct {
	Name     string
	Requires []string
}

type step struct {
	StepInfo
	run func() error
}

var bringUp = []StepInfo{
	{Name: StepClock},
	// RTC registers need RTCCLK selected and the backup domain writable.
	{Name: StepCalendar, Requires: []string{StepClock}},
	{Name: StepInterrupt},
	// The WPR unlock done while programming the calendar is still in effect.
	{Name: StepWakeup, Requires: []string{StepClock, StepCalendar}},
	{Name: StepSleep},
	// Enabling the countdown before the interrupt path or sleep mode is
	// armed loses the first wake event.
	{Name: StepStart, Requires: []string{StepCalendar, StepInterrupt, StepWakeup, StepSleep}},
}

// Steps returns the bring-up sequence in execution order.
func Steps() []StepInfo {
	out := make([]StepInfo, len(bringUp))
	for i, s := range bringUp {
		out[i] = StepInfo{Name: s.Name, Requires: append([]string(nil), s.Requires...)}
	}
	return out
}
