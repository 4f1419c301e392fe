package trigger

import (
	"time"

	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
)

// SimpleTrigger fires once, or repeatedly at a fixed interval up to a
// repeat count (RepeatForever for unbounded).
type SimpleTrigger struct {
	key    model.Key
	jobKey model.Key

	calendarName string
	priority     int
	misfire      model.MisfireInstruction
	volatile     bool
	jobData      model.JobDataMap

	startAt  time.Time
	endAt    time.Time // zero means unbounded
	interval time.Duration
	repeat   int // RepeatForever or a non-negative count

	timesTriggered int
	nextFireTime   time.Time
	hasNext        bool
	prevFireTime   time.Time
	hasPrev        bool
}

// RepeatForever marks a SimpleTrigger that never exhausts on its own.
const RepeatForever = -1

// NewSimple builds a one-shot or fixed-interval trigger. interval==0 with
// repeat==0 is a pure one-shot firing at startAt.
func NewSimple(key, jobKey model.Key, startAt time.Time, interval time.Duration, repeat int) *SimpleTrigger {
	return &SimpleTrigger{
		key:      key,
		jobKey:   jobKey,
		startAt:  startAt,
		interval: interval,
		repeat:   repeat,
		misfire:  model.MisfireSmartPolicy,
	}
}

func (t *SimpleTrigger) Key() model.Key    { return t.key }
func (t *SimpleTrigger) JobKey() model.Key { return t.jobKey }

func (t *SimpleTrigger) CalendarName() string                 { return t.calendarName }
func (t *SimpleTrigger) SetCalendarName(name string)           { t.calendarName = name }
func (t *SimpleTrigger) Priority() int                         { return t.priority }
func (t *SimpleTrigger) SetPriority(p int)                      { t.priority = p }
func (t *SimpleTrigger) MisfirePolicy() model.MisfireInstruction { return t.misfire }
func (t *SimpleTrigger) SetMisfirePolicy(m model.MisfireInstruction) { t.misfire = m }
func (t *SimpleTrigger) Volatile() bool                         { return t.volatile }
func (t *SimpleTrigger) SetVolatile(v bool)                      { t.volatile = v }
func (t *SimpleTrigger) JobDataOverlay() model.JobDataMap        { return t.jobData }
func (t *SimpleTrigger) SetJobDataOverlay(m model.JobDataMap)     { t.jobData = m }

// SetEndAt bounds repeats to before endAt; zero means unbounded.
func (t *SimpleTrigger) SetEndAt(end time.Time) { t.endAt = end }

// StartAt, Interval, Repeat, and EndAt expose the construction parameters
// a store needs to persist and later reconstruct this trigger.
func (t *SimpleTrigger) StartAt() time.Time     { return t.startAt }
func (t *SimpleTrigger) Interval() time.Duration { return t.interval }
func (t *SimpleTrigger) Repeat() int             { return t.repeat }
func (t *SimpleTrigger) EndAt() time.Time        { return t.endAt }

// TimesTriggered and SetTimesTriggered expose the fire counter for
// restoring a trigger's progress from durable storage.
func (t *SimpleTrigger) TimesTriggered() int      { return t.timesTriggered }
func (t *SimpleTrigger) SetTimesTriggered(n int)  { t.timesTriggered = n }

// SetComputedFireTimes restores the next/previous fire time fields
// directly, bypassing ComputeFirstFireTime -- used when rehydrating a
// trigger whose schedule was already advanced before a restart.
func (t *SimpleTrigger) SetComputedFireTimes(next time.Time, hasNext bool, prev time.Time, hasPrev bool) {
	t.nextFireTime, t.hasNext = next, hasNext
	t.prevFireTime, t.hasPrev = prev, hasPrev
}

func (t *SimpleTrigger) ComputeFirstFireTime(cal model.Calendar) (time.Time, bool) {
	ft := t.startAt
	if cal != nil && !cal.IsTimeIncluded(ft) {
		ft = cal.NextIncludedTime(ft)
	}
	if ft.IsZero() || (!t.endAt.IsZero() && ft.After(t.endAt)) {
		t.hasNext = false
		return time.Time{}, false
	}
	t.nextFireTime = ft
	t.hasNext = true
	return ft, true
}

func (t *SimpleTrigger) GetNextFireTime() (time.Time, bool) { return t.nextFireTime, t.hasNext }
func (t *SimpleTrigger) GetPreviousFireTime() (time.Time, bool) { return t.prevFireTime, t.hasPrev }

func (t *SimpleTrigger) Triggered(cal model.Calendar) {
	t.timesTriggered++
	t.prevFireTime = t.nextFireTime
	t.hasPrev = true
	t.advance(cal)
}

func (t *SimpleTrigger) advance(cal model.Calendar) {
	if t.repeat != RepeatForever && t.timesTriggered > t.repeat {
		t.hasNext = false
		return
	}
	if t.interval <= 0 {
		// Pure one-shot: no further fires once triggered.
		if t.timesTriggered > 0 {
			t.hasNext = false
			return
		}
		return
	}
	next := t.nextFireTime.Add(t.interval)
	for cal != nil && !cal.IsTimeIncluded(next) {
		next = cal.NextIncludedTime(next.Add(time.Nanosecond))
	}
	if !t.endAt.IsZero() && next.After(t.endAt) {
		t.hasNext = false
		return
	}
	t.nextFireTime = next
	t.hasNext = true
}

func (t *SimpleTrigger) MayFireAgain() bool { return t.hasNext }

func (t *SimpleTrigger) UpdateAfterMisfire(cal model.Calendar) {
	switch t.misfire {
	case model.MisfireFireOnceNow:
		t.nextFireTime = time.Now()
		t.hasNext = true
	case model.MisfireDoNothing:
		t.catchUpTo(time.Now(), cal)
	default: // SmartPolicy and Ignore both recompute forward from now
		t.catchUpTo(time.Now(), cal)
	}
}

// catchUpTo advances nextFireTime past `now` without firing for any
// occurrence that elapsed in between.
func (t *SimpleTrigger) catchUpTo(now time.Time, cal model.Calendar) {
	if !t.hasNext {
		return
	}
	if t.interval <= 0 {
		if t.nextFireTime.Before(now) {
			t.hasNext = false
		}
		return
	}
	for t.nextFireTime.Before(now) {
		if t.repeat != RepeatForever && t.timesTriggered >= t.repeat {
			t.hasNext = false
			return
		}
		t.timesTriggered++
		t.nextFireTime = t.nextFireTime.Add(t.interval)
	}
	for cal != nil && !cal.IsTimeIncluded(t.nextFireTime) {
		t.nextFireTime = cal.NextIncludedTime(t.nextFireTime.Add(time.Nanosecond))
	}
	if !t.endAt.IsZero() && t.nextFireTime.After(t.endAt) {
		t.hasNext = false
	}
}
