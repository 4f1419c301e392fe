package trigger

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
)

// CronTrigger fires according to a cron expression, parsed once at
// construction via robfig/cron with an optional leading seconds field
// and @every/@daily-style descriptors enabled (see cronParser).
type CronTrigger struct {
	key    model.Key
	jobKey model.Key

	spec     string
	schedule cron.Schedule
	loc      *time.Location

	calendarName string
	priority     int
	misfire      model.MisfireInstruction
	volatile     bool
	jobData      model.JobDataMap

	nextFireTime time.Time
	hasNext      bool
	prevFireTime time.Time
	hasPrev      bool
}

var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// NewCron parses spec (standard cron syntax, seconds field optional, plus
// @every/@daily-style descriptors) in the given location.
func NewCron(key, jobKey model.Key, spec string, loc *time.Location) (*CronTrigger, error) {
	sched, err := cronParser.Parse(spec)
	if err != nil {
		return nil, model.NewSchedulerException(model.ErrInvalidArgument, fmt.Sprintf("cron spec %q: %v", spec, err))
	}
	if loc == nil {
		loc = time.Local
	}
	return &CronTrigger{
		key:      key,
		jobKey:   jobKey,
		spec:     spec,
		schedule: sched,
		loc:      loc,
		misfire:  model.MisfireSmartPolicy,
	}, nil
}

func (t *CronTrigger) Key() model.Key         { return t.key }
func (t *CronTrigger) JobKey() model.Key      { return t.jobKey }
func (t *CronTrigger) Spec() string           { return t.spec }
func (t *CronTrigger) Location() *time.Location { return t.loc }

// SetComputedFireTimes restores the next/previous fire time fields
// directly -- used when rehydrating a trigger from durable storage.
func (t *CronTrigger) SetComputedFireTimes(next time.Time, hasNext bool, prev time.Time, hasPrev bool) {
	t.nextFireTime, t.hasNext = next, hasNext
	t.prevFireTime, t.hasPrev = prev, hasPrev
}

func (t *CronTrigger) CalendarName() string                          { return t.calendarName }
func (t *CronTrigger) SetCalendarName(name string)                   { t.calendarName = name }
func (t *CronTrigger) Priority() int                                 { return t.priority }
func (t *CronTrigger) SetPriority(p int)                             { t.priority = p }
func (t *CronTrigger) MisfirePolicy() model.MisfireInstruction       { return t.misfire }
func (t *CronTrigger) SetMisfirePolicy(m model.MisfireInstruction)   { t.misfire = m }
func (t *CronTrigger) Volatile() bool                                { return t.volatile }
func (t *CronTrigger) SetVolatile(v bool)                            { t.volatile = v }
func (t *CronTrigger) JobDataOverlay() model.JobDataMap              { return t.jobData }
func (t *CronTrigger) SetJobDataOverlay(m model.JobDataMap)          { t.jobData = m }

func (t *CronTrigger) ComputeFirstFireTime(cal model.Calendar) (time.Time, bool) {
	next := t.schedule.Next(time.Now().In(t.loc))
	next = t.skipExcluded(next, cal)
	if next.IsZero() {
		t.hasNext = false
		return time.Time{}, false
	}
	t.nextFireTime = next
	t.hasNext = true
	return next, true
}

func (t *CronTrigger) GetNextFireTime() (time.Time, bool)     { return t.nextFireTime, t.hasNext }
func (t *CronTrigger) GetPreviousFireTime() (time.Time, bool) { return t.prevFireTime, t.hasPrev }

func (t *CronTrigger) Triggered(cal model.Calendar) {
	t.prevFireTime = t.nextFireTime
	t.hasPrev = true
	next := t.skipExcluded(t.schedule.Next(t.nextFireTime), cal)
	t.nextFireTime = next
	t.hasNext = !next.IsZero()
}

func (t *CronTrigger) MayFireAgain() bool { return t.hasNext }

func (t *CronTrigger) UpdateAfterMisfire(cal model.Calendar) {
	switch t.misfire {
	case model.MisfireFireOnceNow:
		t.nextFireTime = time.Now()
		t.hasNext = true
	default:
		// Cron schedules have no natural "catch up" occurrence to skip
		// silently versus one to fire for -- Ignore, DoNothing, and
		// SmartPolicy all just resume from the next future tick.
		next := t.skipExcluded(t.schedule.Next(time.Now().In(t.loc)), cal)
		t.nextFireTime = next
		t.hasNext = !next.IsZero()
	}
}

func (t *CronTrigger) skipExcluded(next time.Time, cal model.Calendar) time.Time {
	if cal == nil {
		return next
	}
	for i := 0; i < 366 && !next.IsZero() && !cal.IsTimeIncluded(next); i++ {
		candidate := cal.NextIncludedTime(next)
		if candidate.IsZero() || !candidate.After(next) {
			next = t.schedule.Next(next)
			continue
		}
		next = t.schedule.Next(candidate.Add(-time.Nanosecond))
	}
	return next
}
