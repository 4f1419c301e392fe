package sqlitestore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/trigger"
)

const (
	kindSimple = "simple"
	kindCron   = "cron"
)

type simplePayload struct {
	StartAtUnix  int64 `json:"start_at_unix"`
	IntervalNS   int64 `json:"interval_ns"`
	Repeat       int   `json:"repeat"`
	EndAtUnix    int64 `json:"end_at_unix,omitempty"`
	TimesFired   int   `json:"times_fired"`
}

type cronPayload struct {
	Spec string `json:"spec"`
	Loc  string `json:"loc"`
}

// encodeTrigger returns the row's kind and payload_json for trig's
// concrete type. Unknown trigger implementations are rejected -- the
// sqlite collaborator only ever persists the kinds it can also restore.
func encodeTrigger(trig model.Trigger) (kind string, payload []byte, err error) {
	switch tt := trig.(type) {
	case *trigger.SimpleTrigger:
		p := simplePayload{
			StartAtUnix: tt.StartAt().Unix(),
			IntervalNS:  int64(tt.Interval()),
			Repeat:      tt.Repeat(),
			TimesFired:  tt.TimesTriggered(),
		}
		if !tt.EndAt().IsZero() {
			p.EndAtUnix = tt.EndAt().Unix()
		}
		b, err := json.Marshal(p)
		return kindSimple, b, err
	case *trigger.CronTrigger:
		loc := tt.Location()
		locName := "Local"
		if loc != nil {
			locName = loc.String()
		}
		b, err := json.Marshal(cronPayload{Spec: tt.Spec(), Loc: locName})
		return kindCron, b, err
	default:
		return "", nil, fmt.Errorf("sqlitestore: unsupported trigger type %T", trig)
	}
}

// decodeTrigger reconstructs a trigger from its persisted row. The next
// fire time (and a simple trigger's fire count) is restored verbatim
// rather than recomputed, so a trigger that already fired N times keeps
// its progress across restart. The previous fire time is not persisted
// and comes back unset.
func decodeTrigger(row triggerRow) (model.Trigger, error) {
	key := model.NewKey(row.name, row.grp)
	jobKey := model.NewKey(row.jobName, row.jobGrp)

	var nextFire time.Time
	hasNext := row.nextFireUnix.Valid
	if hasNext {
		nextFire = time.Unix(row.nextFireUnix.Int64, 0)
	}

	switch row.kind {
	case kindSimple:
		var p simplePayload
		if err := json.Unmarshal([]byte(row.payloadJSON), &p); err != nil {
			return nil, err
		}
		st := trigger.NewSimple(key, jobKey, time.Unix(p.StartAtUnix, 0), time.Duration(p.IntervalNS), p.Repeat)
		if p.EndAtUnix != 0 {
			st.SetEndAt(time.Unix(p.EndAtUnix, 0))
		}
		st.SetTimesTriggered(p.TimesFired)
		st.SetCalendarName(row.calendarName)
		st.SetPriority(row.priority)
		st.SetMisfirePolicy(model.MisfireInstruction(row.misfirePolicy))
		st.SetVolatile(row.volatile)
		st.SetJobDataOverlay(row.jobData)
		st.SetComputedFireTimes(nextFire, hasNext, time.Time{}, false)
		return st, nil
	case kindCron:
		var p cronPayload
		if err := json.Unmarshal([]byte(row.payloadJSON), &p); err != nil {
			return nil, err
		}
		loc, err := time.LoadLocation(p.Loc)
		if err != nil {
			loc = time.Local
		}
		ct, err := trigger.NewCron(key, jobKey, p.Spec, loc)
		if err != nil {
			return nil, err
		}
		ct.SetCalendarName(row.calendarName)
		ct.SetPriority(row.priority)
		ct.SetMisfirePolicy(model.MisfireInstruction(row.misfirePolicy))
		ct.SetVolatile(row.volatile)
		ct.SetJobDataOverlay(row.jobData)
		ct.SetComputedFireTimes(nextFire, hasNext, time.Time{}, false)
		return ct, nil
	default:
		return nil, fmt.Errorf("sqlitestore: unknown trigger kind %q", row.kind)
	}
}
