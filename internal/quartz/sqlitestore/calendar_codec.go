package sqlitestore

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/trigger"
)

const (
	calKindDaily   = "daily"
	calKindWeekday = "weekday"
	calKindHoliday = "holiday"
)

type dailyCalPayload struct {
	Loc        string `json:"loc"`
	StartNS    int64  `json:"start_ns"`
	EndNS      int64  `json:"end_ns"`
}

type weekdayCalPayload struct {
	Loc      string `json:"loc"`
	Excluded []int  `json:"excluded"`
}

type holidayCalPayload struct {
	Loc   string   `json:"loc"`
	Dates []string `json:"dates"`
}

// encodeCalendar persists only the calendar kinds provided by the
// trigger package; a caller-supplied model.Calendar implementation that
// isn't one of these has no durable representation here.
func encodeCalendar(cal model.Calendar) (kind string, payload []byte, err error) {
	switch c := cal.(type) {
	case *trigger.DailyCalendar:
		b, err := json.Marshal(dailyCalPayload{
			Loc:     locName(c.Location()),
			StartNS: int64(c.Start()),
			EndNS:   int64(c.End()),
		})
		return calKindDaily, b, err
	case *trigger.WeekdayCalendar:
		days := c.ExcludedDays()
		ints := make([]int, len(days))
		for i, d := range days {
			ints[i] = int(d)
		}
		b, err := json.Marshal(weekdayCalPayload{Loc: locName(c.Location()), Excluded: ints})
		return calKindWeekday, b, err
	case *trigger.HolidayCalendar:
		b, err := json.Marshal(holidayCalPayload{Loc: locName(c.Location()), Dates: c.Dates()})
		return calKindHoliday, b, err
	default:
		return "", nil, fmt.Errorf("sqlitestore: unsupported calendar type %T", cal)
	}
}

func locName(loc *time.Location) string {
	if loc == nil {
		return "Local"
	}
	return loc.String()
}

func decodeCalendar(kind, payload string) (model.Calendar, error) {
	switch kind {
	case calKindDaily:
		var p dailyCalPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, err
		}
		loc, err := time.LoadLocation(p.Loc)
		if err != nil {
			loc = time.Local
		}
		return trigger.NewDailyCalendar(loc, time.Duration(p.StartNS), time.Duration(p.EndNS)), nil
	case calKindWeekday:
		var p weekdayCalPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, err
		}
		loc, err := time.LoadLocation(p.Loc)
		if err != nil {
			loc = time.Local
		}
		days := make([]time.Weekday, len(p.Excluded))
		for i, d := range p.Excluded {
			days[i] = time.Weekday(d)
		}
		return trigger.NewWeekdayCalendar(loc, days...), nil
	case calKindHoliday:
		var p holidayCalPayload
		if err := json.Unmarshal([]byte(payload), &p); err != nil {
			return nil, err
		}
		loc, err := time.LoadLocation(p.Loc)
		if err != nil {
			loc = time.Local
		}
		dates := make([]time.Time, 0, len(p.Dates))
		for _, ds := range p.Dates {
			t, err := time.ParseInLocation("2006-01-02", ds, loc)
			if err != nil {
				continue
			}
			dates = append(dates, t)
		}
		return trigger.NewHolidayCalendar(loc, dates...), nil
	default:
		return nil, fmt.Errorf("sqlitestore: unknown calendar kind %q", kind)
	}
}
