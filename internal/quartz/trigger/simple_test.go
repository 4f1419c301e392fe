package trigger

import (
	"testing"
	"time"

	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
)

func TestSimpleTriggerOneShot(t *testing.T) {
	key := model.NewKey("once", "g")
	jobKey := model.NewKey("job", "g")
	start := time.Now().Add(time.Minute)
	tr := NewSimple(key, jobKey, start, 0, 0)

	first, ok := tr.ComputeFirstFireTime(nil)
	if !ok || !first.Equal(start) {
		t.Fatalf("expected first fire at %v, got %v (ok=%v)", start, first, ok)
	}

	tr.Triggered(nil)
	if tr.MayFireAgain() {
		t.Fatal("a one-shot trigger must not fire again after its single occurrence")
	}
}

func TestSimpleTriggerRepeatCount(t *testing.T) {
	key := model.NewKey("repeat", "g")
	jobKey := model.NewKey("job", "g")
	start := time.Now()
	tr := NewSimple(key, jobKey, start, time.Second, 2)

	tr.ComputeFirstFireTime(nil)
	for i := 0; i < 2; i++ {
		if !tr.MayFireAgain() {
			t.Fatalf("expected trigger to still fire at repetition %d", i)
		}
		tr.Triggered(nil)
	}
	if tr.MayFireAgain() {
		t.Fatal("trigger with repeat=2 fired a third time")
	}
	if tr.TimesTriggered() != 2 {
		t.Fatalf("expected TimesTriggered()==2, got %d", tr.TimesTriggered())
	}
}

func TestSimpleTriggerRepeatForever(t *testing.T) {
	key := model.NewKey("forever", "g")
	jobKey := model.NewKey("job", "g")
	start := time.Now()
	tr := NewSimple(key, jobKey, start, time.Second, RepeatForever)

	tr.ComputeFirstFireTime(nil)
	for i := 0; i < 50; i++ {
		tr.Triggered(nil)
	}
	if !tr.MayFireAgain() {
		t.Fatal("a RepeatForever trigger must never exhaust")
	}
}

func TestSimpleTriggerRespectsEndAt(t *testing.T) {
	key := model.NewKey("bounded", "g")
	jobKey := model.NewKey("job", "g")
	start := time.Now()
	tr := NewSimple(key, jobKey, start, time.Second, RepeatForever)
	tr.SetEndAt(start.Add(2500 * time.Millisecond))

	tr.ComputeFirstFireTime(nil)
	tr.Triggered(nil) // next = start+1s
	tr.Triggered(nil) // next = start+2s
	if !tr.MayFireAgain() {
		t.Fatal("expected a fire time still within endAt")
	}
	tr.Triggered(nil) // next would be start+3s, past endAt
	if tr.MayFireAgain() {
		t.Fatal("expected trigger to exhaust once past EndAt")
	}
}

func TestSimpleTriggerHonorsCalendarExclusion(t *testing.T) {
	key := model.NewKey("cal", "g")
	jobKey := model.NewKey("job", "g")
	loc := time.UTC
	start := time.Date(2026, 1, 5, 10, 0, 0, 0, loc) // Monday
	tr := NewSimple(key, jobKey, start, 24*time.Hour, RepeatForever)
	cal := NewWeekdayCalendar(loc, time.Tuesday)

	first, ok := tr.ComputeFirstFireTime(cal)
	if !ok {
		t.Fatal("expected a first fire time")
	}
	if first.Weekday() == time.Tuesday {
		t.Fatal("first fire time must not land on an excluded weekday")
	}

	tr.Triggered(cal)
	next, has := tr.GetNextFireTime()
	if !has {
		t.Fatal("expected a next fire time after Triggered")
	}
	if next.Weekday() == time.Tuesday {
		t.Fatalf("advance must skip the excluded weekday, got %v", next)
	}
}

func TestSimpleTriggerDataOverlay(t *testing.T) {
	tr := NewSimple(model.NewKey("k", "g"), model.NewKey("j", "g"), time.Now(), 0, 0)
	if tr.JobDataOverlay() != nil {
		t.Fatal("expected a fresh trigger to have no data overlay")
	}
	overlay := model.JobDataMap{"x": 1}
	tr.SetJobDataOverlay(overlay)
	if tr.JobDataOverlay()["x"] != 1 {
		t.Fatal("SetJobDataOverlay did not take effect")
	}
}
