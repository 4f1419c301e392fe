// Package memstore implements an in-memory store.JobStore: the reference
// collaborator the scheduling core's own tests run against, and the
// default for single-process deployments that don't need durability.
package memstore

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/store"
)

// misfireThreshold is how far past its scheduled fire time a trigger can
// sit before acquisition treats it as misfired rather than merely late,
// matching the 60s default most Quartz-style schedulers ship with.
const misfireThreshold = time.Minute

type jobEntry struct {
	detail *model.JobDetail
	paused bool
}

type triggerEntry struct {
	trig   model.Trigger
	state  model.TriggerState
	paused bool
}

// Store is a sync.Mutex-guarded, map-backed JobStore. Not clustered: a
// Store instance belongs to exactly one process.
type Store struct {
	mu sync.Mutex

	jobs      map[model.Key]*jobEntry
	triggers  map[model.Key]*triggerEntry
	byJob     map[model.Key]map[model.Key]struct{} // jobKey -> set of trigger keys
	calendars map[string]model.Calendar

	pausedJobGroups     map[string]bool
	pausedTriggerGroups map[string]bool
	pausedAll           bool

	blocked map[model.Key]bool // stateful job keys currently executing
}

var _ store.JobStore = (*Store)(nil)

func New() *Store {
	return &Store{
		jobs:                map[model.Key]*jobEntry{},
		triggers:            map[model.Key]*triggerEntry{},
		byJob:               map[model.Key]map[model.Key]struct{}{},
		calendars:           map[string]model.Calendar{},
		pausedJobGroups:     map[string]bool{},
		pausedTriggerGroups: map[string]bool{},
		blocked:             map[model.Key]bool{},
	}
}

func (s *Store) SupportsPersistence() bool { return false }
func (s *Store) Clustered() bool           { return false }

func (s *Store) StoreJob(_ context.Context, job *model.JobDetail, replaceExisting bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.Key]; exists && !replaceExisting {
		return model.ErrObjectAlreadyExists
	}
	s.jobs[job.Key] = &jobEntry{detail: job.Clone()}
	if _, ok := s.byJob[job.Key]; !ok {
		s.byJob[job.Key] = map[model.Key]struct{}{}
	}
	return nil
}

func (s *Store) RetrieveJob(_ context.Context, key model.Key) (*model.JobDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.jobs[key]
	if !ok {
		return nil, nil
	}
	return e.detail.Clone(), nil
}

func (s *Store) RemoveJob(_ context.Context, key model.Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[key]; !ok {
		return false, nil
	}
	for trigKey := range s.byJob[key] {
		delete(s.triggers, trigKey)
	}
	delete(s.byJob, key)
	delete(s.jobs, key)
	return true, nil
}

func (s *Store) StoreTrigger(_ context.Context, trig model.Trigger, replaceExisting bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeTriggerLocked(trig, replaceExisting)
}

func (s *Store) storeTriggerLocked(trig model.Trigger, replaceExisting bool) error {
	if _, exists := s.triggers[trig.Key()]; exists && !replaceExisting {
		return model.ErrObjectAlreadyExists
	}
	if _, ok := s.jobs[trig.JobKey()]; !ok {
		return model.NewSchedulerException(model.ErrInvalidArgument, "trigger references unknown job "+trig.JobKey().String())
	}
	s.triggers[trig.Key()] = &triggerEntry{trig: trig, state: model.TriggerStateNormal}
	if s.byJob[trig.JobKey()] == nil {
		s.byJob[trig.JobKey()] = map[model.Key]struct{}{}
	}
	s.byJob[trig.JobKey()][trig.Key()] = struct{}{}
	return nil
}

func (s *Store) StoreJobAndTrigger(_ context.Context, job *model.JobDetail, trig model.Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.Key]; exists {
		return model.ErrObjectAlreadyExists
	}
	s.jobs[job.Key] = &jobEntry{detail: job.Clone()}
	s.byJob[job.Key] = map[model.Key]struct{}{}
	return s.storeTriggerLocked(trig, false)
}

func (s *Store) RetrieveTrigger(_ context.Context, key model.Key) (model.Trigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.triggers[key]
	if !ok {
		return nil, nil
	}
	return e.trig, nil
}

func (s *Store) RemoveTrigger(_ context.Context, key model.Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.triggers[key]
	if !ok {
		return false, nil
	}
	delete(s.triggers, key)
	delete(s.byJob[e.trig.JobKey()], key)
	return true, nil
}

func (s *Store) ReplaceTrigger(_ context.Context, key model.Key, newTrig model.Trigger) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.triggers[key]
	if !ok {
		return false, nil
	}
	delete(s.byJob[old.trig.JobKey()], key)
	s.triggers[newTrig.Key()] = &triggerEntry{trig: newTrig, state: model.TriggerStateNormal}
	if s.byJob[newTrig.JobKey()] == nil {
		s.byJob[newTrig.JobKey()] = map[model.Key]struct{}{}
	}
	s.byJob[newTrig.JobKey()][newTrig.Key()] = struct{}{}
	if newTrig.Key() != key {
		delete(s.triggers, key)
	}
	return true, nil
}

func (s *Store) TriggersForJob(_ context.Context, jobKey model.Key) ([]model.Trigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Trigger, 0, len(s.byJob[jobKey]))
	for trigKey := range s.byJob[jobKey] {
		out = append(out, s.triggers[trigKey].trig)
	}
	return out, nil
}

func (s *Store) GetTriggerState(_ context.Context, key model.Key) (model.TriggerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.triggers[key]
	if !ok {
		return model.TriggerStateNone, nil
	}
	return e.state, nil
}

func (s *Store) StoreCalendar(_ context.Context, name string, cal model.Calendar, replaceExisting bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.calendars[name]; exists && !replaceExisting {
		return model.ErrObjectAlreadyExists
	}
	s.calendars[name] = cal
	return nil
}

func (s *Store) RetrieveCalendar(_ context.Context, name string) (model.Calendar, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calendars[name], nil
}

func (s *Store) RemoveCalendar(_ context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.calendars[name]; !ok {
		return false, nil
	}
	delete(s.calendars, name)
	return true, nil
}

func (s *Store) isEffectivelyPausedLocked(trig model.Trigger) bool {
	if s.pausedAll {
		return true
	}
	if s.pausedTriggerGroups[trig.Key().Group] {
		return true
	}
	return s.pausedJobGroups[trig.JobKey().Group]
}

func (s *Store) AcquireNextTriggers(_ context.Context, noLaterThan time.Time, maxCount int, timeWindow time.Duration) ([]model.Trigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type candidate struct {
		key  model.Key
		trig model.Trigger
	}
	var cands []candidate
	cutoff := noLaterThan.Add(timeWindow)
	now := time.Now()
	for key, e := range s.triggers {
		if e.state != model.TriggerStateNormal {
			continue
		}
		if s.isEffectivelyPausedLocked(e.trig) {
			continue
		}
		if s.blocked[e.trig.JobKey()] {
			continue
		}
		next, ok := e.trig.GetNextFireTime()
		if !ok || next.After(cutoff) {
			continue
		}
		if now.Sub(next) > misfireThreshold {
			e.trig.UpdateAfterMisfire(s.calendars[e.trig.CalendarName()])
			if !e.trig.MayFireAgain() {
				e.state = model.TriggerStateComplete
			}
			continue
		}
		cands = append(cands, candidate{key: key, trig: e.trig})
	}

	sort.Slice(cands, func(i, j int) bool {
		ni, _ := cands[i].trig.GetNextFireTime()
		nj, _ := cands[j].trig.GetNextFireTime()
		if !ni.Equal(nj) {
			return ni.Before(nj)
		}
		if cands[i].trig.Priority() != cands[j].trig.Priority() {
			return cands[i].trig.Priority() > cands[j].trig.Priority()
		}
		return cands[i].key.String() < cands[j].key.String()
	})

	if maxCount <= 0 {
		maxCount = 1
	}
	if len(cands) > maxCount {
		cands = cands[:maxCount]
	}

	out := make([]model.Trigger, 0, len(cands))
	for _, c := range cands {
		s.triggers[c.key].state = model.TriggerStateAcquired
		out = append(out, c.trig)
	}
	return out, nil
}

func (s *Store) ReleaseAcquiredTrigger(_ context.Context, trig model.Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.triggers[trig.Key()]; ok && e.state == model.TriggerStateAcquired {
		e.state = model.TriggerStateNormal
	}
	return nil
}

func (s *Store) TriggersFired(_ context.Context, triggers []model.Trigger) ([]store.FireResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]store.FireResult, 0, len(triggers))
	for _, trig := range triggers {
		e, ok := s.triggers[trig.Key()]
		if !ok || e.state != model.TriggerStateAcquired {
			results = append(results, store.FireResult{Trigger: trig, NoFire: true})
			continue
		}
		jobEnt, ok := s.jobs[trig.JobKey()]
		if !ok {
			results = append(results, store.FireResult{Trigger: trig, NoFire: true})
			delete(s.triggers, trig.Key())
			continue
		}
		if jobEnt.detail.Stateful && s.blocked[trig.JobKey()] {
			e.state = model.TriggerStateBlocked
			results = append(results, store.FireResult{Trigger: trig, NoFire: true})
			continue
		}

		now := time.Now()
		scheduled, _ := trig.GetNextFireTime()

		var cal model.Calendar
		if name := trig.CalendarName(); name != "" {
			cal = s.calendars[name]
		}

		trig.Triggered(cal)
		if trig.MayFireAgain() {
			e.state = model.TriggerStateNormal
		} else {
			e.state = model.TriggerStateComplete
		}

		if jobEnt.detail.Stateful {
			s.blocked[trig.JobKey()] = true
		}

		results = append(results, store.FireResult{
			Trigger: trig,
			Bundle: &store.TriggerFiredBundle{
				JobDetail:         jobEnt.detail.Clone(),
				Trigger:           trig,
				Calendar:          cal,
				ScheduledFireTime: scheduled,
				ActualFireTime:    now,
			},
		})
	}
	return results, nil
}

func (s *Store) TriggeredJobComplete(_ context.Context, trig model.Trigger, job *model.JobDetail, instruction model.InstructionCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.Stateful {
		delete(s.blocked, job.Key)
		for trigKey := range s.byJob[job.Key] {
			if e := s.triggers[trigKey]; e != nil && e.state == model.TriggerStateBlocked {
				e.state = model.TriggerStateNormal
			}
		}
	}

	switch instruction {
	case model.DeleteTrigger:
		delete(s.triggers, trig.Key())
		delete(s.byJob[trig.JobKey()], trig.Key())
	case model.SetTriggerComplete:
		if e, ok := s.triggers[trig.Key()]; ok {
			e.state = model.TriggerStateComplete
		}
	case model.SetTriggerError:
		if e, ok := s.triggers[trig.Key()]; ok {
			e.state = model.TriggerStateError
		}
	case model.SetAllJobTriggersComplete:
		for trigKey := range s.byJob[trig.JobKey()] {
			s.triggers[trigKey].state = model.TriggerStateComplete
		}
	case model.SetAllJobTriggersError:
		for trigKey := range s.byJob[trig.JobKey()] {
			s.triggers[trigKey].state = model.TriggerStateError
		}
	case model.ReExecuteJob:
		if e, ok := s.triggers[trig.Key()]; ok {
			e.state = model.TriggerStateNormal
		}
	}
	return nil
}

func (s *Store) PauseTrigger(_ context.Context, key model.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.triggers[key]; ok {
		e.state = model.TriggerStatePaused
	}
	return nil
}

func (s *Store) ResumeTrigger(_ context.Context, key model.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.triggers[key]; ok && e.state == model.TriggerStatePaused {
		s.resumeOneLocked(e)
	}
	return nil
}

// resumeOneLocked clears PAUSED back to NORMAL, applying e's misfire
// policy first if its schedule fell behind while it sat paused.
func (s *Store) resumeOneLocked(e *triggerEntry) {
	if next, ok := e.trig.GetNextFireTime(); ok && time.Now().Sub(next) > misfireThreshold {
		e.trig.UpdateAfterMisfire(s.calendars[e.trig.CalendarName()])
	}
	if !e.trig.MayFireAgain() {
		e.state = model.TriggerStateComplete
		return
	}
	e.state = model.TriggerStateNormal
}

func (s *Store) PauseTriggerGroup(_ context.Context, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pausedTriggerGroups[group] = true
	for _, e := range s.triggers {
		if e.trig.Key().Group == group && e.state == model.TriggerStateNormal {
			e.state = model.TriggerStatePaused
		}
	}
	return nil
}

func (s *Store) ResumeTriggerGroup(_ context.Context, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pausedTriggerGroups, group)
	for _, e := range s.triggers {
		if e.trig.Key().Group == group && e.state == model.TriggerStatePaused {
			s.resumeOneLocked(e)
		}
	}
	return nil
}

func (s *Store) PauseJob(_ context.Context, key model.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for trigKey := range s.byJob[key] {
		if e := s.triggers[trigKey]; e != nil && e.state == model.TriggerStateNormal {
			e.state = model.TriggerStatePaused
		}
	}
	return nil
}

func (s *Store) ResumeJob(_ context.Context, key model.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for trigKey := range s.byJob[key] {
		if e := s.triggers[trigKey]; e != nil && e.state == model.TriggerStatePaused {
			s.resumeOneLocked(e)
		}
	}
	return nil
}

func (s *Store) PauseJobGroup(_ context.Context, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pausedJobGroups[group] = true
	for jobKey, trigKeys := range s.byJob {
		if jobKey.Group != group {
			continue
		}
		for trigKey := range trigKeys {
			if e := s.triggers[trigKey]; e != nil && e.state == model.TriggerStateNormal {
				e.state = model.TriggerStatePaused
			}
		}
	}
	return nil
}

func (s *Store) ResumeJobGroup(_ context.Context, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pausedJobGroups, group)
	for jobKey, trigKeys := range s.byJob {
		if jobKey.Group != group {
			continue
		}
		for trigKey := range trigKeys {
			if e := s.triggers[trigKey]; e != nil && e.state == model.TriggerStatePaused {
				s.resumeOneLocked(e)
			}
		}
	}
	return nil
}

func (s *Store) PauseAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pausedAll = true
	for _, e := range s.triggers {
		if e.state == model.TriggerStateNormal {
			e.state = model.TriggerStatePaused
		}
	}
	return nil
}

func (s *Store) ResumeAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pausedAll = false
	for _, e := range s.triggers {
		if e.state == model.TriggerStatePaused {
			s.resumeOneLocked(e)
		}
	}
	return nil
}

func (s *Store) GetPausedTriggerGroups(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.pausedTriggerGroups))
	for g := range s.pausedTriggerGroups {
		out = append(out, g)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) IsJobGroupPaused(_ context.Context, group string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pausedJobGroups[group], nil
}

func (s *Store) IsTriggerGroupPaused(_ context.Context, group string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pausedTriggerGroups[group], nil
}

func (s *Store) JobKeys(_ context.Context, group string) ([]model.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Key, 0)
	for k := range s.jobs {
		if group == "" || k.Group == group {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *Store) TriggerKeys(_ context.Context, group string) ([]model.Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Key, 0)
	for k := range s.triggers {
		if group == "" || k.Group == group {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *Store) SchedulerStarted(_ context.Context) error { return nil }
func (s *Store) Shutdown(_ context.Context) error         { return nil }

// ManualTriggerSuffix generates a random positive 63-bit integer of the
// kind used in MT_<n>-style manual trigger names. The facade's TriggerJob
// draws its own suffix from math/rand and does not call this.
func ManualTriggerSuffix() int64 { return rand.Int63() }
