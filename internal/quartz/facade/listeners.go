package facade

import "github.com/yitzchokneuhaus1/quartznet/internal/quartz/listener"

func (s *Scheduler) AddGlobalJobListener(l listener.JobListener)         { s.lr.AddGlobalJobListener(l) }
func (s *Scheduler) AddJobListener(name string, l listener.JobListener) { s.lr.AddJobListener(name, l) }
func (s *Scheduler) RemoveJobListener(name string) bool                 { return s.lr.RemoveJobListener(name) }

func (s *Scheduler) AddGlobalTriggerListener(l listener.TriggerListener) {
	s.lr.AddGlobalTriggerListener(l)
}
func (s *Scheduler) AddTriggerListener(name string, l listener.TriggerListener) {
	s.lr.AddTriggerListener(name, l)
}
func (s *Scheduler) RemoveTriggerListener(name string) bool {
	return s.lr.RemoveTriggerListener(name)
}

func (s *Scheduler) AddSchedulerListener(l listener.SchedulerListener) { s.lr.AddSchedulerListener(l) }
func (s *Scheduler) RemoveSchedulerListener(l listener.SchedulerListener) bool {
	return s.lr.RemoveSchedulerListener(l)
}
