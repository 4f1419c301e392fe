package facade

import (
	"github.com/yitzchokneuhaus1/quartznet/internal/eventbus"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
)

// busListener forwards every SchedulerListener callback onto an eventbus
// so other in-process components (an admin HTTP handler, a metrics
// exporter) can observe scheduler lifecycle and mutation events without
// registering their own listener against the facade directly.
type busListener struct {
	bus  eventbus.Bus
	name string
}

func newBusListener(bus eventbus.Bus, schedulerName string) *busListener {
	return &busListener{bus: bus, name: schedulerName}
}

func (b *busListener) publish(evtType string, data any) {
	b.bus.Publish(eventbus.Event{Type: evtType, Data: map[string]any{"scheduler": b.name, "payload": data}})
}

func (b *busListener) SchedulerStarted()      { b.publish("quartznet.scheduler.started", nil) }
func (b *busListener) SchedulerStandby()      { b.publish("quartznet.scheduler.standby", nil) }
func (b *busListener) SchedulerShuttingDown() { b.publish("quartznet.scheduler.shuttingdown", nil) }
func (b *busListener) SchedulerShutdown()     { b.publish("quartznet.scheduler.shutdown", nil) }
func (b *busListener) SchedulerError(msg string, err error) {
	b.publish("quartznet.scheduler.error", map[string]string{"msg": msg, "err": err.Error()})
}
func (b *busListener) JobScheduled(trig model.Trigger) {
	b.publish("quartznet.job.scheduled", trig.Key().String())
}
func (b *busListener) JobUnscheduled(key model.Key) { b.publish("quartznet.job.unscheduled", key.String()) }
func (b *busListener) JobAdded(job *model.JobDetail) { b.publish("quartznet.job.added", job.Key.String()) }
func (b *busListener) JobDeleted(key model.Key)      { b.publish("quartznet.job.deleted", key.String()) }
func (b *busListener) JobPaused(key model.Key)       { b.publish("quartznet.job.paused", key.String()) }
func (b *busListener) JobResumed(key model.Key)      { b.publish("quartznet.job.resumed", key.String()) }
func (b *busListener) TriggerPaused(key model.Key)   { b.publish("quartznet.trigger.paused", key.String()) }
func (b *busListener) TriggerResumed(key model.Key)  { b.publish("quartznet.trigger.resumed", key.String()) }
