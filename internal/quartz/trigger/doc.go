// Package trigger provides the concrete Trigger kinds (SimpleTrigger,
// CronTrigger) and Calendar implementations that satisfy the model
// package's abstract schedule-algebra contracts.
package trigger
