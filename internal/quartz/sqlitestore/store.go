package sqlitestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/model"
	"github.com/yitzchokneuhaus1/quartznet/internal/quartz/store"
)

// Store is a SQLite-backed store.JobStore. It supports persistence but is
// not clustered: the single *sql.DB connection is this process's only
// writer, so a second process opening the same file would corrupt
// in-memory trigger-state assumptions the scheduling loop makes.
type Store struct {
	db *sql.DB
	mu sync.Mutex // serializes multi-statement logical operations
}

var _ store.JobStore = (*Store)(nil)

// misfireThreshold mirrors memstore's: a trigger more than this far past
// its scheduled fire time is treated as misfired rather than merely late.
const misfireThreshold = time.Minute

// Config configures Open.
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := openDB(ctx, cfg.Path, cfg.BusyTimeout)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) SupportsPersistence() bool { return true }
func (s *Store) Clustered() bool           { return false }

func (s *Store) StoreJob(ctx context.Context, job *model.JobDetail, replaceExisting bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dataJSON, err := json.Marshal(job.JobData)
	if err != nil {
		return err
	}
	if !replaceExisting {
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM jobs WHERE name=? AND grp=?`, job.Key.Name, job.Key.Group).Scan(&exists)
		if err == nil {
			return model.ErrObjectAlreadyExists
		}
		if err != sql.ErrNoRows {
			return err
		}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO jobs (name, grp, job_type, job_data_json, durable, stateful, requests_recovery, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name, grp) DO UPDATE SET
			job_type=excluded.job_type, job_data_json=excluded.job_data_json,
			durable=excluded.durable, stateful=excluded.stateful,
			requests_recovery=excluded.requests_recovery, description=excluded.description`,
		job.Key.Name, job.Key.Group, job.JobType, string(dataJSON),
		boolToInt(job.Durable), boolToInt(job.Stateful), boolToInt(job.RequestsRecovery), job.Description)
	return err
}

func (s *Store) RetrieveJob(ctx context.Context, key model.Key) (*model.JobDetail, error) {
	row := s.db.QueryRowContext(ctx, `SELECT job_type, job_data_json, durable, stateful, requests_recovery, description FROM jobs WHERE name=? AND grp=?`, key.Name, key.Group)
	var jobType, dataJSON, description string
	var durable, stateful, recovery int
	if err := row.Scan(&jobType, &dataJSON, &durable, &stateful, &recovery, &description); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	var data model.JobDataMap
	if err := json.Unmarshal([]byte(dataJSON), &data); err != nil {
		return nil, err
	}
	return &model.JobDetail{
		Key: key, JobType: jobType, JobData: data,
		Durable: durable != 0, Stateful: stateful != 0, RequestsRecovery: recovery != 0,
		Description: description,
	}, nil
}

func (s *Store) RemoveJob(ctx context.Context, key model.Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM triggers WHERE job_name=? AND job_grp=?`, key.Name, key.Group); err != nil {
		return false, err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM jobs WHERE name=? AND grp=?`, key.Name, key.Group)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

type triggerRow struct {
	name, grp        string
	jobName, jobGrp  string
	kind             string
	state            int
	calendarName     string
	priority         int
	misfirePolicy    int
	volatile         bool
	jobData          model.JobDataMap
	payloadJSON      string
	nextFireUnix     sql.NullInt64
}

func (s *Store) scanTrigger(row interface{ Scan(...any) error }) (triggerRow, error) {
	var r triggerRow
	var dataJSON string
	var volatile int
	err := row.Scan(&r.name, &r.grp, &r.jobName, &r.jobGrp, &r.kind, &r.state, &r.calendarName,
		&r.priority, &r.misfirePolicy, &volatile, &dataJSON, &r.payloadJSON, &r.nextFireUnix)
	if err != nil {
		return r, err
	}
	r.volatile = volatile != 0
	if err := json.Unmarshal([]byte(dataJSON), &r.jobData); err != nil {
		return r, err
	}
	return r, nil
}

const triggerColumns = `name, grp, job_name, job_grp, kind, state, calendar_name, priority, misfire_policy, volatile, job_data_json, payload_json, next_fire_unix`

func (s *Store) StoreTrigger(ctx context.Context, trig model.Trigger, replaceExisting bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.storeTriggerLocked(ctx, trig, replaceExisting)
}

func (s *Store) storeTriggerLocked(ctx context.Context, trig model.Trigger, replaceExisting bool) error {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM triggers WHERE name=? AND grp=?`, trig.Key().Name, trig.Key().Group).Scan(&exists)
	if err == nil && !replaceExisting {
		return model.ErrObjectAlreadyExists
	}
	if err != nil && err != sql.ErrNoRows {
		return err
	}

	kind, payload, err := encodeTrigger(trig)
	if err != nil {
		return err
	}
	dataJSON, err := json.Marshal(trig.JobDataOverlay())
	if err != nil {
		return err
	}
	var nextFire sql.NullInt64
	if t, ok := trig.GetNextFireTime(); ok {
		nextFire = sql.NullInt64{Int64: t.Unix(), Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO triggers (name, grp, job_name, job_grp, kind, state, calendar_name, priority, misfire_policy, volatile, job_data_json, payload_json, next_fire_unix)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(name, grp) DO UPDATE SET
			job_name=excluded.job_name, job_grp=excluded.job_grp, kind=excluded.kind,
			state=excluded.state, calendar_name=excluded.calendar_name, priority=excluded.priority,
			misfire_policy=excluded.misfire_policy, volatile=excluded.volatile,
			job_data_json=excluded.job_data_json, payload_json=excluded.payload_json,
			next_fire_unix=excluded.next_fire_unix`,
		trig.Key().Name, trig.Key().Group, trig.JobKey().Name, trig.JobKey().Group, kind,
		int(model.TriggerStateNormal), trig.CalendarName(), trig.Priority(), int(trig.MisfirePolicy()),
		boolToInt(trig.Volatile()), string(dataJSON), string(payload), nextFire)
	return err
}

func (s *Store) StoreJobAndTrigger(ctx context.Context, job *model.JobDetail, trig model.Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.storeJobLocked(ctx, job); err != nil {
		return err
	}
	return s.storeTriggerLocked(ctx, trig, false)
}

func (s *Store) storeJobLocked(ctx context.Context, job *model.JobDetail) error {
	dataJSON, err := json.Marshal(job.JobData)
	if err != nil {
		return err
	}
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM jobs WHERE name=? AND grp=?`, job.Key.Name, job.Key.Group).Scan(&exists)
	if err == nil {
		return model.ErrObjectAlreadyExists
	}
	if err != sql.ErrNoRows {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO jobs (name, grp, job_type, job_data_json, durable, stateful, requests_recovery, description) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.Key.Name, job.Key.Group, job.JobType, string(dataJSON), boolToInt(job.Durable), boolToInt(job.Stateful), boolToInt(job.RequestsRecovery), job.Description)
	return err
}

func (s *Store) RetrieveTrigger(ctx context.Context, key model.Key) (model.Trigger, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+triggerColumns+` FROM triggers WHERE name=? AND grp=?`, key.Name, key.Group)
	r, err := s.scanTrigger(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return decodeTrigger(r)
}

func (s *Store) RemoveTrigger(ctx context.Context, key model.Key) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM triggers WHERE name=? AND grp=?`, key.Name, key.Group)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) ReplaceTrigger(ctx context.Context, key model.Key, newTrig model.Trigger) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if key != newTrig.Key() {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM triggers WHERE name=? AND grp=?`, key.Name, key.Group); err != nil {
			return false, err
		}
	}
	if err := s.storeTriggerLocked(ctx, newTrig, true); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) TriggersForJob(ctx context.Context, jobKey model.Key) ([]model.Trigger, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+triggerColumns+` FROM triggers WHERE job_name=? AND job_grp=?`, jobKey.Name, jobKey.Group)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Trigger
	for rows.Next() {
		r, err := s.scanTrigger(rows)
		if err != nil {
			return nil, err
		}
		trig, err := decodeTrigger(r)
		if err != nil {
			return nil, err
		}
		out = append(out, trig)
	}
	return out, rows.Err()
}

func (s *Store) GetTriggerState(ctx context.Context, key model.Key) (model.TriggerState, error) {
	var state int
	err := s.db.QueryRowContext(ctx, `SELECT state FROM triggers WHERE name=? AND grp=?`, key.Name, key.Group).Scan(&state)
	if err == sql.ErrNoRows {
		return model.TriggerStateNone, nil
	}
	if err != nil {
		return model.TriggerStateNone, err
	}
	return model.TriggerState(state), nil
}

func (s *Store) StoreCalendar(ctx context.Context, name string, cal model.Calendar, replaceExisting bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !replaceExisting {
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM calendars WHERE name=?`, name).Scan(&exists)
		if err == nil {
			return model.ErrObjectAlreadyExists
		}
		if err != sql.ErrNoRows {
			return err
		}
	}
	kind, payload, err := encodeCalendar(cal)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO calendars (name, kind, payload_json) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET kind=excluded.kind, payload_json=excluded.payload_json`, name, kind, string(payload))
	return err
}

func (s *Store) RetrieveCalendar(ctx context.Context, name string) (model.Calendar, error) {
	var kind, payload string
	err := s.db.QueryRowContext(ctx, `SELECT kind, payload_json FROM calendars WHERE name=?`, name).Scan(&kind, &payload)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeCalendar(kind, payload)
}

func (s *Store) RemoveCalendar(ctx context.Context, name string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.ExecContext(ctx, `DELETE FROM calendars WHERE name=?`, name)
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (s *Store) AcquireNextTriggers(ctx context.Context, noLaterThan time.Time, maxCount int, timeWindow time.Duration) ([]model.Trigger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if maxCount <= 0 {
		maxCount = 1
	}
	cutoff := noLaterThan.Add(timeWindow).Unix()

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+triggerColumns+` FROM triggers t
		WHERE t.state = ? AND t.next_fire_unix IS NOT NULL AND t.next_fire_unix <= ?
		  AND t.job_name NOT IN (
		      SELECT job_name FROM triggers WHERE state = ? AND job_grp = t.job_grp AND job_name = t.job_name
		  )
		  AND t.grp NOT IN (SELECT grp FROM paused_trigger_groups)
		  AND t.job_grp NOT IN (SELECT grp FROM paused_job_groups)
		ORDER BY t.next_fire_unix ASC, t.priority DESC, t.name ASC
		LIMIT ?`,
		int(model.TriggerStateNormal), cutoff, int(model.TriggerStateBlocked), maxCount)
	if err != nil {
		return nil, model.ErrStoreTransient
	}

	var acquired []model.Trigger
	var keys []model.Key
	var misfired []model.Trigger
	now := time.Now()
	for rows.Next() {
		r, err := s.scanTrigger(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		trig, err := decodeTrigger(r)
		if err != nil {
			rows.Close()
			return nil, err
		}
		if next, ok := trig.GetNextFireTime(); ok && now.Sub(next) > misfireThreshold {
			misfired = append(misfired, trig)
			continue
		}
		acquired = append(acquired, trig)
		keys = append(keys, trig.Key())
	}
	rowsErr := rows.Err()
	rows.Close()
	if rowsErr != nil {
		return nil, model.ErrStoreTransient
	}

	for _, trig := range misfired {
		if err := s.applyMisfireLocked(ctx, trig); err != nil {
			return nil, err
		}
	}

	for _, k := range keys {
		if _, err := s.db.ExecContext(ctx, `UPDATE triggers SET state=? WHERE name=? AND grp=?`, int(model.TriggerStateAcquired), k.Name, k.Group); err != nil {
			return nil, fmt.Errorf("sqlitestore: acquire: %w", err)
		}
	}
	return acquired, nil
}

// applyMisfireLocked recomputes trig's schedule per its own misfire
// policy and persists the result; called under s.mu with no open *sql.Rows
// on the connection, since the pool is capped at one.
func (s *Store) applyMisfireLocked(ctx context.Context, trig model.Trigger) error {
	var cal model.Calendar
	if name := trig.CalendarName(); name != "" {
		cal, _ = s.RetrieveCalendar(ctx, name)
	}
	trig.UpdateAfterMisfire(cal)

	newState := model.TriggerStateNormal
	if !trig.MayFireAgain() {
		newState = model.TriggerStateComplete
	}
	if err := s.storeTriggerLocked(ctx, trig, true); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `UPDATE triggers SET state=? WHERE name=? AND grp=?`, int(newState), trig.Key().Name, trig.Key().Group)
	return err
}

func (s *Store) ReleaseAcquiredTrigger(ctx context.Context, trig model.Trigger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `UPDATE triggers SET state=? WHERE name=? AND grp=? AND state=?`,
		int(model.TriggerStateNormal), trig.Key().Name, trig.Key().Group, int(model.TriggerStateAcquired))
	return err
}

func (s *Store) TriggersFired(ctx context.Context, triggers []model.Trigger) ([]store.FireResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	results := make([]store.FireResult, 0, len(triggers))
	for _, trig := range triggers {
		res, err := s.fireOneLocked(ctx, trig)
		if err != nil {
			results = append(results, store.FireResult{Trigger: trig, Err: err})
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Store) fireOneLocked(ctx context.Context, trig model.Trigger) (store.FireResult, error) {
	var state int
	err := s.db.QueryRowContext(ctx, `SELECT state FROM triggers WHERE name=? AND grp=?`, trig.Key().Name, trig.Key().Group).Scan(&state)
	if err == sql.ErrNoRows || (err == nil && model.TriggerState(state) != model.TriggerStateAcquired) {
		return store.FireResult{Trigger: trig, NoFire: true}, nil
	}
	if err != nil {
		return store.FireResult{}, err
	}

	job, err := s.RetrieveJob(ctx, trig.JobKey())
	if err != nil {
		return store.FireResult{}, err
	}
	if job == nil {
		s.db.ExecContext(ctx, `DELETE FROM triggers WHERE name=? AND grp=?`, trig.Key().Name, trig.Key().Group)
		return store.FireResult{Trigger: trig, NoFire: true}, nil
	}

	if job.Stateful {
		var blockedCount int
		s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM triggers WHERE job_name=? AND job_grp=? AND state=?`,
			job.Key.Name, job.Key.Group, int(model.TriggerStateBlocked)).Scan(&blockedCount)
		if blockedCount > 0 {
			s.db.ExecContext(ctx, `UPDATE triggers SET state=? WHERE name=? AND grp=?`, int(model.TriggerStateBlocked), trig.Key().Name, trig.Key().Group)
			return store.FireResult{Trigger: trig, NoFire: true}, nil
		}
	}

	var cal model.Calendar
	if name := trig.CalendarName(); name != "" {
		cal, _ = s.RetrieveCalendar(ctx, name)
	}

	scheduled, _ := trig.GetNextFireTime()
	now := time.Now()
	trig.Triggered(cal)

	newState := model.TriggerStateNormal
	if !trig.MayFireAgain() {
		newState = model.TriggerStateComplete
	} else if job.Stateful {
		newState = model.TriggerStateBlocked // this trigger's own next cycle waits behind its own execution
	}
	if err := s.storeTriggerLocked(ctx, trig, true); err != nil {
		return store.FireResult{}, err
	}
	if _, err := s.db.ExecContext(ctx, `UPDATE triggers SET state=? WHERE name=? AND grp=?`, int(newState), trig.Key().Name, trig.Key().Group); err != nil {
		return store.FireResult{}, err
	}

	return store.FireResult{
		Trigger: trig,
		Bundle: &store.TriggerFiredBundle{
			JobDetail: job, Trigger: trig, Calendar: cal,
			ScheduledFireTime: scheduled, ActualFireTime: now,
		},
	}, nil
}

func (s *Store) TriggeredJobComplete(ctx context.Context, trig model.Trigger, job *model.JobDetail, instruction model.InstructionCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job.Stateful {
		if _, err := s.db.ExecContext(ctx, `UPDATE triggers SET state=? WHERE job_name=? AND job_grp=? AND state=?`,
			int(model.TriggerStateNormal), job.Key.Name, job.Key.Group, int(model.TriggerStateBlocked)); err != nil {
			return err
		}
	}

	switch instruction {
	case model.DeleteTrigger:
		_, err := s.db.ExecContext(ctx, `DELETE FROM triggers WHERE name=? AND grp=?`, trig.Key().Name, trig.Key().Group)
		return err
	case model.SetTriggerComplete:
		_, err := s.db.ExecContext(ctx, `UPDATE triggers SET state=? WHERE name=? AND grp=?`, int(model.TriggerStateComplete), trig.Key().Name, trig.Key().Group)
		return err
	case model.SetTriggerError:
		_, err := s.db.ExecContext(ctx, `UPDATE triggers SET state=? WHERE name=? AND grp=?`, int(model.TriggerStateError), trig.Key().Name, trig.Key().Group)
		return err
	case model.SetAllJobTriggersComplete:
		_, err := s.db.ExecContext(ctx, `UPDATE triggers SET state=? WHERE job_name=? AND job_grp=?`, int(model.TriggerStateComplete), trig.JobKey().Name, trig.JobKey().Group)
		return err
	case model.SetAllJobTriggersError:
		_, err := s.db.ExecContext(ctx, `UPDATE triggers SET state=? WHERE job_name=? AND job_grp=?`, int(model.TriggerStateError), trig.JobKey().Name, trig.JobKey().Group)
		return err
	case model.ReExecuteJob:
		_, err := s.db.ExecContext(ctx, `UPDATE triggers SET state=? WHERE name=? AND grp=?`, int(model.TriggerStateNormal), trig.Key().Name, trig.Key().Group)
		return err
	}
	return nil
}

func (s *Store) PauseTrigger(ctx context.Context, key model.Key) error {
	_, err := s.db.ExecContext(ctx, `UPDATE triggers SET state=? WHERE name=? AND grp=?`, int(model.TriggerStatePaused), key.Name, key.Group)
	return err
}

func (s *Store) ResumeTrigger(ctx context.Context, key model.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resumePausedLocked(ctx, `name=? AND grp=?`, key.Name, key.Group)
}

// resumePausedLocked clears every PAUSED trigger matching whereClause back
// to NORMAL, running each one through its own misfire policy first if its
// schedule fell behind while it sat paused. Called under s.mu.
func (s *Store) resumePausedLocked(ctx context.Context, whereClause string, args ...any) error {
	query := `SELECT ` + triggerColumns + ` FROM triggers WHERE ` + whereClause + ` AND state=?`
	rows, err := s.db.QueryContext(ctx, query, append(args, int(model.TriggerStatePaused))...)
	if err != nil {
		return err
	}
	var paused []model.Trigger
	for rows.Next() {
		r, err := s.scanTrigger(rows)
		if err != nil {
			rows.Close()
			return err
		}
		trig, err := decodeTrigger(r)
		if err != nil {
			rows.Close()
			return err
		}
		paused = append(paused, trig)
	}
	rowsErr := rows.Err()
	rows.Close()
	if rowsErr != nil {
		return rowsErr
	}

	now := time.Now()
	for _, trig := range paused {
		if next, ok := trig.GetNextFireTime(); ok && now.Sub(next) > misfireThreshold {
			if err := s.applyMisfireLocked(ctx, trig); err != nil {
				return err
			}
			continue
		}
		if _, err := s.db.ExecContext(ctx, `UPDATE triggers SET state=? WHERE name=? AND grp=?`, int(model.TriggerStateNormal), trig.Key().Name, trig.Key().Group); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) PauseTriggerGroup(ctx context.Context, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO paused_trigger_groups (grp) VALUES (?)`, group); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `UPDATE triggers SET state=? WHERE grp=? AND state=?`, int(model.TriggerStatePaused), group, int(model.TriggerStateNormal))
	return err
}

func (s *Store) ResumeTriggerGroup(ctx context.Context, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM paused_trigger_groups WHERE grp=?`, group); err != nil {
		return err
	}
	return s.resumePausedLocked(ctx, `grp=?`, group)
}

func (s *Store) PauseJob(ctx context.Context, key model.Key) error {
	_, err := s.db.ExecContext(ctx, `UPDATE triggers SET state=? WHERE job_name=? AND job_grp=? AND state=?`, int(model.TriggerStatePaused), key.Name, key.Group, int(model.TriggerStateNormal))
	return err
}

func (s *Store) ResumeJob(ctx context.Context, key model.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resumePausedLocked(ctx, `job_name=? AND job_grp=?`, key.Name, key.Group)
}

func (s *Store) PauseJobGroup(ctx context.Context, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO paused_job_groups (grp) VALUES (?)`, group); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `UPDATE triggers SET state=? WHERE job_grp=? AND state=?`, int(model.TriggerStatePaused), group, int(model.TriggerStateNormal))
	return err
}

func (s *Store) ResumeJobGroup(ctx context.Context, group string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM paused_job_groups WHERE grp=?`, group); err != nil {
		return err
	}
	return s.resumePausedLocked(ctx, `job_grp=?`, group)
}

func (s *Store) PauseAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT grp FROM triggers`)
	if err != nil {
		return err
	}
	var groups []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			rows.Close()
			return err
		}
		groups = append(groups, g)
	}
	rows.Close()
	for _, g := range groups {
		if _, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO paused_trigger_groups (grp) VALUES (?)`, g); err != nil {
			return err
		}
	}
	_, err = s.db.ExecContext(ctx, `UPDATE triggers SET state=? WHERE state=?`, int(model.TriggerStatePaused), int(model.TriggerStateNormal))
	return err
}

func (s *Store) ResumeAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx, `DELETE FROM paused_trigger_groups`); err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM paused_job_groups`); err != nil {
		return err
	}
	return s.resumePausedLocked(ctx, `1=1`)
}

func (s *Store) GetPausedTriggerGroups(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT grp FROM paused_trigger_groups ORDER BY grp`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) IsJobGroupPaused(ctx context.Context, group string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM paused_job_groups WHERE grp=?`, group).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) IsTriggerGroupPaused(ctx context.Context, group string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM paused_trigger_groups WHERE grp=?`, group).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func (s *Store) JobKeys(ctx context.Context, group string) ([]model.Key, error) {
	var rows *sql.Rows
	var err error
	if group == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT name, grp FROM jobs`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT name, grp FROM jobs WHERE grp=?`, group)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Key
	for rows.Next() {
		var name, grp string
		if err := rows.Scan(&name, &grp); err != nil {
			return nil, err
		}
		out = append(out, model.Key{Name: name, Group: grp})
	}
	return out, rows.Err()
}

func (s *Store) TriggerKeys(ctx context.Context, group string) ([]model.Key, error) {
	var rows *sql.Rows
	var err error
	if group == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT name, grp FROM triggers`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT name, grp FROM triggers WHERE grp=?`, group)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Key
	for rows.Next() {
		var name, grp string
		if err := rows.Scan(&name, &grp); err != nil {
			return nil, err
		}
		out = append(out, model.Key{Name: name, Group: grp})
	}
	return out, rows.Err()
}

func (s *Store) SchedulerStarted(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO scheduler_state (key, value) VALUES ('started_at', ?)
		ON CONFLICT(key) DO UPDATE SET value=excluded.value`, time.Now().Format(time.RFC3339))
	return err
}

func (s *Store) Shutdown(_ context.Context) error { return s.db.Close() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
