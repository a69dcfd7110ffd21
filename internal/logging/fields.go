package logging

const (
	// FieldComponent names the subsystem emitting the record.
	FieldComponent = "component"
	// FieldEventType classifies the record for filtering, e.g. "probe_failed".
	FieldEventType = "event_type"
	// FieldErrorHint carries the operator's next step for warnings and errors.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
	// FieldWorkID is the external identifier of the work being processed.
	FieldWorkID = "work_id"
	// FieldCycleID correlates every record emitted by one scheduler run.
	FieldCycleID = "cycle_id"
	// FieldTask names the periodic task (weekly or frequent).
	FieldTask = "task"
)
