package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldWorkflow  = "workflow"
	FieldRunID     = "run_id"
	FieldError     = "error"
	FieldSuccess   = "success"
	FieldDuration  = "duration_ms"

	FieldTable    = "table"
	FieldBackend  = "backend"
	FieldTxID     = "tx_id"
	FieldEntity   = "entity"
	FieldYear     = "year"
	FieldFileID   = "file_id"
	FieldFileName = "file_name"
	FieldMerchant = "merchant"

	FieldReady      = "ready"
	FieldStaged     = "staged"
	FieldSkipped    = "skipped"
	FieldDropped    = "dropped"
	FieldDuplicates = "duplicates"
	FieldUnknowns   = "unknowns"
	FieldApproved   = "approved"
	FieldRejected   = "rejected"
	FieldFiles      = "files"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentWorker  = "worker"
	ComponentService = "service"
	ComponentSheets  = "sheets"
	ComponentSQLite  = "sqlite"
	ComponentDrive   = "drive"
	ComponentOCR     = "ocr"
	ComponentAMQP    = "amqp"
)

// LogFields provides a builder for structured log fields.
type LogFields map[string]any

// NewFields creates an empty LogFields instance.
func NewFields() LogFields {
	return make(LogFields)
}

// WithWorkflow adds workflow and run id fields.
func (f LogFields) WithWorkflow(workflow, runID string) LogFields {
	f[FieldWorkflow] = workflow
	f[FieldRunID] = runID
	return f
}

// WithError adds the error field when err is non-nil.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithBuckets adds routing bucket counts.
func (f LogFields) WithBuckets(ready, staged, skipped, dropped, duplicates int) LogFields {
	f[FieldReady] = ready
	f[FieldStaged] = staged
	f[FieldSkipped] = skipped
	f[FieldDropped] = dropped
	f[FieldDuplicates] = duplicates
	return f
}

// ToSlice converts LogFields to a slice for slog.
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
