package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// Tracing fields, propagated through the call chain on the context logger.
const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldUploadID identifies one run of the upload pipeline
	FieldUploadID = "upload_id"

	// FieldMemeID is the stored record ID
	FieldMemeID = "meme_id"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldStage is the upload pipeline stage
	FieldStage = "stage"
)

// Metric fields, attached per entry for aggregation and alerting.
const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
