package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldTxID        = "transaction_id"
	FieldTemplateID  = "template_id"
	FieldCategoryID  = "category_id"
	FieldAmountCents = "amount_cents"
	FieldBatchSize   = "batch_size"
	FieldInserted    = "inserted"
	FieldImpactPast  = "impact_past"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentLedger      = "ledger"
	ComponentStorage     = "storage"
	ComponentAMQP        = "amqp"
	ComponentWorker      = "worker"
	ComponentSheets      = "sheets"
	ComponentMaterialize = "materialize"
	ComponentTrace       = "trace"
)

// Operations defines standard operation names
const (
	OpCreate      = "create"
	OpUpdate      = "update"
	OpDelete      = "delete"
	OpList        = "list"
	OpMaterialize = "materialize"
	OpPropagate   = "propagate"
	OpSync        = "sync"
	OpShutdown    = "shutdown"
	OpStartup     = "startup"
)
