package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldErrorKind  = "error_kind"
	FieldOperation  = "operation"
	FieldYear       = "year"
	FieldMonth      = "month"
	FieldDate       = "date"
	FieldCategory   = "category"
	FieldCredit     = "credit"
	FieldDebit      = "debit"
	FieldBalance    = "balance"
	FieldRows       = "rows"
	FieldChatID     = "chat_id"
	FieldCommand    = "command"
	FieldEventID    = "event_id"
	FieldEventKind  = "event_kind"
	FieldBackend    = "backend"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentBot     = "bot"
	ComponentHTTP    = "http"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentConsole = "console"
)

// Operations defines standard operation names
const (
	OpAdd      = "add"
	OpRemove   = "remove"
	OpClear    = "clear"
	OpView     = "view"
	OpUsage    = "usage"
	OpPlot     = "plot"
	OpInit     = "init"
	OpPublish  = "publish"
	OpSync     = "sync"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)

// ErrorKinds classify failures that users only ever see as "Error!".
const (
	ErrorKindUsage   = "usage_error"
	ErrorKindPreset  = "unknown_preset"
	ErrorKindAmount  = "invalid_amount"
	ErrorKindDate    = "invalid_date"
	ErrorKindStorage = "storage_error"
	ErrorKindMonth   = "invalid_month"
	ErrorKindRender  = "render_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithErrorKind adds the classified error kind
func (f LogFields) WithErrorKind(kind string) LogFields {
	f[FieldErrorKind] = kind
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithEntry adds the loggable parts of a ledger entry
func (f LogFields) WithEntry(date, category, credit, debit, balance string) LogFields {
	f[FieldDate] = date
	f[FieldCategory] = category
	f[FieldCredit] = credit
	f[FieldDebit] = debit
	if balance != "" {
		f[FieldBalance] = balance
	}
	return f
}

// WithPeriod adds the view period
func (f LogFields) WithPeriod(year, month int) LogFields {
	f[FieldYear] = year
	f[FieldMonth] = month
	return f
}

// WithChat adds chat-bot request fields
func (f LogFields) WithChat(chatID int64, command string) LogFields {
	f[FieldChatID] = chatID
	if command != "" {
		f[FieldCommand] = command
	}
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
