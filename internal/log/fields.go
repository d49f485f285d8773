package log

import "github.com/shopspring/decimal"

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldClientIP      = "client_ip"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldStatusCode    = "status_code"
	FieldDuration      = "duration_ms"
	FieldUserAgent     = "user_agent"
	FieldReferer       = "referer"
	FieldSuccess       = "success"
	FieldError         = "error"
	FieldOperation     = "operation"
	FieldInvoiceID     = "invoice_id"
	FieldInvoiceNumber = "invoice_number"
	FieldCustomerID    = "customer_id"
	FieldTotal         = "total"
	FieldStatus        = "status"
	FieldTimeframe     = "timeframe"
	FieldBuckets       = "buckets"
	FieldSkipped       = "skipped"
	FieldSheetsRef     = "sheets_ref"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentInvoice   = "invoice"
	ComponentCustomer  = "customer"
	ComponentRevenue   = "revenue"
	ComponentReminder  = "reminder"
	ComponentReceipts  = "receipts"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentTemplate  = "template"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpRead      = "read"
	OpUpdate    = "update"
	OpList      = "list"
	OpSync      = "sync"
	OpAggregate = "aggregate"
	OpRemind    = "remind"
	OpUpload    = "upload"
	OpValidate  = "validate"
	OpParse     = "parse"
	OpRender    = "render"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeDatabase      = "database_error"
	ErrorTypeNetwork       = "network_error"
	ErrorTypeTimeout       = "timeout_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error message; nil errors are ignored.
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithInvoice adds invoice identity, total and status.
func (f LogFields) WithInvoice(id, number, customerID string, total decimal.Decimal, status string) LogFields {
	f[FieldInvoiceID] = id
	f[FieldInvoiceNumber] = number
	f[FieldCustomerID] = customerID
	f[FieldTotal] = total.StringFixed(2)
	f[FieldStatus] = status
	return f
}

// WithRevenue adds the shape of a computed revenue series.
func (f LogFields) WithRevenue(timeframe string, buckets, skipped int) LogFields {
	f[FieldTimeframe] = timeframe
	f[FieldBuckets] = buckets
	f[FieldSkipped] = skipped
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent, referer string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	f[FieldUserAgent] = userAgent
	f[FieldReferer] = referer
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to key/value pairs for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
