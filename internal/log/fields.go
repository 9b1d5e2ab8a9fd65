package log

// Common field names for structured logging
const (
	FieldComponent      = "component"
	FieldRequestID      = "request_id"
	FieldClientIP       = "client_ip"
	FieldMethod         = "method"
	FieldPath           = "path"
	FieldStatusCode     = "status_code"
	FieldDuration       = "duration_ms"
	FieldError          = "error"
	FieldOwnerID        = "owner_id"
	FieldSubscriptionID = "subscription_id"
	FieldAccountID      = "account_id"
	FieldMerchant       = "merchant"
	FieldAmountCents    = "amount_cents"
	FieldFrequency      = "frequency"
	FieldCandidates     = "candidates"
	FieldPlanned        = "planned_payments"
)

// Components defines standard component names
const (
	ComponentApp      = "app"
	ComponentHTTP     = "http"
	ComponentDetector = "detector"
	ComponentProject  = "projector"
	ComponentStorage  = "storage"
	ComponentAMQP     = "amqp"
	ComponentWorker   = "worker"
	ComponentCache    = "cache"
)
