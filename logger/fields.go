package logger

// Field keys shared across packages so log queries can rely on them.
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldOperation   = "operation"
	FieldStatus      = "status"
	FieldError       = "error"
	FieldDuration    = "duration_ms"
	FieldMode        = "mode"
	FieldEngineKey   = "engine_key"
	FieldAddress     = "address"
	FieldContainerID = "container_id"
)

// Fields pairs up kvs into a field map. Non-string keys and a trailing
// key without a value are dropped.
//
//	log.Info("engines reconciled", logger.Fields("added", 2, logger.FieldMode, "swarm"))
func Fields(kvs ...interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kvs)/2)
	for i := 1; i < len(kvs); i += 2 {
		if k, ok := kvs[i-1].(string); ok {
			m[k] = kvs[i]
		}
	}
	return m
}

// ErrorFields describes a failed operation.
func ErrorFields(op string, err error) map[string]interface{} {
	return Fields(FieldOperation, op, FieldError, err.Error())
}
