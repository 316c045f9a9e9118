package logger

// Standard field keys for structured logging. Use these consistently across
// all log statements so enrollment operations can be traced end to end.
const (
	KeyOperation = "operation" // join, leave, deconfigure, login-policy, discover
	KeyRealm     = "realm"     // realm or domain name the operation targets
	KeyProvider  = "provider"  // back-end identifier: samba, sssd-ad, sssd-ipa
	KeyPrincipal = "principal" // kerberos principal (never the secret)
	KeyTool      = "tool"      // external tool being invoked
	KeyInvoker   = "invoker"   // identity of the inbound caller
	KeyError     = "error"     // error detail

	KeyTraceID = "trace_id" // OpenTelemetry trace ID for request correlation
	KeySpanID  = "span_id"  // OpenTelemetry span ID for operation tracking
)
