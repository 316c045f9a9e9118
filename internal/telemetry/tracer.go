package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for enrollment operations.
// These follow OpenTelemetry semantic conventions where applicable.
const (
	// Operation attributes
	AttrOperation = "realm.operation" // join, leave, deconfigure, login-policy, discover
	AttrRealmName = "realm.name"
	AttrProvider  = "realm.provider" // samba, sssd-ad, sssd-ipa
	AttrInvoker   = "realm.invoker"

	// Credential attributes. Only the credential type and owner are ever
	// recorded, never secret material.
	AttrCredentialType  = "credential.type"
	AttrCredentialOwner = "credential.owner"

	// Discovery attributes
	AttrDiscoveryInput = "discovery.input"
	AttrDiscoveryAll   = "discovery.all"

	// External tool attributes
	AttrTool       = "tool.path"
	AttrToolStatus = "tool.exit_status"

	// Error taxonomy kind of a failed operation
	AttrErrorKind = "error.kind"
)

// Span names for operations.
// Format: <component>.<operation>
const (
	SpanJoin        = "enroll.join"
	SpanLeave       = "enroll.leave"
	SpanDeconfigure = "enroll.deconfigure"
	SpanLoginPolicy = "enroll.login_policy"
	SpanDiscover    = "discovery.resolve"
	SpanKinit       = "krb5.kinit"
	SpanToolRun     = "tool.run"
)

// Operation returns an attribute for the inbound operation name.
func Operation(op string) attribute.KeyValue {
	return attribute.String(AttrOperation, op)
}

// RealmName returns an attribute for the target realm.
func RealmName(name string) attribute.KeyValue {
	return attribute.String(AttrRealmName, name)
}

// Provider returns an attribute for the back-end serving the operation.
func Provider(name string) attribute.KeyValue {
	return attribute.String(AttrProvider, name)
}

// Invoker returns an attribute for the calling identity.
func Invoker(name string) attribute.KeyValue {
	return attribute.String(AttrInvoker, name)
}

// CredentialType returns an attribute for the credential type in use.
func CredentialType(typ string) attribute.KeyValue {
	return attribute.String(AttrCredentialType, typ)
}

// Tool returns an attribute for an external tool path.
func Tool(path string) attribute.KeyValue {
	return attribute.String(AttrTool, path)
}

// ToolStatus returns an attribute for an external tool exit status.
func ToolStatus(status int) attribute.KeyValue {
	return attribute.Int(AttrToolStatus, status)
}

// ErrorKind returns an attribute for the taxonomy kind of a failure.
func ErrorKind(kind string) attribute.KeyValue {
	return attribute.String(AttrErrorKind, kind)
}

// StartOperationSpan starts a span for an inbound enrollment operation.
func StartOperationSpan(ctx context.Context, span, operation, realmName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+2)
	allAttrs = append(allAttrs, Operation(operation), RealmName(realmName))
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, span, trace.WithAttributes(allAttrs...))
}

// StartToolSpan starts a span covering one external tool invocation.
func StartToolSpan(ctx context.Context, path string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	allAttrs := make([]attribute.KeyValue, 0, len(attrs)+1)
	allAttrs = append(allAttrs, Tool(path))
	allAttrs = append(allAttrs, attrs...)
	return StartSpan(ctx, SpanToolRun, trace.WithAttributes(allAttrs...))
}
