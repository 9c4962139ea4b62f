package common

// Cache namespaces.
const (
	NamespaceContent = "content"
	NamespacePoints  = "points"
)

// Points key modifiers. Staff views show unrevealed points, so the two
// variants are cached separately.
const (
	ModifierStaff   = "staff"
	ModifierStudent = "student"
)

// RequestIDHeaderName is the gRPC metadata key carrying the request id.
const RequestIDHeaderName = "x-request-id"
