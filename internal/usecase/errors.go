package usecase

// FailureReason classifies turns that ended in a user-visible error message.
// A classification miss is not a failure; it routes the turn to the chat
// path instead.
type FailureReason string

const (
	// ReasonUpstreamHTTP covers non-2xx responses and transport failures
	// from the prediction service.
	ReasonUpstreamHTTP FailureReason = "UPSTREAM_HTTP_ERROR"
	// ReasonUpstreamDecode covers prediction bodies that are not JSON.
	ReasonUpstreamDecode FailureReason = "UPSTREAM_DECODE_ERROR"
	// ReasonUpstreamShape covers bodies without a usable predictions object.
	ReasonUpstreamShape FailureReason = "UPSTREAM_SHAPE_ERROR"
	// ReasonUpstreamValue covers non-numeric prediction fields.
	ReasonUpstreamValue FailureReason = "UPSTREAM_VALUE_ERROR"
	// ReasonCompletionCall covers failed chat completions; the error is
	// rendered as the reply so the turn still produces output.
	ReasonCompletionCall FailureReason = "COMPLETION_CALL_ERROR"
	// ReasonUnclassified covers panics caught by the dispatcher.
	ReasonUnclassified FailureReason = "UNCLASSIFIED_TURN_ERROR"
	// ReasonDisplayFailed covers turns that could not open their status
	// message; nothing can be rendered for them.
	ReasonDisplayFailed FailureReason = "DISPLAY_SEND_ERROR"
)
