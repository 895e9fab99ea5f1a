package model

// RequestState represents the lifecycle state of a proxied request.
type RequestState string

const (
	RequestStateReceived       RequestState = "RECEIVED"
	RequestStateValidated      RequestState = "VALIDATED"
	RequestStateSigned         RequestState = "SIGNED"
	RequestStateUpstreamCalled RequestState = "UPSTREAM_CALLED"
	RequestStateSucceeded      RequestState = "SUCCEEDED"
	RequestStateUpstreamError  RequestState = "UPSTREAM_ERROR"
	RequestStateTransportError RequestState = "TRANSPORT_ERROR"
	RequestStateResponded      RequestState = "RESPONDED"
)

// String returns the string representation of the request state.
func (s RequestState) String() string {
	return string(s)
}

// IsOutcome returns true if the state records the result of the upstream call.
func (s RequestState) IsOutcome() bool {
	switch s {
	case RequestStateSucceeded, RequestStateUpstreamError, RequestStateTransportError:
		return true
	}
	return false
}

// ValidRequestTransitions defines the allowed state transitions for a request.
// Signing is optional, so VALIDATED may go straight to UPSTREAM_CALLED.
// Any pre-upstream state may jump to RESPONDED when the request is rejected.
var ValidRequestTransitions = map[RequestState][]RequestState{
	RequestStateReceived:       {RequestStateValidated, RequestStateResponded},
	RequestStateValidated:      {RequestStateSigned, RequestStateUpstreamCalled, RequestStateResponded},
	RequestStateSigned:         {RequestStateUpstreamCalled, RequestStateResponded},
	RequestStateUpstreamCalled: {RequestStateSucceeded, RequestStateUpstreamError, RequestStateTransportError},
	RequestStateSucceeded:      {RequestStateResponded},
	RequestStateUpstreamError:  {RequestStateResponded},
	RequestStateTransportError: {RequestStateResponded},
}

// CanTransitionTo returns true if moving from the current state to next is valid.
func (s RequestState) CanTransitionTo(next RequestState) bool {
	for _, allowed := range ValidRequestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// RankPreference selects how nearby search orders and limits results.
type RankPreference string

const (
	RankByRadius   RankPreference = "RADIUS"
	RankByDistance RankPreference = "DISTANCE"
)

// ParseRankPreference maps the rankBy query value to a RankPreference.
// Anything other than "distance" ranks by radius.
func ParseRankPreference(s string) RankPreference {
	if s == "distance" || s == "DISTANCE" {
		return RankByDistance
	}
	return RankByRadius
}
