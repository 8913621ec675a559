package handler

// Well-known response locals shared between the dispatcher, middleware and
// observers.
const (
	// LocalRoute holds the pattern of the matched route.
	LocalRoute = "route"
	// LocalRequestID holds the request id assigned by the requestid middleware.
	LocalRequestID = "request_id"
	// LocalClientIP holds the client address resolved by the clientip middleware.
	LocalClientIP = "client_ip"
)

// LocalString returns the local stored under key when it is a string.
func (r *Response) LocalString(key string) string {
	v, _ := r.Local(key)
	s, _ := v.(string)
	return s
}
