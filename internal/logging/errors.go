package logging

// ErrorKind normalizes a response status into a short label for logs and
// metrics. Status 0 with an error means the request never reached upstream.
func ErrorKind(status int, hasErr bool) string {
	if hasErr && status == 0 {
		return "network_error"
	}
	switch {
	case status == 429:
		return "quota_exhausted"
	case status == 401:
		return "auth_invalid"
	case status == 403:
		return "permission_denied"
	case status >= 500 && status < 600:
		return "upstream_5xx"
	case status >= 400 && status < 500:
		return "upstream_4xx"
	}
	if hasErr {
		return "error"
	}
	return "ok"
}
