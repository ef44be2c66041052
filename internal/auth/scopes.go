package auth

// Known OAuth scopes used by the API.
const (
	ScopeWorklogWrite = "worklog:write"
	ScopeWorklogRead  = "worklog:read"
)
