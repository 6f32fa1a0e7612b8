package access

// Permission is a named capability granted to a user, scoped by a guard and
// grouped under a category. Identity is Name; duplicate names in a snapshot
// are tolerated and ignored beyond the first match.
type Permission struct {
	Name         string `json:"name"`
	Title        string `json:"title"`
	GuardName    string `json:"guard_name"`
	CategoryName string `json:"category_name"`
}

// Role is a named bundle of capabilities. Roles are checked by name only;
// they are never expanded into their permissions here.
type Role struct {
	Name  string `json:"name"`
	Title string `json:"title"`
}

// Snapshot is an immutable view of one user's grants at a point in time.
// A nil Snapshot represents an unauthenticated caller.
type Snapshot struct {
	UserID      string       `json:"user_id"`
	Permissions []Permission `json:"permissions"`
	Roles       []Role       `json:"roles"`
}

// Query describes a combined access check across the three grant dimensions.
// RequireAll selects ALL-of versus ANY-of semantics within each dimension;
// dimensions with no required entries are trivially satisfied.
type Query struct {
	Permissions []string `json:"permissions"`
	Roles       []string `json:"roles"`
	Guards      []string `json:"guards"`
	RequireAll  bool     `json:"require_all"`
}

// ErrorInfo reports why an evaluation could not be completed. It distinguishes
// "policy denied" from "evaluation failed" for logging; callers treat any
// non-granted result uniformly.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Evaluation error codes surfaced through Result.Error.
const (
	CodeNotAuthenticated = "NOT_AUTHENTICATED"
	CodeEvaluationFailed = "EVALUATION_FAILED"
)

// Result is the outcome of a combined access check.
type Result struct {
	Granted            bool       `json:"granted"`
	MissingPermissions []string   `json:"missing_permissions"`
	MissingRoles       []string   `json:"missing_roles"`
	UserPermissions    []string   `json:"user_permissions"`
	UserRoles          []string   `json:"user_roles"`
	Error              *ErrorInfo `json:"error,omitempty"`
}
