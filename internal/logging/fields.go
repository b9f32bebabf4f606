package logging

// Common structured log field keys to keep logs searchable/consistent.
const (
	FieldService    = "service"
	FieldVersion    = "version"
	FieldProvider   = "provider"
	FieldRequestID  = "request_id"
	FieldPath       = "path"
	FieldMethod     = "method"
	FieldStatusCode = "status_code"
	FieldGameID     = "game_id"
	FieldTeamID     = "team_id"
	FieldUserID     = "user_id"
	FieldConnID     = "conn_id"
	FieldMode       = "mode"
	FieldSport      = "sport"
	FieldCacheKey   = "cache_key"
	FieldTrigger    = "trigger"
	FieldCount      = "count"
	FieldDurationMS = "duration_ms"
)
