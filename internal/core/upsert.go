package core

const (
	UpsertStatusSuccess = "success"
	UpsertStatusError   = "error"

	UpsertActionUpdated  = "updated"
	UpsertActionAppended = "appended"
)

// UpsertResult mirrors the wire response of an upsert call.
type UpsertResult struct {
	Status  string `json:"status"`
	Action  string `json:"action,omitempty"`
	Message string `json:"message,omitempty"`
}

func (r UpsertResult) OK() bool {
	return r.Status == UpsertStatusSuccess
}
