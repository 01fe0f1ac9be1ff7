package bulk

import (
	"encoding/json"
)

type bulkResponse struct {
	Errors bool                         `json:"errors"`
	Items  []map[string]bulkItemOutcome `json:"items"`
}

type bulkItemOutcome struct {
	Status int `json:"status"`
	Error  *struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error,omitempty"`
}

// parseResponse extracts the item count and the failed items from a bulk
// response body. Bodies that are not a bulk response yield zero items.
func parseResponse(body []byte) (int, []ItemError) {
	var resp bulkResponse
	if len(body) == 0 || json.Unmarshal(body, &resp) != nil {
		return 0, nil
	}
	if !resp.Errors {
		return len(resp.Items), nil
	}
	var failed []ItemError
	for pos, item := range resp.Items {
		for _, outcome := range item {
			if outcome.Error == nil {
				continue
			}
			failed = append(failed, ItemError{
				Position: pos,
				Status:   outcome.Status,
				Type:     outcome.Error.Type,
				Reason:   outcome.Error.Reason,
			})
		}
	}
	return len(resp.Items), failed
}
