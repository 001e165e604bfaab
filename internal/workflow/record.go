package workflow

import (
	"fmt"
	"sort"
	"strings"
)

// ActionRecord is one recorded query/response unit keyed by FileNumber.
type ActionRecord struct {
	FileNumber int
	Query      string
	Response   string
	URLs       []string
	Timestamp  string
}

func (r ActionRecord) FileName() string {
	return fmt.Sprintf("%d_chat_action.yml", r.FileNumber)
}

func (r ActionRecord) HasResponse() bool {
	return strings.TrimSpace(r.Response) != ""
}

func (r ActionRecord) clone() ActionRecord {
	if r.URLs != nil {
		r.URLs = append([]string(nil), r.URLs...)
	}
	return r
}

// Order returns a copy of records sorted by ascending FileNumber.
// Records sharing a FileNumber keep their input order.
func Order(records []ActionRecord) []ActionRecord {
	out := make([]ActionRecord, len(records))
	for i, r := range records {
		out[i] = r.clone()
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].FileNumber < out[j].FileNumber
	})
	return out
}
