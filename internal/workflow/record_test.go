package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderSortsByFileNumber(t *testing.T) {
	t.Parallel()

	in := []ActionRecord{{FileNumber: 2, Query: "b"}, {FileNumber: 1, Query: "a"}}
	got := Order(in)

	assert.Equal(t, []int{1, 2}, fileNumbers(got))
	assert.Equal(t, 2, in[0].FileNumber, "input must not be reordered")
}

func TestOrderIsStableOnTies(t *testing.T) {
	t.Parallel()

	in := []ActionRecord{
		{FileNumber: 3, Query: "first"},
		{FileNumber: 1, Query: "one"},
		{FileNumber: 3, Query: "second"},
		{FileNumber: 3, Query: "third"},
	}
	got := Order(in)

	assert.Equal(t, []int{1, 3, 3, 3}, fileNumbers(got))
	assert.Equal(t, "first", got[1].Query)
	assert.Equal(t, "second", got[2].Query)
	assert.Equal(t, "third", got[3].Query)
}

func TestOrderDoesNotShareURLSlices(t *testing.T) {
	t.Parallel()

	in := []ActionRecord{{FileNumber: 1, URLs: []string{"a.go"}}}
	got := Order(in)
	got[0].URLs[0] = "changed.go"

	assert.Equal(t, "a.go", in[0].URLs[0])
}

func TestOrderEmpty(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Order(nil))
}

func TestActionRecordFileName(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "7_chat_action.yml", ActionRecord{FileNumber: 7}.FileName())
}

func fileNumbers(records []ActionRecord) []int {
	out := make([]int, 0, len(records))
	for _, r := range records {
		out = append(out, r.FileNumber)
	}
	return out
}
