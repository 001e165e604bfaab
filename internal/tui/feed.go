package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/yubzen/replay/internal/actions"
)

// RecordsFeed hands directory reloads from the watcher goroutine to the
// update loop. Only the newest reload is kept.
type RecordsFeed struct {
	ch chan RecordsLoadedMsg
}

func NewRecordsFeed() *RecordsFeed {
	return &RecordsFeed{ch: make(chan RecordsLoadedMsg, 1)}
}

func (f *RecordsFeed) Push(res actions.LoadResult) {
	if f == nil {
		return
	}
	msg := RecordsLoadedMsg{Records: res.Records, Issues: res.Issues}
	for {
		select {
		case f.ch <- msg:
			return
		default:
		}
		select {
		case <-f.ch:
		default:
		}
	}
}

func waitForRecords(f *RecordsFeed) tea.Cmd {
	if f == nil {
		return nil
	}
	return func() tea.Msg {
		return <-f.ch
	}
}
