package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/glabrego/readaloud-cli/internal/notify"
)

// Notices forwards notices into a running program. Notices raised before
// Attach are held and delivered on attach.
type Notices struct {
	mu      sync.Mutex
	send    func(tea.Msg)
	pending []notify.Notice
}

func (n *Notices) Notify(notice notify.Notice) {
	n.mu.Lock()
	send := n.send
	if send == nil {
		n.pending = append(n.pending, notice)
	}
	n.mu.Unlock()
	if send != nil {
		send(NoticeMsg{Notice: notice})
	}
}

// Attach routes notices to p. Pass nil to detach once the program exits.
func (n *Notices) Attach(p *tea.Program) {
	var send func(tea.Msg)
	if p != nil {
		send = p.Send
	}
	n.attach(send)
}

func (n *Notices) attach(send func(tea.Msg)) {
	n.mu.Lock()
	n.send = send
	pending := n.pending
	if send != nil {
		n.pending = nil
	}
	n.mu.Unlock()
	if send == nil {
		return
	}
	for _, notice := range pending {
		send(NoticeMsg{Notice: notice})
	}
}
