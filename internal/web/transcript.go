package web

// DisplayMessage is one chat message as clients render it. The empty author
// is the app itself; clients substitute their default label.
type DisplayMessage struct {
	ID      string `json:"id"`
	Content string `json:"content"`
	Author  string `json:"author,omitempty"`
}

// transcript is the ordered list of messages currently visible in a
// conversation. Removed messages disappear from replay entirely, so a
// reconnecting client sees the same thing a live one does after processing
// a remove envelope.
//
// Not safe for concurrent use; the owning conversation serializes access.
type transcript struct {
	entries []DisplayMessage
	index   map[string]int
}

func newTranscript() *transcript {
	return &transcript{index: make(map[string]int)}
}

func (t *transcript) append(msg DisplayMessage) {
	t.index[msg.ID] = len(t.entries)
	t.entries = append(t.entries, msg)
}

// update rewrites the content of an existing entry. Reports whether the id
// was present.
func (t *transcript) update(id, content string) bool {
	i, ok := t.index[id]
	if !ok {
		return false
	}
	t.entries[i].Content = content
	return true
}

// remove deletes an entry, keeping the remaining order intact. Reports
// whether the id was present.
func (t *transcript) remove(id string) bool {
	i, ok := t.index[id]
	if !ok {
		return false
	}
	t.entries = append(t.entries[:i], t.entries[i+1:]...)
	delete(t.index, id)
	for j := i; j < len(t.entries); j++ {
		t.index[t.entries[j].ID] = j
	}
	return true
}

func (t *transcript) snapshot() []DisplayMessage {
	out := make([]DisplayMessage, len(t.entries))
	copy(out, t.entries)
	return out
}
