package model

// Entry is one todo line: its text and whether it has been marked done.
// The JSON shape is the on-disk format of the "todos" slot.
type Entry struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Stats counts completed and pending entries, for headers and progress bars.
func Stats(entries []Entry) (done, pending int) {
	for _, e := range entries {
		if e.Completed {
			done++
		} else {
			pending++
		}
	}
	return
}
