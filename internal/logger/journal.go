package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

var (
	journalMu  sync.Mutex
	journalLog *log.Logger
)

// SetJournalWriter directs trade journal records to w. A nil writer turns
// the journal off.
func SetJournalWriter(w io.Writer) {
	journalMu.Lock()
	defer journalMu.Unlock()
	if w == nil {
		journalLog = nil
		return
	}
	journalLog = log.New(w, "", log.LstdFlags)
}

type JournalSection struct {
	Title string
	Body  string
}

// Journal writes one multi-section record, e.g. the legs and outcome of a
// finished trade, to the journal writer if one is set.
func Journal(kind, subject string, sections ...JournalSection) {
	journalMu.Lock()
	l := journalLog
	journalMu.Unlock()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[TRADE]")
	for _, tag := range []string{kind, subject} {
		if tag == "" {
			continue
		}
		b.WriteString("[")
		b.WriteString(tag)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		t := strings.TrimSpace(sec.Title)
		if t == "" {
			t = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(t)
		b.WriteString(" ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	l.Print(b.String())
}
