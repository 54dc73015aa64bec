package logger

import (
	"io"
	"log"
	"strings"
	"sync"
)

var (
	modelMu  sync.Mutex
	modelLog *log.Logger
	dumpBody bool
)

// SetModelWriter sets the destination for raw model request/response dumps.
// A nil writer disables dumping.
func SetModelWriter(w io.Writer) {
	modelMu.Lock()
	defer modelMu.Unlock()
	if w == nil {
		modelLog = nil
		return
	}
	modelLog = log.New(w, "", log.LstdFlags)
}

// EnableModelPayloadDump toggles inclusion of the full wire payload in dumps.
func EnableModelPayloadDump(enabled bool) {
	modelMu.Lock()
	dumpBody = enabled
	modelMu.Unlock()
}

type modelSection struct {
	Title string
	Body  string
}

func logModel(kind, purpose string, sections []modelSection) {
	modelMu.Lock()
	l := modelLog
	modelMu.Unlock()
	if l == nil {
		return
	}
	var b strings.Builder
	b.WriteString("[MODEL][")
	b.WriteString(kind)
	b.WriteString("]")
	if purpose != "" {
		b.WriteString("[")
		b.WriteString(purpose)
		b.WriteString("]")
	}
	b.WriteString("\n")
	for _, sec := range sections {
		title := strings.TrimSpace(sec.Title)
		if title == "" {
			title = "CONTENT"
		}
		b.WriteString("--- ")
		b.WriteString(title)
		b.WriteString(" ---\n")
		b.WriteString(sec.Body)
		if !strings.HasSuffix(sec.Body, "\n") {
			b.WriteString("\n")
		}
	}
	b.WriteString("=====\n")
	l.Print(b.String())
}

// LogModelRequest records an outbound chat request.
func LogModelRequest(purpose, system, user, payload string) {
	sections := []modelSection{
		{Title: "SYSTEM", Body: system},
		{Title: "USER", Body: user},
	}
	modelMu.Lock()
	withBody := dumpBody
	modelMu.Unlock()
	if withBody && strings.TrimSpace(payload) != "" {
		sections = append(sections, modelSection{Title: "PAYLOAD", Body: payload})
	}
	logModel("request", purpose, sections)
}

// LogModelResponse records a raw model reply.
func LogModelResponse(purpose, raw string) {
	logModel("response", purpose, []modelSection{{Title: "RAW", Body: raw}})
}
