package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/climabus/climabus/pkg/candidate"
	"github.com/climabus/climabus/pkg/classify"
	"github.com/climabus/climabus/pkg/decode"
	"github.com/climabus/climabus/pkg/history"
	"github.com/fatih/color"
)

var (
	highlight = color.New(color.FgHiYellow).SprintfFunc()
	idColor   = color.New(color.FgGreen).SprintfFunc()
	tempColor = color.New(color.FgCyan).SprintfFunc()
)

// TraceLine is the one-line dump of a raw frame, tagged when the classifier
// flagged it.
func TraceLine(id uint32, data []byte, candidate bool) string {
	var out strings.Builder
	fmt.Fprintf(&out, "CAN ID: 0x%03X | Data: ", id)
	for _, b := range data {
		fmt.Fprintf(&out, "%02X ", b)
	}
	fmt.Fprintf(&out, "| Len: %d", len(data))
	if candidate {
		out.WriteString(" " + highlight("[TEMP?]"))
	}
	return out.String()
}

// DetailLine prints the frame with the offset40 reading of every byte and the
// half degree reading when it differs, both only when plausible.
func DetailLine(ts time.Duration, id uint32, data []byte) string {
	var out strings.Builder
	fmt.Fprintf(&out, "%d | ID: 0x%X | Len: %d | Data: ", ts.Milliseconds(), id, len(data))
	for _, b := range data {
		fmt.Fprintf(&out, "%02X ", b)
	}
	out.WriteString(" | Temps: ")
	for i, b := range data {
		m1 := decode.GenericTemp(b, decode.MethodOffset40)
		m2 := decode.GenericTemp(b, decode.MethodHalfDegree)
		if decode.Plausible(m1) {
			fmt.Fprintf(&out, "B%d: %.1f°C ", i, m1)
		}
		if decode.Plausible(m2) && m2 != m1 {
			fmt.Fprintf(&out, "B%d*: %.1f°C ", i, m2)
		}
	}
	return strings.TrimRight(out.String(), " ")
}

// AnalysisLines describes a history entry flagged as a candidate: the byte
// change counters followed by every hypothesis for bytes worth a look.
func AnalysisLines(m *history.Message, c *classify.Classifier) []string {
	if c == nil {
		c = classify.Default()
	}
	lines := []string{fmt.Sprintf("  [Analysis] ID: %s - Potential temperature message", idColor("0x%03X", m.ID()))}

	var counts strings.Builder
	counts.WriteString("  [Byte changes] ")
	for i := 0; i < m.Length(); i++ {
		fmt.Fprintf(&counts, "%d:%d ", i, m.ChangeCount(i))
	}
	lines = append(lines, strings.TrimRight(counts.String(), " "))

	for _, a := range m.Analysis() {
		if !decode.AnalysisWorthy(a.Raw) {
			continue
		}
		var hyp []string
		for _, h := range a.Hypotheses {
			hyp = append(hyp, h.String())
		}
		lines = append(lines, fmt.Sprintf("  [Byte %d potential temp] Raw: %d | %s | windows: %s",
			a.Index, a.Raw, strings.Join(hyp, " "), c.Names(a.Windows)))
	}
	return lines
}

// DeltaLine renders a candidate update, bracketing the bytes that changed.
// An update without changes renders as the empty string.
func DeltaLine(u *candidate.Update) string {
	if !u.Changed {
		return ""
	}
	var out strings.Builder
	out.WriteString(highlight("★ CHANGE") + " in " + idColor("0x%03X", u.ID) + ": ")
	for i := 0; i < u.Length; i++ {
		d, ok := u.Delta(i)
		if !ok {
			fmt.Fprintf(&out, "%02X ", u.Data[i])
			continue
		}
		fmt.Fprintf(&out, "[%02X→%02X] ", d.From, d.To)
		if d.Plausible() {
			out.WriteString(tempColor("(%.1f°C) ", d.Celsius))
		}
	}
	return strings.TrimRight(out.String(), " ")
}

// rankCell renders "B3:12 (21.5°C) " for one ranked position.
func rankCell(r Ranked) string {
	var out strings.Builder
	fmt.Fprintf(&out, "B%d:%d ", r.Index, r.Changes)
	if len(r.Values) == 1 {
		fmt.Fprintf(&out, "(%.1f°C) ", r.Values[0].Celsius)
	} else if len(r.Values) > 1 {
		var vals []string
		for _, v := range r.Values {
			vals = append(vals, v.String())
		}
		fmt.Fprintf(&out, "(%s) ", strings.Join(vals, " "))
	}
	return out.String()
}

// RankLine is one table row: identifier, total changes and the top bytes.
func RankLine(src Source, top int) string {
	var out strings.Builder
	fmt.Fprintf(&out, "0x%03X | %7d | ", src.ID(), TotalChanges(src))
	for _, r := range TopBytes(src, top) {
		out.WriteString(rankCell(r))
	}
	return strings.TrimRight(out.String(), " ")
}

// WriteCandidateTable prints the candidate session summary.
func WriteCandidateTable(w io.Writer, cands []*candidate.Candidate) error {
	if len(cands) == 0 {
		_, err := fmt.Fprintln(w, "No temperature candidates tracked yet")
		return err
	}
	srcs := make([]Source, len(cands))
	for i, c := range cands {
		srcs[i] = c
	}
	return writeTable(w, "TEMPERATURE CANDIDATE MESSAGES", srcs)
}

// WriteSurveyTable prints the history store summary. When onlyCandidates is
// set, identifiers whose latest frame was not flagged are skipped.
func WriteSurveyTable(w io.Writer, msgs []*history.Message, onlyCandidates bool) error {
	var srcs []Source
	for _, m := range msgs {
		if onlyCandidates && !m.IsCandidate() {
			continue
		}
		srcs = append(srcs, m)
	}
	if len(srcs) == 0 {
		_, err := fmt.Fprintln(w, "No messages tracked yet")
		return err
	}
	return writeTable(w, "CAN SURVEY", srcs)
}

func writeTable(w io.Writer, title string, srcs []Source) error {
	if _, err := fmt.Fprintf(w, "\n--- %s ---\n", title); err != nil {
		return err
	}
	fmt.Fprintln(w, "ID     | Changes | Most Active Bytes")
	fmt.Fprintln(w, "-------|---------|------------------")
	for _, s := range srcs {
		if _, err := fmt.Fprintln(w, RankLine(s, DefaultTop)); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "-------------------------------------")
	return err
}
