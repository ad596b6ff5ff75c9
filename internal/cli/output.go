// pattern: Imperative Shell
package cli

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"featwt/internal/worktree"
)

// Format selects how command results are written.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	}
	return "", usageErrorf("", "invalid format %q: must be one of text, json, csv", s)
}

var recordHeader = []string{
	"name", "branch", "base", "path", "active", "checked_out", "missing",
	"dirty", "untracked", "unpushed", "upstream", "operation",
}

// Printer writes command results in the selected format. Results go to out,
// warnings and errors to errOut.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	format Format
	styles *Styles
	tty    bool
}

// NewPrinter creates a Printer. When tty is false, text output carries no
// escape sequences and JSON is written compactly.
func NewPrinter(out, errOut io.Writer, format Format, theme string, tty bool) *Printer {
	return &Printer{
		out:    out,
		errOut: errOut,
		format: format,
		styles: NewStyles(theme),
		tty:    tty,
	}
}

func (p *Printer) json(v any) error {
	return p.jsonTo(p.out, v)
}

func (p *Printer) jsonTo(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	if p.tty {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(v)
}

func (p *Printer) csv(header []string, rows ...[]string) error {
	w := csv.NewWriter(p.out)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	return w.Error()
}

// text writes s, stripping styling when not on a terminal.
func (p *Printer) text(w io.Writer, s string) error {
	if !p.tty {
		s = StripANSI(s)
	}
	_, err := io.WriteString(w, s)
	return err
}

func (p *Printer) warnings(warnings []string) {
	for _, w := range warnings {
		_ = p.text(p.errOut, p.styles.WarningStyle().Render("warning:")+" "+w+"\n")
	}
}

// Created reports a newly created worktree.
func (p *Printer) Created(rec worktree.Record) error {
	switch p.format {
	case FormatJSON:
		return p.json(rec)
	case FormatCSV:
		return p.csv(recordHeader, recordRow(rec))
	}
	var sb strings.Builder
	sb.WriteString(p.styles.SuccessStyle().Render("Created") + " " + p.styles.TitleStyle().Render(rec.Name) + "\n")
	p.details(&sb, rec)
	return p.text(p.out, sb.String())
}

// List reports one page of worktrees.
func (p *Printer) List(page worktree.ListPage) error {
	p.warnings(page.Warnings)
	switch p.format {
	case FormatJSON:
		return p.json(page)
	case FormatCSV:
		rows := make([][]string, 0, len(page.Items))
		for _, rec := range page.Items {
			rows = append(rows, recordRow(rec))
		}
		return p.csv(recordHeader, rows...)
	}

	if page.Total == 0 {
		return p.text(p.out, p.styles.MutedStyle().Render("No feature worktrees.")+"\n")
	}

	t := &table{
		headers:     []string{"", "NAME", "BRANCH", "BASE", "STATUS", "PATH"},
		headerStyle: p.styles.HeaderStyle(),
	}
	for _, rec := range page.Items {
		marker := " "
		name := rec.Name
		if rec.IsActive {
			marker = p.styles.AccentStyle().Render("*")
			name = p.styles.AccentStyle().Render(name)
		}
		branch := rec.Branch
		if !rec.CheckedOut {
			branch = p.styles.MutedStyle().Render("(detached)")
		}
		t.addRow(marker, name, branch, rec.BaseRef, p.recordStatus(rec), rec.Path)
	}
	if err := t.render(p.out, !p.tty); err != nil {
		return err
	}

	pages := (page.Total + page.PageSize - 1) / page.PageSize
	footer := fmt.Sprintf("page %d of %d, %d total", page.Page, pages, page.Total)
	return p.text(p.out, p.styles.MutedStyle().Render(footer)+"\n")
}

// Switched reports a switch. Text output is only the target path so a
// shell wrapper can cd into it; warnings go to errOut in every format.
func (p *Printer) Switched(res worktree.SwitchResult) error {
	p.warnings(res.Warnings)
	switch p.format {
	case FormatJSON:
		return p.json(res)
	case FormatCSV:
		return p.csv(recordHeader, recordRow(res.Current))
	}
	_, err := fmt.Fprintln(p.out, res.Current.Path)
	return err
}

// Removed reports a removal.
func (p *Printer) Removed(res worktree.RemoveResult) error {
	switch p.format {
	case FormatJSON:
		return p.json(res)
	case FormatCSV:
		return p.csv(
			[]string{"name", "path", "removed", "branch", "branch_deleted", "base", "branch_reasons"},
			[]string{
				res.Record.Name, res.Record.Path, strconv.FormatBool(res.Removed), res.Branch,
				strconv.FormatBool(res.BranchDeleted), res.Base, strings.Join(res.BranchReasons, "; "),
			},
		)
	}

	var sb strings.Builder
	sb.WriteString(p.styles.SuccessStyle().Render("Removed") + " " + p.styles.TitleStyle().Render(res.Record.Name) + "\n")
	switch {
	case res.BranchDeleted:
		fmt.Fprintf(&sb, "  deleted branch %s (merged into %s)\n", res.Branch, res.Base)
	case len(res.BranchReasons) > 0:
		fmt.Fprintf(&sb, "  %s %s\n", p.styles.WarningStyle().Render("kept branch"), res.Branch)
		for _, r := range res.BranchReasons {
			fmt.Fprintf(&sb, "    - %s\n", r)
		}
	}
	return p.text(p.out, sb.String())
}

// Status reports one resolved worktree and the removal decision.
func (p *Printer) Status(rep worktree.StatusReport) error {
	switch p.format {
	case FormatJSON:
		return p.json(rep)
	case FormatCSV:
		header := append(append([]string{}, recordHeader...), "removable", "reasons")
		row := append(recordRow(rep.Worktree),
			strconv.FormatBool(rep.Removal.Allowed), strings.Join(rep.Removal.Reasons, "; "))
		return p.csv(header, row)
	}

	var sb strings.Builder
	sb.WriteString(p.styles.TitleStyle().Render(rep.Worktree.Name) + "\n")
	p.details(&sb, rep.Worktree)
	if rep.Removal.Allowed {
		fmt.Fprintf(&sb, "  %-9s %s\n", "removable", p.styles.SuccessStyle().Render("yes"))
	} else {
		fmt.Fprintf(&sb, "  %-9s %s\n", "removable", p.styles.WarningStyle().Render("no"))
		for _, r := range rep.Removal.Reasons {
			fmt.Fprintf(&sb, "    - %s\n", r)
		}
	}
	return p.text(p.out, sb.String())
}

// Values reports config key/value pairs in key order.
func (p *Printer) Values(keys []string, values map[string]string) error {
	switch p.format {
	case FormatJSON:
		return p.json(values)
	case FormatCSV:
		rows := make([][]string, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, []string{k, values[k]})
		}
		return p.csv([]string{"key", "value"}, rows...)
	}
	if len(keys) == 1 {
		_, err := fmt.Fprintln(p.out, values[keys[0]])
		return err
	}
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "%s = %s\n", p.styles.AccentStyle().Render(k), values[k])
	}
	return p.text(p.out, sb.String())
}

// Error reports a failed command on errOut. Every reason of a core error is
// listed.
func (p *Printer) Error(err error) {
	var we *worktree.Error
	isCore := errors.As(err, &we)

	if p.format == FormatJSON {
		body := map[string]any{
			"message":  err.Error(),
			"exitCode": ExitCode(err),
			"reasons":  worktree.ReasonsOf(err),
		}
		if isCore {
			body["kind"] = we.Kind
		}
		_ = p.jsonTo(p.errOut, map[string]any{"error": body})
		return
	}

	var sb strings.Builder
	label := p.styles.ErrorStyle().Render("error:")
	if isCore && len(we.Reasons) > 1 {
		head := we.Op
		if we.Name != "" {
			head += fmt.Sprintf(" %q", we.Name)
		}
		fmt.Fprintf(&sb, "%s %s: %s\n", label, head, strings.ReplaceAll(string(we.Kind), "_", " "))
		for _, r := range we.Reasons {
			fmt.Fprintf(&sb, "  - %s\n", r)
		}
	} else {
		fmt.Fprintf(&sb, "%s %v\n", label, err)
	}
	_ = p.text(p.errOut, sb.String())
}

func (p *Printer) details(sb *strings.Builder, rec worktree.Record) {
	field := func(k, v string) {
		fmt.Fprintf(sb, "  %-9s %s\n", k, v)
	}
	branch := rec.Branch
	if !rec.CheckedOut {
		branch = "(detached)"
	}
	field("branch", branch)
	field("base", rec.BaseRef)
	field("path", rec.Path)
	if rec.IsActive {
		field("active", p.styles.AccentStyle().Render("yes"))
	}
	if rec.Missing {
		field("status", p.recordStatus(rec))
	} else if rec.Status != nil {
		field("status", p.statusSummary(rec.Status))
		upstream := rec.Status.Upstream
		if upstream == "" {
			upstream = p.styles.MutedStyle().Render("(none)")
		}
		field("upstream", upstream)
	}
}

func (p *Printer) recordStatus(rec worktree.Record) string {
	if rec.Missing {
		return p.styles.ErrorStyle().Render("directory missing")
	}
	return p.statusSummary(rec.Status)
}

func (p *Printer) statusSummary(st *worktree.Status) string {
	if st == nil {
		return p.styles.MutedStyle().Render("-")
	}
	var parts []string
	if st.IsDirty {
		parts = append(parts, "dirty")
	}
	if st.HasUntracked {
		parts = append(parts, "untracked")
	}
	if st.HasUnpushedCommits {
		parts = append(parts, "unpushed")
	}
	if st.CheckedOut && !st.HasUpstream() {
		parts = append(parts, "no upstream")
	}
	if st.OpInProgress != "" && st.OpInProgress != worktree.OpNone {
		parts = append(parts, string(st.OpInProgress)+" in progress")
	}
	if len(parts) == 0 {
		return p.styles.SuccessStyle().Render("clean")
	}
	return p.styles.WarningStyle().Render(strings.Join(parts, ", "))
}

func recordRow(rec worktree.Record) []string {
	row := []string{
		rec.Name, rec.Branch, rec.BaseRef, rec.Path,
		strconv.FormatBool(rec.IsActive), strconv.FormatBool(rec.CheckedOut),
		strconv.FormatBool(rec.Missing),
	}
	if rec.Status == nil {
		return append(row, "", "", "", "", "")
	}
	st := rec.Status
	return append(row,
		strconv.FormatBool(st.IsDirty),
		strconv.FormatBool(st.HasUntracked),
		strconv.FormatBool(st.HasUnpushedCommits),
		st.Upstream,
		string(st.OpInProgress),
	)
}
