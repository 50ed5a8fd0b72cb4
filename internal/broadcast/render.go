package broadcast

import (
	"strings"

	"github.com/dustin/go-humanize"
)

// Default message templates. Placeholders are replaced by Renderer.
const (
	DefaultProgressTemplate  = "📢 Broadcast Progress:\n\n👥 Total Users: {total}\n✅ Success: {success}\n❌ Failed: {failed}"
	DefaultCompletedTemplate = "✅ Broadcast Completed:\n\n⏳ Time Taken: {elapsed}\n👥 Total Users: {total}\n✅ Success: {success}\n❌ Failed: {failed}"
	DefaultCancelledTemplate = "🛑 Broadcast Cancelled:\n\n⏳ Time Taken: {elapsed}\n👥 Total Users: {total}\n📨 Processed: {processed}\n✅ Success: {success}\n❌ Failed: {failed}"
	DefaultAbortedTemplate   = "⚠️ Broadcast stopped early after {processed} of {total} users.\n✅ Success: {success}\n❌ Failed: {failed}"
)

// Renderer turns progress snapshots and summaries into admin-facing text.
//
// Supported placeholders: {total} {processed} {success} {failed} {removed}
// {blocked} {elapsed}. Counts are rendered with thousands separators.
type Renderer struct {
	ProgressTemplate  string
	CompletedTemplate string
	CancelledTemplate string
	AbortedTemplate   string
}

// DefaultRenderer returns a Renderer using the built-in templates.
func DefaultRenderer() Renderer {
	return Renderer{
		ProgressTemplate:  DefaultProgressTemplate,
		CompletedTemplate: DefaultCompletedTemplate,
		CancelledTemplate: DefaultCancelledTemplate,
		AbortedTemplate:   DefaultAbortedTemplate,
	}
}

func (r Renderer) Progress(p Progress) string {
	tmpl := r.ProgressTemplate
	if tmpl == "" {
		tmpl = DefaultProgressTemplate
	}
	return fill(tmpl, Summary{Total: p.Total, Processed: p.Processed, Succeeded: p.Succeeded, Failed: p.Failed})
}

func (r Renderer) Completed(s Summary) string {
	tmpl := r.CompletedTemplate
	if tmpl == "" {
		tmpl = DefaultCompletedTemplate
	}
	return fill(tmpl, s)
}

func (r Renderer) Cancelled(s Summary) string {
	tmpl := r.CancelledTemplate
	if tmpl == "" {
		tmpl = DefaultCancelledTemplate
	}
	return fill(tmpl, s)
}

// Aborted renders the summary of a job stopped by a store failure.
func (r Renderer) Aborted(s Summary) string {
	tmpl := r.AbortedTemplate
	if tmpl == "" {
		tmpl = DefaultAbortedTemplate
	}
	return fill(tmpl, s)
}

func fill(tmpl string, s Summary) string {
	return strings.NewReplacer(
		"{total}", humanize.Comma(int64(s.Total)),
		"{processed}", humanize.Comma(int64(s.Processed)),
		"{success}", humanize.Comma(int64(s.Succeeded)),
		"{failed}", humanize.Comma(int64(s.Failed)),
		"{removed}", humanize.Comma(int64(s.Removed)),
		"{blocked}", humanize.Comma(int64(s.Blocked)),
		"{elapsed}", s.ElapsedString(),
	).Replace(tmpl)
}
