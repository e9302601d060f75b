package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
)

// GitHubOutput appends key/value pairs to the file named by $GITHUB_OUTPUT.
// Multi-line values use the name<<DELIMITER form.
type GitHubOutput struct {
	Path string
}

// NewGitHubOutput returns nil when path is empty; a nil sink is a no-op.
func NewGitHubOutput(path string) *GitHubOutput {
	if path == "" {
		return nil
	}
	return &GitHubOutput{Path: path}
}

func (g *GitHubOutput) Emit(ctx context.Context, d Decision) error {
	if g == nil || g.Path == "" {
		return nil
	}

	var b strings.Builder
	writeKV(&b, "alert_needed", fmt.Sprintf("%t", d.Needed))
	if d.Needed {
		writeKV(&b, "alert_subject", oneLine(d.Subject))
		writeKV(&b, "alert_body", d.Body)
	}

	f, err := os.OpenFile(g.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open output: %w", err)
	}
	if _, err := f.WriteString(b.String()); err != nil {
		f.Close()
		return fmt.Errorf("write output: %w", err)
	}
	return f.Close()
}

func writeKV(b *strings.Builder, key, value string) {
	if !strings.ContainsAny(value, "\r\n") {
		fmt.Fprintf(b, "%s=%s\n", key, value)
		return
	}
	delim := "EOF_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	fmt.Fprintf(b, "%s<<%s\n%s\n%s\n", key, delim, strings.TrimRight(value, "\n"), delim)
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Writer prints the decision for humans, e.g. to stdout.
type Writer struct {
	W io.Writer
}

func (w Writer) Emit(ctx context.Context, d Decision) error {
	if w.W == nil {
		return nil
	}
	if !d.Needed {
		_, err := fmt.Fprintln(w.W, "alert_needed=false")
		return err
	}
	_, err := fmt.Fprintf(w.W, "alert_needed=true\nsubject: %s\n\n%s\n", oneLine(d.Subject), d.Body)
	return err
}
