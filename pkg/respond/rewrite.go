package respond

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const rewriteTimeout = 30 * time.Second

// rewrite asks the completion service to compress the reply to the
// character ceiling. One attempt, never retried: a failure here is a
// fallback to truncation, not an error.
func (r *Responder) rewrite(ctx context.Context, reply string) (string, error) {
	prompt := fmt.Sprintf(
		"Rewrite the following reply so it fits in at most %d characters. "+
			"Keep the meaning and tone, drop nothing essential, and return only the rewritten text with no quotes or commentary.\n\n%s",
		r.charLimit, reply)

	rewriteCtx, cancel := context.WithTimeout(ctx, rewriteTimeout)
	defer cancel()

	out, err := r.rewriter.Generate(rewriteCtx, prompt)
	if err != nil {
		return "", err
	}

	out = strings.TrimSpace(strings.Trim(strings.TrimSpace(out), `"`))
	if out == "" {
		return "", fmt.Errorf("completion service returned empty rewrite")
	}
	if len([]rune(out)) > r.charLimit {
		// The model overshot; truncation is still the contract.
		out = Truncate(out, r.charLimit)
	}
	return out, nil
}
