package judge

import "context"

// Completer sends a prompt to a language-model judge and returns its free-text answer.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
