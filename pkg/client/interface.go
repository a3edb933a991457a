package client

import "context"

// ChatClient sends a system and user message to a chat model and returns
// the model's reply text.
type ChatClient interface {
	Complete(ctx context.Context, model, system, user string, temperature float64) (string, error)
}
