package logging

import "context"

type contextKey int

const (
	gameIDKey contextKey = iota
	personIndexKey
)

// WithGameID attaches a game session identifier to the context so every log
// record emitted during that session carries it.
func WithGameID(ctx context.Context, gameID string) context.Context {
	return context.WithValue(ctx, gameIDKey, gameID)
}

// GetGameID extracts the game session identifier from the context.
func GetGameID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(gameIDKey).(string)
	return id, ok
}

// WithPersonIndex attaches the current arrival index to the context.
func WithPersonIndex(ctx context.Context, index int) context.Context {
	return context.WithValue(ctx, personIndexKey, index)
}

// GetPersonIndex extracts the current arrival index from the context.
func GetPersonIndex(ctx context.Context) (int, bool) {
	i, ok := ctx.Value(personIndexKey).(int)
	return i, ok
}
