package stackexchange

import "context"

// SkipDecision decides whether the profile fetch is skipped for a token.
// It is one of SkipAlways, SkipPredicate or SkipFunc.
type SkipDecision interface {
	shouldSkip(ctx context.Context, accessToken string) (bool, error)
}

// SkipAlways is a fixed decision
type SkipAlways bool

func (s SkipAlways) shouldSkip(context.Context, string) (bool, error) {
	return bool(s), nil
}

// SkipPredicate is evaluated on every request without looking at the token
type SkipPredicate func() bool

func (s SkipPredicate) shouldSkip(context.Context, string) (bool, error) {
	return s(), nil
}

// SkipFunc inspects the token and may fail, e.g. when it consults a cache
type SkipFunc func(ctx context.Context, accessToken string) (bool, error)

func (s SkipFunc) shouldSkip(ctx context.Context, accessToken string) (bool, error) {
	return s(ctx, accessToken)
}

func resolveSkip(ctx context.Context, d SkipDecision, accessToken string) (bool, error) {
	if d == nil {
		return false, nil
	}
	return d.shouldSkip(ctx, accessToken)
}
