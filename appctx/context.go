package appctx

import "context"

// ContextKey is the shared type for all context keys in this codebase.
// Keeping it in a tiny package avoids import cycles (config <-> recon).
type ContextKey string

func (c ContextKey) String() string { return string(c) }

var (
	ContextKeyRunId      = ContextKey("RunId")
	ContextKeyOutletCode = ContextKey("OutletCode")
)

func GetString(ctx context.Context, key ContextKey) (string, bool) {
	v, ok := ctx.Value(key).(string)
	return v, ok
}

func Set(ctx context.Context, key ContextKey, value any) context.Context {
	return context.WithValue(ctx, key, value)
}

func GetRunId(ctx context.Context) (string, bool) {
	return GetString(ctx, ContextKeyRunId)
}

func SetRunId(ctx context.Context, runId string) context.Context {
	return Set(ctx, ContextKeyRunId, runId)
}

func GetOutletCode(ctx context.Context) (string, bool) {
	return GetString(ctx, ContextKeyOutletCode)
}

func SetOutletCode(ctx context.Context, outletCode string) context.Context {
	return Set(ctx, ContextKeyOutletCode, outletCode)
}
