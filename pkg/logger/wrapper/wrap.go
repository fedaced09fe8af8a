package wrap

import (
	"context"
	"errors"
)

// errorWithLogCtx carries the LogCtx that was active where the error was produced.
type errorWithLogCtx struct {
	err    error
	logCtx LogCtx
}

func (e *errorWithLogCtx) Error() string {
	return e.err.Error()
}

func (e *errorWithLogCtx) Unwrap() error {
	return e.err
}

// Error attaches the LogCtx of ctx to err. Wrapping an already wrapped error refreshes its LogCtx.
func Error(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}

	lc := fromCtx(ctx)

	var e *errorWithLogCtx
	if errors.As(err, &e) {
		return &errorWithLogCtx{err: err, logCtx: mergeLogCtx(e.logCtx, lc)}
	}

	return &errorWithLogCtx{err: err, logCtx: lc}
}

// ErrorCtx returns ctx enriched with the LogCtx stored inside err, if any.
func ErrorCtx(ctx context.Context, err error) context.Context {
	var e *errorWithLogCtx
	if errors.As(err, &e) && e != nil {
		return WithLogCtx(ctx, e.logCtx)
	}
	return ctx
}

func mergeLogCtx(old, cur LogCtx) LogCtx {
	if cur.Action == "" {
		cur.Action = old.Action
	}
	if cur.UserID == "" {
		cur.UserID = old.UserID
	}
	if cur.RequestID == "" {
		cur.RequestID = old.RequestID
	}
	if cur.PackageID == "" {
		cur.PackageID = old.PackageID
	}
	return cur
}
