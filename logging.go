package corectx

import "go.uber.org/zap"

// Per-node structured logging. Grounded on
// 2lar-b2/backend2/infrastructure/di/providers.go's ProvideLogger: a
// *zap.Logger is constructed once and threaded through the composition
// root. corectx inherits the parent's logger into each child at creation
// time (overridable per node with SetLogger) and defaults to a no-op
// logger so the core carries zero overhead when the embedding application
// never configures one.

// SetLogger attaches l to ctx; children created after this call inherit
// it unless they are given their own logger.
func (ctx *Context) SetLogger(l *zap.Logger) {
	ctx.mu.Lock()
	ctx.log = l
	ctx.mu.Unlock()
}

// Logger returns ctx's effective logger.
func (ctx *Context) Logger() *zap.Logger {
	return ctx.logger()
}

func (ctx *Context) logger() *zap.Logger {
	ctx.mu.Lock()
	l := ctx.log
	ctx.mu.Unlock()
	if l == nil {
		return zap.NewNop()
	}
	return l
}

func zapErrField(err error) zap.Field {
	return zap.Error(err)
}
