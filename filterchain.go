package corectx

// filterException walks ctx's filters, then its parent's, then its
// parent's parent, offering each a rethrow hook that simply returns err.
// A filter returning nil has swallowed the exception and the walk stops;
// a filter returning non-nil declines (optionally having transformed err)
// and the next filter in the chain is tried. Returns true iff some filter
// swallowed it.
func (ctx *Context) filterException(err error) bool {
	for node := ctx; node != nil; node = node.parent {
		node.mu.Lock()
		filters := append([]ExceptionFilter(nil), node.filters...)
		node.mu.Unlock()

		for _, f := range filters {
			current := err
			if res := f.Filter(func() error { return current }); res == nil {
				recordFilterCatch("user")
				return true
			} else {
				err = res
			}
		}
	}
	return false
}

// filterFiringException is filterException's counterpart for exceptions
// thrown by a receiver during Fire/Defer (spec.md §4.6): proxy and
// recipient tag which event and which listener threw.
func (ctx *Context) filterFiringException(err error, proxy any, recipient any) bool {
	for node := ctx; node != nil; node = node.parent {
		node.mu.Lock()
		filters := append([]ExceptionFilter(nil), node.filters...)
		node.mu.Unlock()

		for _, f := range filters {
			current := err
			if res := f.FilterFiringException(func() error { return current }, proxy, recipient); res == nil {
				recordFilterCatch("listener")
				return true
			} else {
				err = res
			}
		}
	}
	return false
}

// callProtected runs fn, recovering any panic and offering it to ctx's
// FilterException chain (spec.md §7 UserException: "Offered to
// FilterException chain, then re-thrown if unhandled"). Returns nil if fn
// completed normally or its panic was swallowed by a filter; otherwise
// returns the panic wrapped in *UserException for the caller to handle or
// re-panic.
func callProtected(ctx *Context, fn func()) (result error) {
	defer func() {
		if r := recover(); r != nil {
			err := toError(r)
			if ctx.filterException(err) {
				result = nil
				return
			}
			result = &UserException{Err: err}
		}
	}()
	fn()
	return nil
}
