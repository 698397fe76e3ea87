package corectx

import "reflect"

// NotifyWhenAutowired registers a zero-argument callback to run the moment
// a T becomes available to ctx — either immediately, if some ancestor
// already has one, or later, the first time Add installs one anywhere
// Autowire[T](ctx, ...) would have found it. Unlike an autowired.Field, it
// never holds a value itself; it exists purely to let original_source's
// CoreContext::NotifyWhenAutowired one-shot idiom exist in Go without
// forcing the caller to declare a field. Supplemental feature from
// original_source/CoreContext.h, not present in spec.md's distillation.
func NotifyWhenAutowired[T any](ctx *Context, fn func()) {
	field := &callbackField{t: reflect.TypeOf((*T)(nil)).Elem(), fn: fn}
	_ = Autowire[T](ctx, field)
}

// callbackField is a DeferrableAutowiring that ignores the value it is
// satisfied with and just runs its callback once.
type callbackField struct {
	t     reflect.Type
	fn    func()
	flink DeferrableAutowiring
	ran   bool
}

func (f *callbackField) GetType() reflect.Type                      { return f.t }
func (f *callbackField) GetFlink() DeferrableAutowiring              { return f.flink }
func (f *callbackField) SetFlink(next DeferrableAutowiring)          { f.flink = next }
func (f *callbackField) ReleaseDependentChain() DeferrableAutowiring { return nil }
func (f *callbackField) GetStrategy() AutowiringStrategy             { return nil }

func (f *callbackField) SatisfyAutowiring(value any) bool {
	if !f.ran {
		f.ran = true
		f.fn()
	}
	return true
}
