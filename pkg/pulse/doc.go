// Package pulse provides a small reactive-state runtime for component-based
// user interfaces.
//
// # Core Types
//
// Signal[T] is an observable value cell:
//
//	count := pulse.NewSignal(0)
//	unsubscribe := count.Subscribe(func(n int) { fmt.Println("count:", n) })
//	count.Set(1) // prints "count: 1" before Set returns
//	unsubscribe()
//
// Binding[T] connects a rendering component to a signal:
//
//	b := pulse.Bind(count, component.ForceUpdate)
//	render(b.Value())
//	defer b.Dispose()
//
// The event bus maps event names to ordered handler lists. Default returns
// the process-wide bus; it is created on first use and lives for the rest of
// the process. There is no way to reset it.
//
//	pulse.On("save", func(ctx context.Context, payload any) error { ... })
//	pulse.Emit("save", doc)
//
// RegisterAsyncEffect wires an event to an asynchronous action and keeps the
// "loading" and "error" signals of a Store up to date:
//
//	store := pulse.NewStore()
//	pulse.RegisterAsyncEffect("load", func(ctx context.Context, _ any) error {
//	    users, err := api.Users(ctx)
//	    if err != nil {
//	        return err
//	    }
//	    usersSignal.Set(users)
//	    return nil
//	}, store)
//
// # Threading
//
// The runtime is written for a single logical UI thread: signal writes and
// bus dispatch are synchronous. All types are nevertheless safe to use from
// several goroutines; async actions always run on their own goroutine.
package pulse
