/*
Package lazy provides a mapping that defers its population until first use.

A Map fires a ReadHook exactly once, before the first access of any kind is
served, and an UpdateHook after every mutation. The ReadHook receives a Filler
which is the only way to populate the Map without the mutation being reported,
so data loaded from a backing store is never mistaken for a user change.

	m := lazy.New(
		lazy.WithReadHook(func(ctx context.Context, f lazy.Filler) error {
			f.Fill(map[string]any{"user": "alice"})
			return nil
		}),
		lazy.WithUpdateHook(func() { dirty = true }),
	)
*/
package lazy
