// Package persistent implements the engine-side persistent handle table.
//
// The host cannot hold engine values directly: anything it keeps must be
// rooted in a Table. A ref is strong by default. Marking it weak makes it a
// candidate for the next collection pass, which is the engine-side
// collector in this module:
//
//	tbl := persistent.NewTable()
//	ref, _ := tbl.New(v)
//	tbl.SetWeak(ref, func(r persistent.Ref) {
//		if mayFree(r) {
//			tbl.Reset(r)
//		} else {
//			tbl.ClearWeak(r)
//		}
//	})
//	res := tbl.Collect(0)
//
// Callbacks run on the collecting goroutine without the table lock held.
// A weak ref with no callback is released unconditionally.
//
// # Observers
//
// Observers receive created, released, weakened, strengthened, collected
// and revived events. They are called synchronously and must not block.
package persistent
