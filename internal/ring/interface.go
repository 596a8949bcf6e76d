package ring

// Interface is implemented by both Ring (lock-free, single-producer/
// single-consumer) and LockedRing (mutex-guarded, safe for multiple
// producers/consumers), so callers can select either behind one type.
// Context.Config's MultiConsumer field picks which one Init constructs.
type Interface interface {
	Insert(p any) bool
	Extract() any
	Len() int
	Cap() int
	Pollfd() int
	Close() error
}

var (
	_ Interface = (*Ring)(nil)
	_ Interface = (*LockedRing)(nil)
)
