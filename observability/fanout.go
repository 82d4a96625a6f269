package observability

import "context"

// NoOpObserver discards every event. Components default to it until an
// observer is configured.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(context.Context, Event) {}

// MultiObserver delivers each event to its members in order.
type MultiObserver []Observer

func (m MultiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m {
		obs.OnEvent(ctx, event)
	}
}

// Combine joins observers into one. Nil and NoOpObserver members are
// dropped and nested MultiObservers are flattened, so the app can stack the
// log, metrics and trace sinks without each event paying for empty slots.
// Combine returns NoOpObserver when nothing remains and the member itself
// when exactly one does.
func Combine(observers ...Observer) Observer {
	var out MultiObserver
	for _, obs := range observers {
		switch o := obs.(type) {
		case nil, NoOpObserver:
		case MultiObserver:
			out = append(out, o...)
		default:
			out = append(out, o)
		}
	}

	switch len(out) {
	case 0:
		return NoOpObserver{}
	case 1:
		return out[0]
	default:
		return out
	}
}
