package viewprovider

import (
	"time"

	"github.com/nexar-sim/modulehost/world"
	"github.com/nexar-sim/modulehost/worldstore"
)

// storeView is the common world.View implementation backing all three
// providers: a worldstore.Store plus the tick and wall-clock time the
// provider resolved it at.
type storeView struct {
	store worldstore.Store
	tick  uint64
	time  time.Time
}

func newStoreView(store worldstore.Store, tick uint64, when time.Time) *storeView {
	return &storeView{store: store, tick: tick, time: when}
}

func (v *storeView) Tick() uint64    { return v.tick }
func (v *storeView) Time() time.Time { return v.time }

func (v *storeView) ReadComponent(e world.EntityHandle, typ world.ComponentTypeID) (any, bool) {
	return v.store.ReadComponent(e, typ)
}

func (v *storeView) ReadManagedComponent(e world.EntityHandle, typ world.ComponentTypeID) (any, bool) {
	return v.store.ReadComponent(e, typ)
}

func (v *storeView) Alive(e world.EntityHandle) bool {
	return v.store.Alive(e)
}

func (v *storeView) ConsumeEvents(typ world.EventTypeID) []world.Event {
	var out []world.Event
	for _, e := range v.store.Bus().Current() {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

func (v *storeView) Query() world.QueryBuilder {
	return v.store.Query()
}
