package kernel

import (
	"github.com/nexar-sim/modulehost/world"
)

// harvestedBuffer pairs a module's completed command buffer with the
// module it came from. playback applies buf; it does not read module.
type harvestedBuffer struct {
	module *moduleState
	buf    *world.CommandBuffer
}

// playback applies every command in batch across the three ordered
// sub-phases of §4.8: create/stage, mutate, destroy/teardown. Within each
// sub-phase, commands are interleaved by batch order (which callers build
// in module registration order) and, within one module's buffer, by
// insertion order. A create command's provisional handle is remapped to
// the real handle the live store assigns, scoped to that module's own
// buffer so two modules creating entities in the same harvest never
// collide.
func (k *Kernel) playback(batch []harvestedBuffer) {
	if len(batch) == 0 {
		return
	}

	remaps := make([]map[world.EntityHandle]world.EntityHandle, len(batch))

	for i, hb := range batch {
		remap := make(map[world.EntityHandle]world.EntityHandle)
		for _, cmd := range hb.buf.Commands() {
			if cmd.Kind != world.CommandCreateEntity {
				continue
			}
			remap[cmd.Entity] = k.live.CreateEntity()
		}
		remaps[i] = remap
	}

	for i, hb := range batch {
		remap := remaps[i]
		for _, cmd := range hb.buf.Commands() {
			switch cmd.Kind {
			case world.CommandCreateEntity, world.CommandDestroyEntity:
				continue
			case world.CommandSetComponent:
				entity := resolveEntity(remap, cmd.Entity)
				k.live.SetComponent(entity, cmd.Component, cmd.Value)
				k.trig.RecordWrite(cmd.Component, k.tick)
			case world.CommandAddComponent:
				entity := resolveEntity(remap, cmd.Entity)
				k.live.AddComponent(entity, cmd.Component, cmd.Value)
				k.trig.RecordWrite(cmd.Component, k.tick)
			case world.CommandRemoveComponent:
				entity := resolveEntity(remap, cmd.Entity)
				k.live.RemoveComponent(entity, cmd.Component)
				k.trig.RecordWrite(cmd.Component, k.tick)
			case world.CommandSetLifecycle:
				entity := resolveEntity(remap, cmd.Entity)
				k.live.SetLifecycle(entity, cmd.Lifecycle)
			case world.CommandPublishEvent:
				k.live.Bus().Publish(cmd.Event, k.tick, cmd.Value)
				k.trig.RecordEvent(cmd.Event)
			}
		}
	}

	for i, hb := range batch {
		remap := remaps[i]
		for _, cmd := range hb.buf.Commands() {
			if cmd.Kind != world.CommandDestroyEntity {
				continue
			}
			k.live.DestroyEntity(resolveEntity(remap, cmd.Entity))
		}
	}
}

func resolveEntity(remap map[world.EntityHandle]world.EntityHandle, h world.EntityHandle) world.EntityHandle {
	if real, ok := remap[h]; ok {
		return real
	}
	return h
}
