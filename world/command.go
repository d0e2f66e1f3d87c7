package world

// CommandKind identifies which mutation a Command performs and which
// harvest sub-phase (§4.8) it belongs to: create/stage, mutate, or
// destroy/teardown.
type CommandKind int

const (
	CommandCreateEntity CommandKind = iota
	CommandSetLifecycle
	CommandSetComponent
	CommandAddComponent
	CommandRemoveComponent
	CommandPublishEvent
	CommandDestroyEntity
)

// Phase returns which of the three harvest sub-phases a command belongs to.
func (k CommandKind) Phase() HarvestPhase {
	switch k {
	case CommandCreateEntity:
		return PhaseCreate
	case CommandDestroyEntity:
		return PhaseDestroy
	default:
		return PhaseMutate
	}
}

// HarvestPhase is one of the three ordered sub-phases command playback runs
// within a single harvest: create/stage, mutate, destroy/teardown.
type HarvestPhase int

const (
	PhaseCreate HarvestPhase = iota
	PhaseMutate
	PhaseDestroy
)

// Command is a single deferred mutation recorded by a module's tick and
// applied only on the main thread during harvest.
type Command struct {
	Kind CommandKind

	// Entity addresses the command's target. For CommandCreateEntity it is
	// the caller-chosen provisional handle; at apply time the kernel
	// assigns the real handle and remaps the buffer's later commands to it.
	Entity EntityHandle

	Component ComponentTypeID
	Value     any

	Lifecycle LifecycleState

	Event EventTypeID
}

// CommandBuffer records one module task's deferred mutations in insertion
// order. It is thread-local to that task; the kernel only reads it back
// during the single-threaded harvest phase.
type CommandBuffer struct {
	commands []Command
}

// NewCommandBuffer returns an empty buffer.
func NewCommandBuffer() *CommandBuffer {
	return &CommandBuffer{}
}

// CreateEntity stages a new entity. provisional is a caller-chosen handle
// used only to address follow-up commands (AddComponent, SetComponent,
// SetLifecycleState targeting the new entity) within the same buffer; the kernel
// remaps it to a real handle during the create sub-phase.
func (b *CommandBuffer) CreateEntity(provisional EntityHandle) {
	b.commands = append(b.commands, Command{Kind: CommandCreateEntity, Entity: provisional})
}

// DestroyEntity queues entity for teardown.
func (b *CommandBuffer) DestroyEntity(entity EntityHandle) {
	b.commands = append(b.commands, Command{Kind: CommandDestroyEntity, Entity: entity})
}

// SetComponent overwrites entity's value for typ, which must already be
// present.
func (b *CommandBuffer) SetComponent(entity EntityHandle, typ ComponentTypeID, value any) {
	b.commands = append(b.commands, Command{Kind: CommandSetComponent, Entity: entity, Component: typ, Value: value})
}

// AddComponent attaches typ to entity with the given initial value.
func (b *CommandBuffer) AddComponent(entity EntityHandle, typ ComponentTypeID, value any) {
	b.commands = append(b.commands, Command{Kind: CommandAddComponent, Entity: entity, Component: typ, Value: value})
}

// RemoveComponent detaches typ from entity.
func (b *CommandBuffer) RemoveComponent(entity EntityHandle, typ ComponentTypeID) {
	b.commands = append(b.commands, Command{Kind: CommandRemoveComponent, Entity: entity, Component: typ})
}

// PublishEvent appends an event of type typ to the live bus's current-frame
// buffer.
func (b *CommandBuffer) PublishEvent(typ EventTypeID, payload any) {
	b.commands = append(b.commands, Command{Kind: CommandPublishEvent, Event: typ, Value: payload})
}

// SetLifecycleState transitions entity's lifecycle state.
func (b *CommandBuffer) SetLifecycleState(entity EntityHandle, state LifecycleState) {
	b.commands = append(b.commands, Command{Kind: CommandSetLifecycle, Entity: entity, Lifecycle: state})
}

// Commands returns the buffer's recorded commands in insertion order.
func (b *CommandBuffer) Commands() []Command {
	return b.commands
}

// Len reports how many commands are recorded.
func (b *CommandBuffer) Len() int {
	return len(b.commands)
}

// Reset clears the buffer for reuse, keeping its backing array.
func (b *CommandBuffer) Reset() {
	b.commands = b.commands[:0]
}
