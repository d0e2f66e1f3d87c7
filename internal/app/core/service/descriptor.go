package service

// Layer describes which slice of the host a component belongs to: the
// frame-loop scheduler itself, a view-provider, the backing world store, a
// registered module, or host-wide diagnostics.
type Layer string

const (
	LayerScheduler    Layer = "scheduler"
	LayerProvider     Layer = "provider"
	LayerStore        Layer = "store"
	LayerModule       Layer = "module"
	LayerDiagnostics  Layer = "diagnostics"
)

// Descriptor advertises a component's placement and capabilities. It is
// optional and does not change runtime behavior, but lets a host enumerate
// its components consistently; Kernel.Stats does not use it.
type Descriptor struct {
	Name         string
	Domain       string
	Layer        Layer
	Capabilities []string
}

// WithCapabilities returns a copy of the descriptor with additional
// capabilities appended.
func (d Descriptor) WithCapabilities(caps ...string) Descriptor {
	if len(caps) == 0 {
		return d
	}
	combined := make([]string, 0, len(d.Capabilities)+len(caps))
	combined = append(combined, d.Capabilities...)
	combined = append(combined, caps...)
	d.Capabilities = combined
	return d
}
