// Package op defines the placeholder encoding shared by the recording
// and replay halves of the deferred-operation pipeline: the opcode
// enumeration, the reserved callee-name prefix, and the metadata tag key
// that carries an opcode on a placeholder declaration.
package op

import "fmt"

// Opcode identifies which deferred operation a placeholder stands for.
// The value is stored as a small-integer metadata tag on the placeholder
// declaration.
type Opcode int64

const (
	// Nop is the reserved sentinel. It is never recorded; seeing it at
	// dispatch means the recorder and replayer disagree about the
	// encoding.
	Nop Opcode = iota

	// Resource-descriptor loads. All take (set, binding, index,
	// nonUniform) except LoadSpillTablePtr, which takes no arguments.
	// Pointer-returning loads recover their pointee type from the
	// placeholder's declared result type.
	LoadBufferDesc
	LoadSamplerDesc
	LoadResourceDesc
	LoadTexelBufferDesc
	LoadFmaskDesc
	LoadSpillTablePtr

	// WaterfallLoop wraps a value-producing operation whose designated
	// operands may vary across parallel lanes. WaterfallStoreLoop is the
	// side-effect-tagging variant for resultless stores: the placeholder
	// intercepts one of the store's inputs rather than producing a value.
	WaterfallLoop
	WaterfallStoreLoop

	// Kill is the termination operation.
	Kill

	// ReadClock reads the clock; its single argument selects realtime.
	ReadClock
)

// CallPrefix is the reserved name prefix carried by every placeholder
// declaration. A function name with this prefix and no opcode tag is a
// fatal encoding inconsistency.
const CallPrefix = "defir.call."

// TagKey is the metadata tag key under which a placeholder declaration
// stores its opcode.
const TagKey = "defir.opcode"

var names = map[Opcode]string{
	Nop:                 "nop",
	LoadBufferDesc:      "load.buffer.desc",
	LoadSamplerDesc:     "load.sampler.desc",
	LoadResourceDesc:    "load.resource.desc",
	LoadTexelBufferDesc: "load.texelbuffer.desc",
	LoadFmaskDesc:       "load.fmask.desc",
	LoadSpillTablePtr:   "load.spilltable.ptr",
	WaterfallLoop:       "waterfall.loop",
	WaterfallStoreLoop:  "waterfall.store.loop",
	Kill:                "kill",
	ReadClock:           "read.clock",
}

// String returns the opcode's dotted name, e.g. "load.buffer.desc".
func (o Opcode) String() string {
	if n, ok := names[o]; ok {
		return n
	}
	return fmt.Sprintf("opcode(%d)", int64(o))
}

// CallName returns the reserved declaration name for the opcode, e.g.
// "defir.call.load.buffer.desc".
func (o Opcode) CallName() string {
	return CallPrefix + o.String()
}
