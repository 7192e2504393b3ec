// Package lola owns the command side of the LoLA wire protocol.
//
// Responsibilities: the fixed hardware channel layout (channel groups and
// their array lengths), the index maps that translate bus-side channel
// ordering into hardware ordering, the per-cycle CommandFrameBuilder, and
// the MessagePack codec for command and sensor frames.
// Key types: Group, ChannelUpdate, CommandFrameBuilder, CommandFrame,
// SensorFrame.
//
// Dependency rule: lola has no knowledge of transports or buses. The bridge
// package owns concurrency and the control cycle.
package lola
