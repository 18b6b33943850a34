// Package gpu is the graphics resource layer of the shapes engine.
//
// It wraps a hal.Device and hal.Queue obtained from the host and owns
// every GPU object the engine creates: shader programs, vertex and uniform
// buffers, floating-point state textures, and the render target that frames
// are encoded into.
//
// # Programs
//
// WGSL sources are compiled through naga before any device call is made, so
// a rejected shader surfaces as a [*CompileError] carrying the compiler's
// diagnostic text. Failures after that point (shader module, layouts,
// pipeline) surface as [*LinkError]. Either way nothing created during the
// failed attempt stays alive.
//
// # Resource accounting
//
// Every object allocated through a [Context] is registered with its
// [Tracker], which counts live objects per kind. The engine uses the counts
// to prove that mode switches do not leak.
//
// # Frames
//
// [Context.BeginFrame] acquires the target view and opens one render pass;
// [Frame.Submit] ends it, submits the command buffer and presents surface
// targets. Command buffers are freed once the queue reports their
// submission index as completed, so frame encoding never waits on the GPU.
package gpu
