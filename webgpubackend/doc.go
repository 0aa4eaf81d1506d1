// Package webgpubackend is the one shipped gapi.Device implementation,
// backed by github.com/cogentcore/webgpu (wgpu-native) and a GLFW window
// for surface presentation. It is grounded on the bootstrap, pipeline, and
// buffer/texture-management code in Gekko3D-gekko's gpu_operations.go and
// mod_platform_window.go, and on voxelrt/rt/gpu's manager.go resource
// patterns.
//
// wgpu's command buffers are single-use: once submitted they cannot be
// resubmitted. rendercore.Job, by contrast, records a frame's commands once
// and replays the same finished CommandList object across many frames
// (Job.Reset only flips its state back to executable, it never re-records).
// CommandList reconciles the two models by recording DSL calls into a
// replayable trace instead of issuing wgpu calls eagerly; SubmitCommandList
// builds a fresh wgpu.CommandEncoder from that trace and submits it every
// time, so the same CommandList can be executed frame after frame the way
// the render-graph core expects.
package webgpubackend
