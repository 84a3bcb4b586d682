// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package gpu implements fray.Device on gogpu/wgpu.
//
// The backend owns a HAL device and queue, either standalone (Vulkan
// adapter enumeration) or shared with a host application through a
// gpucontext provider. Accumulation targets are RGBA32Float textures;
// every pass is a single-encoder submission waited to completion, and
// readbacks map a 256-byte row-aligned staging buffer.
//
// Scene programs are externally composed WGSL. The fragment source is
// validated through naga before module creation, so compile failures carry
// the compiler's diagnostics back to fray's program manager.
package gpu
