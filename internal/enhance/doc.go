// Package enhance upgrades low-resolution images with a deterministic
// filter pipeline: a two-pass Lanczos upscale, a 3x3 sharpening
// convolution, and a mild box-blur denoise. Sources already at or above
// the resolution threshold are simply fitted and re-encoded. Results
// are cached per source URL for the life of the process and shared
// across concurrent requests for the same URL.
package enhance
