// Package media handles artifact post-processing and storage: ffmpeg
// resize and still-image looping video encoding, and the archive/current
// dual-path naming scheme the add-on writes artifacts under.
//
// Post-processing failures are reported but deliberately cheap to ignore:
// a failed resize or encode downgrades the run's artifact set without
// touching the pipeline result.
package media
