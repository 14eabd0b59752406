// Package audio discovers PulseAudio devices and negotiates the
// echo-cancellation path Juno's voice services depend on.
//
// Device discovery matches configured name patterns against the live
// source/sink inventory with word-boundary semantics, excluding monitor
// (loopback) devices from input resolution. Negotiation loads
// module-echo-cancel with the WebRTC backend, falls back to Speex, reads
// back the resulting virtual devices, and applies them as system defaults.
// All PulseAudio mutations are scoped to the echocancel.* names this
// package owns.
//
// The Server interface is the only seam to the audio server; the production
// implementation shells out to pactl, tests substitute in-memory fakes.
package audio
