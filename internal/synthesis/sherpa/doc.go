// Package sherpa implements the synthesis session on local sherpa-onnx
// VITS models, so runs need no network access to produce speech.
package sherpa
