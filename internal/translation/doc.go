// Package translation provides the inference pipeline used to translate
// English text to Yoruba. A Pipeline is an opaque collaborator: backends
// call a hosted NLLB model, OpenAI or Gemini. Every worker loads its own
// pipeline through a Factory, which reports model loading progress.
package translation
