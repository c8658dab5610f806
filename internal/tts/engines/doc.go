// Package engines contains the speech providers: Azure Cognitive Speech,
// OpenAI and an offline tone generator. Each implements tts.Synthesizer.
package engines
