// Package tts turns text into speech through a local synthesis server,
// either as a one-shot batch request or as a streamed WebSocket session.
package tts

// FallbackVoices is used when the voice listing endpoint is unreachable.
var FallbackVoices = []string{
	"alba",
	"marius",
	"javert",
	"jean",
	"fantine",
	"cosette",
	"eponine",
	"azelma",
}

// DefaultVoice is the voice used when none is selected.
const DefaultVoice = "alba"
