package deepgram

import "fmt"

type deepgramVoice string

const (
	VoiceAsteria deepgramVoice = "aura-2-asteria-en"
	VoiceThalia  deepgramVoice = "aura-2-thalia-en"
	VoiceHelena  deepgramVoice = "aura-2-helena-en"
	VoiceOrion   deepgramVoice = "aura-2-orion-en"
	VoiceArcas   deepgramVoice = "aura-2-arcas-en"
	VoiceZeus    deepgramVoice = "aura-2-zeus-en"

	defaultVoice = VoiceThalia
)

func GetAvailableVoices() []deepgramVoice {
	return []deepgramVoice{
		VoiceAsteria,
		VoiceThalia,
		VoiceHelena,
		VoiceOrion,
		VoiceArcas,
		VoiceZeus,
	}
}

// ParseVoice accepts a full voice model name ("aura-2-zeus-en") or its short
// name ("zeus").
func ParseVoice(name string) (deepgramVoice, error) {
	if name == "" {
		return defaultVoice, nil
	}
	for _, voice := range GetAvailableVoices() {
		if string(voice) == name || string(voice) == "aura-2-"+name+"-en" {
			return voice, nil
		}
	}
	return "", fmt.Errorf("unknown deepgram voice %q", name)
}
