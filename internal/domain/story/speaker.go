package story

import "strings"

// ResolveSpeaker matches a free-text speaker name against the profile and
// the given characters, case-insensitively. "Me" and "I" count as the user.
// Unmatched names resolve to SpeakerOther with the default voice.
func ResolveSpeaker(name string, characters []Character, profile UserProfile) SpeakerRef {
	lower := strings.ToLower(strings.TrimSpace(name))

	if lower == "me" || lower == "i" || lower == strings.ToLower(profile.Name) {
		voice := profile.Voice
		if voice == "" {
			voice = DefaultVoice
		}
		return SpeakerRef{Kind: SpeakerUser, Voice: voice}
	}

	for _, c := range characters {
		if lower == strings.ToLower(c.Name) {
			voice := c.Voice
			if voice == "" {
				// Legacy characters without a voice fall back by gender.
				if c.Gender == GenderFemale {
					voice = "Kore"
				} else {
					voice = DefaultVoice
				}
			}
			return SpeakerRef{Kind: SpeakerCharacter, CharacterID: c.ID, Voice: voice}
		}
	}

	return SpeakerRef{Kind: SpeakerOther, Voice: DefaultVoice}
}

// DetermineVoice returns the synthesis voice for a speaker name.
func DetermineVoice(name string, characters []Character, profile UserProfile) string {
	return ResolveSpeaker(name, characters, profile).Voice
}
