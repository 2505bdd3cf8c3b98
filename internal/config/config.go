package config

import "github.com/spf13/viper"

func SetDefaults() {
	viper.SetDefault("ai.base_url", "")
	viper.SetDefault("ai.text_model", "gpt-4o-mini")
	viper.SetDefault("ai.chat_model", "gpt-4o-mini")
	viper.SetDefault("ai.image_model", "dall-e-3")

	viper.SetDefault("tts.type", "auto") // Auto-select best synthesizer
	viper.SetDefault("tts.voice", "Zephyr")

	viper.SetDefault("speech.engine", "auto") // Local engine for call sessions

	viper.SetDefault("pipeline.audio_delay_ms", 1000)
	viper.SetDefault("playback.gap_ms", 300)

	viper.SetDefault("data.dir", "") // empty means ~/.hearttales

	viper.BindEnv("ai.api_key", "OPENAI_API_KEY")
}
