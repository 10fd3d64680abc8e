package config

const (
	defaultDataDir     = "~/.local/share/skitflow"
	defaultAudioDir    = "~/.local/share/skitflow/audio"
	defaultImageDir    = "~/.local/share/skitflow/images"
	defaultDownloadDir = "~/.local/share/skitflow/downloads"
	defaultArchiveDir  = "~/.local/share/skitflow/archives"
	defaultOutputDir   = "~/.local/share/skitflow/output"
	defaultLogDir      = "~/.local/share/skitflow/logs"

	defaultRequestTimeout    = 10
	defaultPollWindowMinutes = 15
	defaultPollInterval      = 3

	defaultModelsDir    = "~/.local/share/skitflow/models"
	defaultVoice        = "en-amy"
	defaultLeadIn       = 10.0
	defaultFFmpegBinary = "ffmpeg"
	defaultFFprobe      = "ffprobe"

	defaultLogLevel  = "info"
	defaultLogFormat = "console"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:     defaultDataDir,
			AudioDir:    defaultAudioDir,
			ImageDir:    defaultImageDir,
			DownloadDir: defaultDownloadDir,
			ArchiveDir:  defaultArchiveDir,
			OutputDir:   defaultOutputDir,
			LogDir:      defaultLogDir,
		},
		Telegram: Telegram{
			RequestTimeout:    defaultRequestTimeout,
			PollWindowMinutes: defaultPollWindowMinutes,
			PollInterval:      defaultPollInterval,
		},
		Synthesis: Synthesis{
			ModelsDir:    defaultModelsDir,
			DefaultVoice: defaultVoice,
			Voices:       map[string]string{},
		},
		Render: Render{
			LeadInSeconds: defaultLeadIn,
			FFmpegBinary:  defaultFFmpegBinary,
			FFprobeBinary: defaultFFprobe,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
