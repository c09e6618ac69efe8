package constants

const (
	EnvVirtualEnv = "VIRTUAL_ENV"
	EnvPath       = "PATH"

	// VirtualEnvCommand builds a bare virtual environment, invoked as `virtualenv <path>`
	VirtualEnvCommand = "virtualenv"
	VirtualEnvBinDir  = "bin"

	ConfigEnvPrefix = "STRIKER"
	ConfigFileEnv   = "STRIKER_CONFIG_FILE"
	ForceColorsEnv  = "STRIKER_FORCE_COLORS"
)
