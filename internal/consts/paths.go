package consts

import (
	"os"
	"path/filepath"
)

const (
	HomeDirName      = ".newscast"
	ConfigFileName   = "config.yaml"
	SettingsFileName = "settings.json"
	LogsDirName      = "logs"
)

func HomeDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, HomeDirName)
}

func DefaultConfigPath() string {
	return filepath.Join(HomeDir(), ConfigFileName)
}

func DefaultSettingsPath() string {
	return filepath.Join(HomeDir(), SettingsFileName)
}

func DefaultLogFile() string {
	return filepath.Join(HomeDir(), LogsDirName, "newscast.log")
}
