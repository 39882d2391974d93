package model

// SettingDownloadPath is the settings key of the preferred download directory.
const SettingDownloadPath = "download_path"

// Setting is a persisted user preference.
type Setting struct {
	Key   string
	Value string
}
