package state

import "path/filepath"

type Paths struct {
	DB          string
	Store       string // pebble data
	Blobs       string // uploaded file bytes
	State       string
	Checkpoints string // pebble checkpoints and the job lease
	Tmp         string
	Logs        string
}

func PathsFor(dbPath string) Paths {
	statePath := filepath.Join(dbPath, "state")
	return Paths{
		DB: dbPath,

		Store: filepath.Join(dbPath, "store"),
		Blobs: filepath.Join(dbPath, "blobs"),

		State:       statePath,
		Checkpoints: filepath.Join(statePath, "checkpoints"),
		Tmp:         filepath.Join(statePath, "tmp"),
		Logs:        filepath.Join(statePath, "logs"),
	}
}

func StorePath(dbPath string) string      { return PathsFor(dbPath).Store }
func BlobsPath(dbPath string) string      { return PathsFor(dbPath).Blobs }
func CheckpointPath(dbPath string) string { return PathsFor(dbPath).Checkpoints }
func LogsPath(dbPath string) string       { return PathsFor(dbPath).Logs }
