package models

// LogData wraps a DataLog with the device metadata recovered while decoding.
type LogData struct {
	Log            *DataLog `json:"log" msgpack:"log"`
	Hash           int32    `json:"hash" msgpack:"hash"`                     // fingerprint of the raw input, for change detection
	DataSize       int      `json:"dataSize" msgpack:"dataSize"`             // characters occupied by the payload
	BytesRemaining int      `json:"bytesRemaining" msgpack:"bytesRemaining"` // free space left in the log region
	DaplinkVersion int      `json:"daplinkVersion" msgpack:"daplinkVersion"`
	Standalone     bool     `json:"standalone" msgpack:"standalone"` // true when no device metadata exists
}

// StandaloneLogData wraps a log decoded from user-supplied CSV.
func StandaloneLogData(log *DataLog) *LogData {
	if log == nil {
		log = EmptyLog()
	}
	return &LogData{Log: log, Standalone: true}
}
