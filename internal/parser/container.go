package parser

import (
	"fmt"
	"strings"

	"github.com/datalog-viewer/backend/internal/models"
)

// Container format written by the device firmware. Offsets are character
// positions within the block that starts at the signature.
const (
	ContainerSignature = "UBIT_LOG_FS_V_002"
	// ContainerDelimiter wraps the container when it is embedded in the
	// device's HTML viewer; the container is the third field when the page
	// is split on it.
	ContainerDelimiter = "<!--FS_START"

	logEndOffset         = 18
	dataStartOffset      = 29
	daplinkVersionOffset = 40
	offsetFieldWidth     = 10
	versionFieldWidth    = 4
	headerLength         = daplinkVersionOffset + versionFieldWidth

	// offsetBias is subtracted from the stored offsets, which count from the
	// start of the flash region rather than from the signature.
	offsetBias = 2048

	endOfDataMarker = '\uFFFD'
	fullMarker      = "FUL"
)

// ContainerParser decodes the device's log filesystem container.
type ContainerParser struct{}

func NewContainerParser() *ContainerParser {
	return &ContainerParser{}
}

func (p *ContainerParser) Name() string {
	return "container"
}

func (p *ContainerParser) CanParse(raw string) bool {
	_, ok := locateContainer(raw)
	return ok
}

// Parse decodes the container metadata and hands the payload to FromCSV.
func (p *ContainerParser) Parse(raw string) (*models.LogData, error) {
	block, ok := locateContainer(raw)
	if !ok {
		return nil, fmt.Errorf("%w: signature %q not found", ErrCorruptHeader, ContainerSignature)
	}

	chars := []rune(block)
	if len(chars) < headerLength {
		return nil, fmt.Errorf("%w: header is %d characters, need %d", ErrCorruptHeader, len(chars), headerLength)
	}

	logEnd, ok := parseFixedInt(string(chars[logEndOffset : logEndOffset+offsetFieldWidth]))
	if !ok {
		return nil, fmt.Errorf("%w: unreadable log end", ErrCorruptHeader)
	}
	dataStart, ok := parseFixedInt(string(chars[dataStartOffset : dataStartOffset+offsetFieldWidth]))
	if !ok {
		return nil, fmt.Errorf("%w: unreadable data start", ErrCorruptHeader)
	}
	version, ok := parseFixedInt(string(chars[daplinkVersionOffset : daplinkVersionOffset+versionFieldWidth]))
	if !ok {
		return nil, fmt.Errorf("%w: unreadable daplink version", ErrCorruptHeader)
	}

	logEnd -= offsetBias
	dataStart -= offsetBias
	if dataStart < 0 || dataStart > len(chars) {
		return nil, fmt.Errorf("%w: data start %d outside of %d characters", ErrCorruptHeader, dataStart, len(chars))
	}

	dataSize := 0
	for {
		pos := dataStart + dataSize
		if pos >= len(chars) {
			return nil, fmt.Errorf("%w after %d characters", ErrNoEndOfData, dataSize)
		}
		if chars[pos] == endOfDataMarker {
			break
		}
		dataSize++
	}

	isFull := false
	if logEnd >= 0 && logEnd+1+len(fullMarker) <= len(chars) {
		isFull = string(chars[logEnd+1:logEnd+1+len(fullMarker)]) == fullMarker
	}

	payload := string(chars[dataStart : dataStart+dataSize])

	return &models.LogData{
		Log:            FromCSV(payload, isFull),
		DataSize:       dataSize,
		BytesRemaining: logEnd - dataStart - dataSize,
		DaplinkVersion: version,
		Standalone:     false,
	}, nil
}

// locateContainer returns the text starting at the container signature, either
// at the very start of raw or as the third field of an HTML-wrapped file.
func locateContainer(raw string) (string, bool) {
	if strings.HasPrefix(raw, ContainerSignature) {
		return raw, true
	}

	fields := strings.SplitN(raw, ContainerDelimiter, 4)
	if len(fields) >= 3 && strings.HasPrefix(fields[2], ContainerSignature) {
		return fields[2], true
	}
	return "", false
}
