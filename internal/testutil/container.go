// container.go - Builds device log containers for tests
package testutil

import (
	"fmt"
	"strings"
)

// ContainerOptions controls the shape of a generated container.
type ContainerOptions struct {
	// Free is the number of unused characters between the payload and log end.
	Free int
	// Full writes the FUL marker just after log end.
	Full bool
	// Version is the daplink version field.
	Version int
	// Hex writes the offset fields as 0x-prefixed hex.
	Hex bool
	// Truncated cuts the block right after the payload, dropping the end marker.
	Truncated bool
	// Wrap embeds the block in an HTML page the way the device serves it.
	Wrap bool
}

// ContainerDataStart is the character position of the payload inside the block.
const ContainerDataStart = 64

// BuildContainer returns a container holding payload as its CSV data.
func BuildContainer(payload string, opts ContainerOptions) string {
	payloadLen := len([]rune(payload))
	logEnd := ContainerDataStart + payloadLen + opts.Free

	var b strings.Builder
	b.WriteString("UBIT_LOG_FS_V_002\n")
	b.WriteString(offsetField(logEnd+2048, opts.Hex))
	b.WriteString("\n")
	b.WriteString(offsetField(ContainerDataStart+2048, opts.Hex))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%04d", opts.Version))
	b.WriteString(strings.Repeat(" ", ContainerDataStart-44))
	b.WriteString(payload)

	if !opts.Truncated {
		// unused space up to and including log end
		b.WriteString(strings.Repeat("\uFFFD", opts.Free+1))
		if opts.Full {
			b.WriteString("FUL")
		} else {
			b.WriteString("\uFFFD\uFFFD\uFFFD")
		}
	}

	if !opts.Wrap {
		return b.String()
	}
	return "<html><head><title>MY_DATA</title></head><body>\n<!--FS_START-->\n<script>var x = 1;</script>\n<!--FS_START" +
		b.String() + "<!--FS_END-->\n</body></html>"
}

func offsetField(v int, hex bool) string {
	if hex {
		return fmt.Sprintf("0x%08X", v)
	}
	return fmt.Sprintf("%010d", v)
}
