package fanout

import (
	"fmt"
	"strings"

	"github.com/seismicdata/drf-fanout/internal/config"
)

// BuildInfoLine renders the one-line channel-description message sent to
// a subscriber immediately after it connects, before any data message
// (grounded on Ew2Ws.c's SendInfoLine: "SPS: %d NumChans: %d Names: %s
// BrdType: %d").
func BuildInfoLine(sps int, channels []config.ChannelSpec, boardType int) string {
	names := make([]string, len(channels))
	for i, c := range channels {
		names[i] = fmt.Sprintf("%s=%s:%s:%s:%d:%g", c.Station, c.Component, c.Network, c.Location, c.Bits, c.Gain)
	}
	return fmt.Sprintf("SPS: %d NumChans: %d Names: %s BrdType: %d", sps, len(channels), strings.Join(names, "|"), boardType)
}
