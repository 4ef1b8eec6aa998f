package room

import "sync/atomic"

// palette holds the user colors handed out round-robin as sessions join.
var palette = []string{
	"#e76f51", "#2a9d8f", "#e9c46a", "#264653", "#f4a261",
	"#606c38", "#bc6c25", "#0077b6", "#d62828", "#6a4c93",
	"#1d3557", "#457b9d", "#a8dadc", "#e07a5f", "#3d405b",
	"#81b29a", "#f2cc8f", "#6d6875", "#b5838d", "#ffb703",
	"#fb8500", "#023047", "#219ebc", "#8ecae6", "#d4a373",
	"#ccd5ae", "#588157", "#a3b18a", "#7c3aed", "#dc2626",
}

var colorIndex atomic.Int64

// nextColor returns the next color in the palette, wrapping around.
func nextColor() string {
	n := colorIndex.Add(1) - 1
	return palette[int(n)%len(palette)]
}
