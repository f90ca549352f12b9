package lang

// Display is a language offered to the reader, with its name in that language
type Display struct {
	Tag   string
	Label string
}

// Offered lists the display languages in cycling order
var Offered = []Display{
	{Tag: "th", Label: "ไทย"},
	{Tag: "en", Label: "English"},
	{Tag: "zh", Label: "中文"},
	{Tag: "lo", Label: "ລາວ"},
	{Tag: "fil", Label: "Filipino"},
}

// Next returns the offered language after current, wrapping around.
// An unknown current starts the cycle over.
func Next(current string) string {
	c := Normalize(current)
	if c == "tl" {
		c = "fil"
	}
	for i, d := range Offered {
		if d.Tag == c {
			return Offered[(i+1)%len(Offered)].Tag
		}
	}
	return Offered[0].Tag
}

// Label returns the display name for tag, or the tag itself
func Label(tag string) string {
	c := Normalize(tag)
	for _, d := range Offered {
		if d.Tag == c || (c == "tl" && d.Tag == "fil") {
			return d.Label
		}
	}
	return tag
}
