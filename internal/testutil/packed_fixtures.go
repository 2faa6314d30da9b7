package testutil

import (
	"fmt"
	"strings"
)

// packerBody is the decoder function emitted by the p,a,c,k,e,d packer.
const packerBody = `eval(function(p,a,c,k,e,d){e=function(c){return(c<a?'':e(parseInt(c/a)))+((c=c%a)>35?String.fromCharCode(c+29):c.toString(36))};while(c--){if(k[c]){p=p.replace(new RegExp('\\b'+e(c)+'\\b','g'),k[c])}}return p}`

// PackScript wraps an already tokenized payload and its keyword list in the packer's
// eval call, as found in hosting pages. With no keywords the payload is returned as is
// by the unpacker, which makes it easy to embed plain player configs.
func PackScript(payload string, radix int, keywords []string) string {
	escape := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return fmt.Sprintf("%s('%s',%d,%d,'%s'.split('|'),0,{}))",
		packerBody, escape.Replace(payload), radix, len(keywords), escape.Replace(strings.Join(keywords, "|")))
}

// PackedPage embeds a packed script in a minimal HTML page.
func PackedPage(script string) string {
	return "<html><head><title>player</title></head><body><div id=\"vplayer\"></div>\n<script type='text/javascript'>" +
		script + "</script>\n<script>var unrelated = 1;</script></body></html>"
}

// Base-36 sample with five keywords.
const (
	PackedSamplePayload  = `0 1=jwplayer("vplayer");1.4({2:"3://cdn.example.test/v.m3u8"});`
	PackedSampleExpected = `var player=jwplayer("vplayer");player.setup({file:"https://cdn.example.test/v.m3u8"});`
)

// PackedSampleKeywords are the keywords of the base-36 sample.
var PackedSampleKeywords = []string{"var", "player", "file", "https", "setup"}

// PackedSample returns the packed base-36 sample script.
func PackedSample() string {
	return PackScript(PackedSamplePayload, 36, PackedSampleKeywords)
}

// Order-sensitive sample: token "1" maps to the literal "10" and token "10" (index 36)
// maps to "width". Substituting from the lowest index up yields "size=width;w=width;".
const (
	PackedOrderPayload  = `size=1;w=10;`
	PackedOrderExpected = `size=10;w=width;`
)

// PackedOrderSample returns the order-sensitive packed script.
func PackedOrderSample() string {
	keywords := make([]string, 37)
	keywords[1] = "10"
	keywords[36] = "width"
	return PackScript(PackedOrderPayload, 36, keywords)
}
