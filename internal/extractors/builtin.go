package extractors

import "github.com/Belphemur/StreamScraper/internal/client"

// Builtin returns every built-in extractor sharing c.
func Builtin(c *client.Client) []Extractor {
	return []Extractor{
		NewMixDrop(c),
		NewSupervideo(c),
		NewDropload(c),
		NewVidHide(c),
		NewUqload(c),
		NewVixSrc(c),
		NewVixcloud(c),
		NewGoodstream(c),
		NewOneUpload(c),
		NewYourUpload(c),
		NewLamovie(c),
		NewMailRu(c),
		NewStreamtape(c),
		NewVoe(c),
		NewPlusPomla(c),
	}
}
