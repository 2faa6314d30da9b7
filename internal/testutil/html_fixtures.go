package testutil

import (
	"encoding/json"
	"fmt"
	"html"
	"strings"
)

// ArticleOptions contains options for generating a FilmPalast grid article
type ArticleOptions struct {
	Slug    string
	Title   string
	Poster  string
	Quality string // "HD", "SD", ...
	Year    string
	Stars   int // number of star_on images, the rating being Stars/10
}

// FilmPalastListOptions contains options for generating a FilmPalast listing page
type FilmPalastListOptions struct {
	Slider   []ArticleOptions
	Articles []ArticleOptions
	Genres   []string // sidebar genre links, in page order
	Paging   bool
}

// GenerateFilmPalastListHTML generates a listing page with the header slider,
// the article grid, the sidebar genres and an optional pager.
func GenerateFilmPalastListHTML(opts FilmPalastListOptions) string {
	var sb strings.Builder
	sb.WriteString("<html><body>\n")

	if len(opts.Slider) > 0 {
		sb.WriteString(`<div class="headerslider"><ul id="sliderDla">` + "\n")
		for _, a := range opts.Slider {
			fmt.Fprintf(&sb, `<li><a class="moviSliderPlay" href="//filmpalast.to/stream/%s">Play</a>
	<a href="/stream/%s"><img src="%s"></a>
	<span class="title rb">%s</span>
	<div class="moviedescription">About %s</div>
	<span class="releasedate">Release <b>%s</b></span>
	<span class="views">Views <b>12</b> IMDB <b>1234/7.1</b></span>
</li>
`, a.Slug, a.Slug, a.Poster, html.EscapeString(a.Title), html.EscapeString(a.Title), a.Year)
		}
		sb.WriteString("</ul></div>\n")
	}

	sb.WriteString(`<div id="content">` + "\n")
	for _, a := range opts.Articles {
		fmt.Fprintf(&sb, `<article class="liste rb">
	<a href="//filmpalast.to/stream/%s"><img src="%s"></a>
	<h2 class="rb"><a href="//filmpalast.to/stream/%s">%s</a></h2>
	<div class="stars">`, a.Slug, a.Poster, a.Slug, html.EscapeString(a.Title))
		for range a.Stars {
			sb.WriteString(`<img src="/themes/downloadarchive/images/star_on.png">`)
		}
		fmt.Fprintf(&sb, `</div>
	<span class="quality">%s</span>
	<span class="year">%s</span>
</article>
`, a.Quality, a.Year)
	}
	if opts.Paging {
		sb.WriteString(`<div id="paging"><a class="pageing button-small rb" href="/page/2">2</a></div>` + "\n")
	}
	sb.WriteString("</div>\n")

	sb.WriteString(`<aside id="sidebar"><section id="genre"><ul>` + "\n")
	for _, g := range opts.Genres {
		fmt.Fprintf(&sb, `<li><a href="//filmpalast.to/search/genre/%s">%s</a></li>`+"\n", g, g)
	}
	sb.WriteString("</ul></section></aside>\n</body></html>")
	return sb.String()
}

// HostOptions contains options for one FilmPalast hoster block
type HostOptions struct {
	Name      string
	Link      string // href of the play link
	PlayerURL string // data-player-url, used when Link is empty
}

// FilmPalastStreamOptions contains options for generating a FilmPalast stream page
type FilmPalastStreamOptions struct {
	Title     string
	Poster    string
	Overview  string
	Rating    string
	Genres    []string
	Directors []string
	Cast      []string
	// Seasons holds the episode slugs of each season block
	Seasons [][]string
	Hosts   []HostOptions
}

// GenerateFilmPalastStreamHTML generates a movie or series stream page
func GenerateFilmPalastStreamHTML(opts FilmPalastStreamOptions) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<html><body>
<h2 class="bgDark">%s</h2>
<img class="cover2" src="%s">
<span itemprop="description">%s</span>
<div id="star-rate" data-rating="%s"></div>
<ul id="detail-content-list">
`, html.EscapeString(opts.Title), opts.Poster, html.EscapeString(opts.Overview), opts.Rating)

	writeLabel := func(label string, names []string) {
		if len(names) == 0 {
			return
		}
		fmt.Fprintf(&sb, "<li><p>%s:</p>", label)
		for _, n := range names {
			fmt.Fprintf(&sb, `<a href="/search/title/%s">%s</a> `, n, n)
		}
		sb.WriteString("</li>\n")
	}
	writeLabel("Kategorien, Genre", opts.Genres)
	writeLabel("Regie", opts.Directors)
	writeLabel("Schauspieler", opts.Cast)
	sb.WriteString("</ul>\n")

	if len(opts.Seasons) > 0 {
		sb.WriteString(`<div id="staffelWrapper">` + "\n")
		for i, episodes := range opts.Seasons {
			fmt.Fprintf(&sb, `<div class="staffelWrapperLoop" data-sid="%d"><ul class="staffelEpisodenList">`, i+1)
			for j, slug := range episodes {
				fmt.Fprintf(&sb, `<li><a class="getStaffelStream" href="//filmpalast.to/stream/%s">Episode %d<small>S%02dE%02d</small></a></li>`,
					slug, j+1, i+1, j+1)
			}
			sb.WriteString("</ul></div>\n")
		}
		sb.WriteString("</div>\n")
	}

	for _, h := range opts.Hosts {
		sb.WriteString(`<ul class="currentStreamLinks">`)
		fmt.Fprintf(&sb, `<li class="hostBg"><p class="hostName">%s</p></li>`, h.Name)
		if h.Link != "" {
			fmt.Fprintf(&sb, `<li><a class="button rb iconPlay" href="%s">Play</a></li>`, h.Link)
		} else {
			fmt.Fprintf(&sb, `<li><a class="button rb iconPlay" data-player-url="%s">Play</a></li>`, h.PlayerURL)
		}
		sb.WriteString("</ul>\n")
	}
	sb.WriteString("</body></html>")
	return sb.String()
}

// GridItemOptions contains options for generating an Altadefinizione01 grid card
type GridItemOptions struct {
	URL    string
	Title  string
	Poster string
	TvShow bool // adds the season counter
}

// SectionOptions contains options for one Altadefinizione01 home section
type SectionOptions struct {
	Name  string // empty generates a "Sub ITA" style section without a title
	Items []GridItemOptions
}

// LinkOptions is a named link
type LinkOptions struct {
	Name string
	URL  string
}

// AltadefinizionePageOptions contains options for generating an Altadefinizione01 home or listing page
type AltadefinizionePageOptions struct {
	Sliders []SectionOptions
	Latest  []SectionOptions
	Genres  []LinkOptions
	Results []GridItemOptions
	Paging  bool
}

func writeGridItem(sb *strings.Builder, item GridItemOptions) {
	sb.WriteString(`<div class="boxgrid caption">`)
	fmt.Fprintf(sb, `<a href="%s"><img data-src="%s" alt=""></a>`, item.URL, item.Poster)
	if item.TvShow {
		sb.WriteString(`<span class="se_num">1</span>`)
	}
	fmt.Fprintf(sb, `<div class="cover boxcaption"><h2><a href="%s">%s</a></h2></div></div>`+"\n", item.URL, html.EscapeString(item.Title))
}

// GenerateAltadefinizionePageHTML generates a DLE page with sliders, latest blocks,
// the category widget and the search/listing grid.
func GenerateAltadefinizionePageHTML(opts AltadefinizionePageOptions) string {
	var sb strings.Builder
	sb.WriteString("<html><body>\n")
	for _, s := range opts.Sliders {
		fmt.Fprintf(&sb, `<div class="slider"><div class="slider-strip"><b>%s</b></div>`+"\n", s.Name)
		for _, item := range s.Items {
			writeGridItem(&sb, item)
		}
		sb.WriteString("</div>\n")
	}
	for _, s := range opts.Latest {
		sb.WriteString(`<div class="son_eklenen">`)
		if s.Name != "" {
			fmt.Fprintf(&sb, `<div class="son_eklenen_head"><strong>%s</strong></div>`, s.Name)
		} else {
			sb.WriteString(`<div class="son_eklenen_head son_eklenen_head_tv"></div>`)
		}
		sb.WriteString(`<div id="son_eklenen_kapsul">` + "\n")
		for _, item := range s.Items {
			writeGridItem(&sb, item)
		}
		sb.WriteString("</div></div>\n")
	}
	if len(opts.Genres) > 0 {
		sb.WriteString(`<div class="widget"><div class="widget-title">Categorie in Altadefinizione</div><div id="wtab1"><ul class="kategori_list">` + "\n")
		for _, g := range opts.Genres {
			fmt.Fprintf(&sb, `<li><a href="%s">%s</a></li>`+"\n", g.URL, g.Name)
		}
		sb.WriteString("</ul></div></div>\n")
	}
	sb.WriteString(`<div id="dle-content">` + "\n")
	for _, item := range opts.Results {
		writeGridItem(&sb, item)
	}
	sb.WriteString("</div>\n")
	if opts.Paging {
		sb.WriteString(`<div class="page_nav"><a href="#">2</a></div>` + "\n")
	}
	sb.WriteString("</body></html>")
	return sb.String()
}

// MirrorOptions is one mirror of an Altadefinizione01 episode or movie embed
type MirrorOptions struct {
	Name   string
	Link   string
	FullHD bool
}

// EpisodeOptions is one episode row of an Altadefinizione01 season pane
type EpisodeOptions struct {
	Number  int
	Title   string
	Mirrors []MirrorOptions
}

// SeasonOptions is one Altadefinizione01 season tab
type SeasonOptions struct {
	Number   int
	Episodes []EpisodeOptions
}

// AltadefinizioneDetailOptions contains options for generating an Altadefinizione01 detail page
type AltadefinizioneDetailOptions struct {
	Title    string
	Poster   string
	Rating   string
	Overview string
	Trailer  string
	Genres   []LinkOptions
	Cast     []LinkOptions
	Seasons  []SeasonOptions
	EmbedURL string // mostraguarda iframe of movie pages
}

// GenerateAltadefinizioneDetailHTML generates a movie or TV show page
func GenerateAltadefinizioneDetailHTML(opts AltadefinizioneDetailOptions) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `<html><head><meta property="og:title" content="%s"></head><body>
<div class="fix"><img data-src="%s"></div>
<div class="imdb_r"><span itemprop="ratingValue">%s</span></div>
<div class="sbox"><div class="entry-content"><p>%s Fonte: wikipedia</p></div></div>
`, html.EscapeString(opts.Title), opts.Poster, opts.Rating, html.EscapeString(opts.Overview))
	if opts.Trailer != "" {
		fmt.Fprintf(&sb, `<div class="btn_trailer"><a href="%s">Trailer</a></div>`+"\n", opts.Trailer)
	}
	if len(opts.Genres) > 0 {
		sb.WriteString(`<p class="meta_dd"><b title="Genere"></b>`)
		for _, g := range opts.Genres {
			fmt.Fprintf(&sb, `<a href="%s">%s</a> `, g.URL, g.Name)
		}
		sb.WriteString("</p>\n")
	}
	if len(opts.Cast) > 0 {
		sb.WriteString(`<p class="meta_dd limpiar"><b class="icon-male"></b>`)
		for _, c := range opts.Cast {
			fmt.Fprintf(&sb, `<a href="%s">%s</a> `, c.URL, c.Name)
		}
		sb.WriteString("</p>\n")
	}
	if len(opts.Seasons) > 0 {
		sb.WriteString(`<div id="tt_holder"><div class="tt_season"><ul>`)
		for _, s := range opts.Seasons {
			fmt.Fprintf(&sb, `<li><a href="#season-%d" data-toggle="tab">%d</a></li>`, s.Number, s.Number)
		}
		sb.WriteString("</ul></div>\n")
		for _, s := range opts.Seasons {
			fmt.Fprintf(&sb, `<div class="tab-pane" id="season-%d"><ul>`+"\n", s.Number)
			for _, ep := range s.Episodes {
				link := ""
				if len(ep.Mirrors) > 0 {
					link = ep.Mirrors[0].Link
				}
				fmt.Fprintf(&sb, `<li><a href="#" allowfullscreen data-link="%s" data-num="%dx%d" data-title="Episodio %d: %s">%d</a><div class="mirrors">`,
					link, s.Number, ep.Number, ep.Number, html.EscapeString(ep.Title), ep.Number)
				for _, m := range ep.Mirrors {
					fmt.Fprintf(&sb, `<a class="mr" href="#" data-link="%s">%s</a>`, m.Link, m.Name)
				}
				sb.WriteString("</div></li>\n")
			}
			sb.WriteString("</ul></div>\n")
		}
		sb.WriteString("</div>\n")
	}
	if opts.EmbedURL != "" {
		fmt.Fprintf(&sb, `<iframe src="%s" allowfullscreen></iframe>`+"\n", opts.EmbedURL)
	}
	sb.WriteString("</body></html>")
	return sb.String()
}

// GenerateMostraguardaEmbedHTML generates the mirror list of a movie embed page
func GenerateMostraguardaEmbedHTML(mirrors []MirrorOptions) string {
	var sb strings.Builder
	sb.WriteString(`<html><body><ul class="_player-mirrors">` + "\n")
	for _, m := range mirrors {
		class := ""
		if m.FullHD {
			class = ` class="fullhd"`
		}
		fmt.Fprintf(&sb, `<li%s data-link="%s">%s</li>`+"\n", class, m.Link, m.Name)
	}
	sb.WriteString("</ul></body></html>")
	return sb.String()
}

// GenerateInertiaAppHTML generates a StreamingCommunity page whose #app element
// carries the inertia page object as HTML-escaped JSON.
func GenerateInertiaAppHTML(page any) string {
	data, err := json.Marshal(page)
	if err != nil {
		panic(err)
	}
	return `<html><body><div id="app" data-page="` + html.EscapeString(string(data)) + `"></div></body></html>`
}
