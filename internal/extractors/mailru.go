package extractors

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/Belphemur/StreamScraper/internal/apperrors"
	"github.com/Belphemur/StreamScraper/internal/client"
	"github.com/Belphemur/StreamScraper/internal/jsunpack"
	"github.com/Belphemur/StreamScraper/internal/models"
)

var mailRuEmbedRe = regexp.MustCompile(`embed/([0-9]+)`)

type mailRuMeta struct {
	Videos []struct {
		URL string `json:"url"`
		Key string `json:"key"`
	} `json:"videos"`
}

// MailRu resolves my.mail.ru embeds through the video metadata endpoint.
type MailRu struct {
	hostInfo
	client *client.Client
	now    func() time.Time
}

// NewMailRu creates the MailRu extractor.
func NewMailRu(c *client.Client) *MailRu {
	return &MailRu{
		hostInfo: hostInfo{name: "MailRu", mainURL: "https://my.mail.ru"},
		client:   c,
		now:      time.Now,
	}
}

// Extract implements Extractor.
func (m *MailRu) Extract(ctx context.Context, link string, opts Options) (*models.Video, error) {
	match := mailRuEmbedRe.FindStringSubmatch(link)
	if match == nil {
		return nil, apperrors.NewParseError(link, "video id")
	}
	base := origin(link)
	if base == "" {
		base = m.mainURL
	}
	metaURL := fmt.Sprintf("%s/+/video/meta/%s?xemail=&ajax_call=1&func_name=&mna=&mnb=&ext=1&_=%d",
		base, match[1], m.now().UnixMilli())

	var meta mailRuMeta
	if err := m.client.GetJSON(ctx, metaURL, client.Header("Referer", link), &meta); err != nil {
		return nil, err
	}
	for _, v := range meta.Videos {
		if v.URL != "" {
			return newVideo(jsunpack.NormalizeURL(v.URL), nil, nil), nil
		}
	}
	return nil, apperrors.NewParseError(metaURL, "video url")
}
