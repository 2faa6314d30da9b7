package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Belphemur/StreamScraper/internal/search"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second
	// Maximum message size allowed from the peer.
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// searchMessage is a query sent by the peer. A message that is not a JSON
// object is taken as the query text.
type searchMessage struct {
	Query    string `json:"q"`
	Language string `json:"lang"`
	Page     int    `json:"page"`
}

func parseSearchMessage(data []byte) search.Query {
	var msg searchMessage
	if trimmed := strings.TrimSpace(string(data)); strings.HasPrefix(trimmed, "{") && json.Unmarshal(data, &msg) == nil {
		return search.Query{Text: msg.Query, Language: msg.Language, Page: msg.Page}
	}
	return search.Query{Text: strings.TrimSpace(string(data))}
}

// searchStream upgrades to a websocket and sends every snapshot of a global
// search as one JSON message. The query in the URL, if any, starts the first
// search; every text message from the peer starts a new one, superseding the
// search in flight. The connection stays open until the peer closes it.
func (s *server) searchStream(w http.ResponseWriter, r *http.Request) {
	var initial *search.Query
	if r.URL.Query().Has("q") {
		q, err := s.searchQuery(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		initial = &q
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	searcher := search.NewSearcher(s.Search)
	defer searcher.Stop()

	queries := make(chan search.Query)
	conn.SetReadLimit(maxMessageSize)
	go func() {
		defer cancel()
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind != websocket.TextMessage {
				continue
			}
			q, err := s.withLanguage(ctx, parseSearchMessage(data))
			if err != nil {
				s.logger.Warn().Err(err).Msg("Failed to resolve the search language")
				continue
			}
			select {
			case queries <- q:
			case <-ctx.Done():
				return
			}
		}
	}()

	var (
		current   string
		snapshots <-chan search.Snapshot
		sent      int
	)
	if initial != nil {
		current, snapshots = searcher.Start(ctx, *initial)
	}
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug().Int("snapshots", sent).Msg("Search stream closed")
			return
		case q := <-queries:
			s.logger.Debug().Str("query", q.Text).Str("language", q.Language).Msg("Search superseded")
			current, snapshots = searcher.Start(ctx, q)
		case snapshot, ok := <-snapshots:
			if !ok {
				snapshots = nil
				continue
			}
			if snapshot.ID != current {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(snapshot); err != nil {
				s.logger.Debug().Err(err).Msg("Websocket write failed")
				return
			}
			sent++
		}
	}
}
