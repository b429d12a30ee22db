package slackclient

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

type SearchMatch struct {
	Permalink string
	Text      string
	TS        string
}

// SearchPage is one page of search.messages. Pages is zero when the
// response had no usable paging block.
type SearchPage struct {
	Matches []SearchMatch
	Pages   int
}

// SearchMessages runs search.messages. It needs a user token.
func (c *Client) SearchMessages(ctx context.Context, query string, page, count int) (SearchPage, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("page", strconv.Itoa(page))
	params.Set("count", strconv.Itoa(count))

	var out struct {
		Messages *struct {
			Matches []struct {
				Permalink string `json:"permalink"`
				Text      string `json:"text"`
				TS        string `json:"ts"`
			} `json:"matches"`
			Paging json.RawMessage `json:"paging"`
		} `json:"messages"`
	}
	if _, _, err := c.Call(ctx, "search.messages", params, &out); err != nil {
		return SearchPage{}, err
	}
	var res SearchPage
	if out.Messages == nil {
		return res, nil
	}
	for _, m := range out.Messages.Matches {
		res.Matches = append(res.Matches, SearchMatch{Permalink: m.Permalink, Text: m.Text, TS: m.TS})
	}
	res.Pages = parsePages(out.Messages.Paging)
	return res, nil
}

func parsePages(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var paging struct {
		Pages *int `json:"pages"`
	}
	if err := json.Unmarshal(raw, &paging); err != nil || paging.Pages == nil || *paging.Pages < 0 {
		return 0
	}
	return *paging.Pages
}
