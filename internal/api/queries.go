package api

import (
	"context"
	"errors"
	"strings"

	"github.com/blacktop/squadpost/internal/squad"
)

const postFields = `id title image permalink createdAt`

const (
	addPostToSquadMutation = `mutation AddPostToSquad($id: ID!, $sourceId: ID!, $commentary: String) {
  sharePost(id: $id, sourceId: $sourceId, commentary: $commentary) { ` + postFields + ` }
}`

	submitExternalLinkMutation = `mutation SubmitExternalLink($sourceId: ID!, $url: String!, $title: String, $image: String, $commentary: String) {
  submitExternalLink(sourceId: $sourceId, url: $url, title: $title, image: $image, commentary: $commentary) { ` + postFields + ` }
}`

	sourceFeedQuery = `query SourceFeed($source: ID!, $first: Int) {
  sourceFeed(source: $source, first: $first) { edges { node { ` + postFields + ` } } }
}`

	readHistoryQuery = `query ReadHistory($first: Int) {
  readHistory(first: $first) { edges { node { post { ` + postFields + ` } } } }
}`

	linkPreviewQuery = `query CheckLinkPreview($url: String!) {
  checkLinkPreview(url: $url) { id title image url }
}`

	sourceQuery = `query Source($id: ID!) {
  source(id: $id) { id name handle image }
}`

	whoamiQuery = `query Whoami { whoami { id username } }`
)

var _ squad.API = (*Client)(nil)

// AddPostToSquad shares an existing post into a squad.
func (c *Client) AddPostToSquad(ctx context.Context, in squad.AddPostInput) (*squad.Post, error) {
	var out struct {
		SharePost *squad.Post `json:"sharePost"`
	}
	vars := map[string]any{
		"id":         in.PostID,
		"sourceId":   in.SquadID,
		"commentary": in.Commentary,
	}
	if err := c.do(ctx, "sharePost", addPostToSquadMutation, vars, &out); err != nil {
		return nil, err
	}
	if out.SharePost == nil {
		return nil, errors.New("sharePost: empty response")
	}
	return out.SharePost, nil
}

// SubmitExternalLink posts a link that is not on the platform yet.
func (c *Client) SubmitExternalLink(ctx context.Context, in squad.ExternalLinkInput) (*squad.Post, error) {
	var out struct {
		SubmitExternalLink *squad.Post `json:"submitExternalLink"`
	}
	vars := map[string]any{
		"sourceId":   in.SquadID,
		"url":        in.URL,
		"title":      in.Title,
		"commentary": in.Commentary,
	}
	if in.Image != "" {
		vars["image"] = in.Image
	}
	if err := c.do(ctx, "submitExternalLink", submitExternalLinkMutation, vars, &out); err != nil {
		return nil, err
	}
	if out.SubmitExternalLink == nil {
		return nil, errors.New("submitExternalLink: empty response")
	}
	return out.SubmitExternalLink, nil
}

// SourceFeed returns the newest posts of a squad.
func (c *Client) SourceFeed(ctx context.Context, squadID string, first int) ([]squad.Post, error) {
	var out struct {
		SourceFeed struct {
			Edges []struct {
				Node squad.Post `json:"node"`
			} `json:"edges"`
		} `json:"sourceFeed"`
	}
	vars := map[string]any{"source": squadID, "first": first}
	if err := c.do(ctx, "sourceFeed", sourceFeedQuery, vars, &out); err != nil {
		return nil, err
	}
	posts := make([]squad.Post, 0, len(out.SourceFeed.Edges))
	for _, edge := range out.SourceFeed.Edges {
		posts = append(posts, edge.Node)
	}
	return posts, nil
}

// ReadingHistory returns recently read posts, the candidates offered when
// the user has to pick an article.
func (c *Client) ReadingHistory(ctx context.Context, first int) ([]squad.Post, error) {
	var out struct {
		ReadHistory struct {
			Edges []struct {
				Node struct {
					Post *squad.Post `json:"post"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"readHistory"`
	}
	if err := c.do(ctx, "readHistory", readHistoryQuery, map[string]any{"first": first}, &out); err != nil {
		return nil, err
	}
	posts := make([]squad.Post, 0, len(out.ReadHistory.Edges))
	seen := make(map[string]struct{}, len(out.ReadHistory.Edges))
	for _, edge := range out.ReadHistory.Edges {
		p := edge.Node.Post
		if p == nil {
			continue
		}
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		posts = append(posts, *p)
	}
	return posts, nil
}

// LinkPreview resolves the title and image of a URL. If the link is already
// known to the platform the returned post is non-nil.
func (c *Client) LinkPreview(ctx context.Context, url string) (*squad.ExternalLink, *squad.Post, error) {
	var out struct {
		CheckLinkPreview *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
			Image string `json:"image"`
			URL   string `json:"url"`
		} `json:"checkLinkPreview"`
	}
	if err := c.do(ctx, "checkLinkPreview", linkPreviewQuery, map[string]any{"url": url}, &out); err != nil {
		return nil, nil, err
	}
	preview := out.CheckLinkPreview
	if preview == nil {
		return nil, nil, errors.New("checkLinkPreview: empty response")
	}
	link := &squad.ExternalLink{Title: preview.Title, Image: preview.Image, URL: url}
	if preview.URL != "" {
		link.URL = preview.URL
	}
	if preview.ID == "" {
		return link, nil, nil
	}
	return link, &squad.Post{ID: preview.ID, Title: preview.Title, Image: preview.Image, Permalink: link.URL}, nil
}

// Squad looks a squad up by id or handle.
func (c *Client) Squad(ctx context.Context, idOrHandle string) (*squad.Squad, error) {
	var out struct {
		Source *squad.Squad `json:"source"`
	}
	id := strings.TrimPrefix(strings.TrimSpace(idOrHandle), "@")
	if err := c.do(ctx, "source", sourceQuery, map[string]any{"id": id}, &out); err != nil {
		return nil, err
	}
	if out.Source == nil {
		return nil, squad.ValidationError{Field: "squad", Reason: "squad " + id + " not found"}
	}
	return out.Source, nil
}

// Whoami returns the authenticated user.
func (c *Client) Whoami(ctx context.Context) (*squad.User, error) {
	var out struct {
		Whoami *squad.User `json:"whoami"`
	}
	if err := c.do(ctx, "whoami", whoamiQuery, nil, &out); err != nil {
		return nil, err
	}
	if out.Whoami == nil || out.Whoami.ID == "" {
		return nil, errors.New("whoami: not authenticated")
	}
	return out.Whoami, nil
}
