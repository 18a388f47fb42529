package notion

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"strings"

	"github.com/jomei/notionapi"

	"github.com/natikgadzhi/notion-push/internal/transform"
)

const (
	// DefaultListBatchSize is the page size used when listing children.
	DefaultListBatchSize = 50
	// MaxPageSize is the largest page size Notion accepts for listings.
	MaxPageSize = 100
	// MaxAppendChildren is the most blocks Notion accepts per append request.
	MaxAppendChildren = 100
)

// pageAPI is the subset of the notionapi page service used by the client.
type pageAPI interface {
	Get(ctx context.Context, id notionapi.PageID) (*notionapi.Page, error)
	Update(ctx context.Context, id notionapi.PageID, req *notionapi.PageUpdateRequest) (*notionapi.Page, error)
}

// blockAPI is the subset of the notionapi block service used by the client.
type blockAPI interface {
	GetChildren(ctx context.Context, id notionapi.BlockID, pagination *notionapi.Pagination) (*notionapi.GetChildrenResponse, error)
	AppendChildren(ctx context.Context, id notionapi.BlockID, req *notionapi.AppendBlockChildrenRequest) (*notionapi.AppendBlockChildrenResponse, error)
	Delete(ctx context.Context, id notionapi.BlockID) (notionapi.Block, error)
}

type userAPI interface {
	Me(ctx context.Context) (*notionapi.User, error)
}

// Client wraps the Notion API client with rate limiting and the page and
// block operations needed to push a document.
type Client struct {
	pages   pageAPI
	blocks  blockAPI
	users   userAPI
	limiter *RateLimiter
	logger  *slog.Logger

	listBatchSize int
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimiter replaces the default rate limiter.
func WithRateLimiter(l *RateLimiter) Option {
	return func(c *Client) {
		if l != nil {
			c.limiter = l
		}
	}
}

// WithListBatchSize sets the page size ClearChildren lists with.
func WithListBatchSize(n int) Option {
	return func(c *Client) {
		c.listBatchSize = clampBatchSize(n)
	}
}

// NewClient creates a new Notion client with rate limiting.
func NewClient(token string, logger *slog.Logger, opts ...Option) *Client {
	api := notionapi.NewClient(notionapi.Token(token))
	return newClient(api.Page, api.Block, api.User, logger, opts...)
}

func newClient(pages pageAPI, blocks blockAPI, users userAPI, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	c := &Client{
		pages:   pages,
		blocks:  blocks,
		users:   users,
		limiter: DefaultRateLimiter(),
		logger:  logger,

		listBatchSize: DefaultListBatchSize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetPage retrieves a page by ID with rate limiting.
func (c *Client) GetPage(ctx context.Context, id string) (*notionapi.Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	c.logger.Debug("fetching page", "id", id)
	page, err := c.pages.Get(ctx, notionapi.PageID(id))
	if err != nil {
		return nil, c.handleError(err)
	}
	c.markRequestSuccess()
	return page, nil
}

// GetCurrentUser retrieves the current user (bot) information.
// Useful for validating the token.
func (c *Client) GetCurrentUser(ctx context.Context) (*notionapi.User, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	c.logger.Debug("fetching current user")
	user, err := c.users.Me(ctx)
	if err != nil {
		return nil, c.handleError(err)
	}
	c.markRequestSuccess()
	return user, nil
}

// UpdateTitle sets the page title to a single text run, linked to link
// when link is non-empty.
func (c *Client) UpdateTitle(ctx context.Context, pageID, title, link string) error {
	text := &notionapi.Text{Content: title}
	if link != "" {
		text.Link = &notionapi.Link{Url: link}
	}

	props := notionapi.Properties{
		"title": &notionapi.TitleProperty{
			Type: notionapi.PropertyTypeTitle,
			Title: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: text, PlainText: title},
			},
		},
	}
	return c.updateProperty(ctx, pageID, "title", "title", props)
}

// UpdateURL sets a URL-typed property.
func (c *Client) UpdateURL(ctx context.Context, pageID, url, property string) error {
	props := notionapi.Properties{
		property: &notionapi.URLProperty{
			Type: notionapi.PropertyTypeURL,
			URL:  url,
		},
	}
	return c.updateProperty(ctx, pageID, "URL", property, props)
}

// UpdateStatus sets a status-typed property to the option named status.
func (c *Client) UpdateStatus(ctx context.Context, pageID, status, property string) error {
	props := notionapi.Properties{
		property: &notionapi.StatusProperty{
			Type:   notionapi.PropertyTypeStatus,
			Status: notionapi.Status{Name: status},
		},
	}
	return c.updateProperty(ctx, pageID, "status", property, props)
}

// UpdateVersion sets a rich-text property to the version string.
func (c *Client) UpdateVersion(ctx context.Context, pageID, version, property string) error {
	props := notionapi.Properties{
		property: &notionapi.RichTextProperty{
			Type: notionapi.PropertyTypeRichText,
			RichText: []notionapi.RichText{
				{Type: notionapi.ObjectTypeText, Text: &notionapi.Text{Content: version}, PlainText: version},
			},
		},
	}
	return c.updateProperty(ctx, pageID, "version", property, props)
}

// updateProperty sends a single-property page update. A page whose schema
// lacks the property is logged and treated as success.
func (c *Client) updateProperty(ctx context.Context, pageID, kind, property string, props notionapi.Properties) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	c.logger.Debug("updating page property", "page_id", pageID, "kind", kind, "property", property)
	_, err := c.pages.Update(ctx, notionapi.PageID(pageID), &notionapi.PageUpdateRequest{Properties: props})
	if err == nil {
		c.markRequestSuccess()
		return nil
	}

	err = c.handleError(err)
	if IsPropertyNotFound(err) {
		c.logger.Warn(fmt.Sprintf("page has no %s property, skipping", kind),
			"page_id", pageID,
			"property", property,
		)
		return nil
	}
	return fmt.Errorf("updating %s property %q: %w", kind, property, err)
}

// ListChildren returns a lazy sequence over every child of blockID in the
// order Notion returns them. Pages are fetched batchSize at a time; a
// non-positive batchSize uses DefaultListBatchSize. Each range over the
// sequence starts a fresh listing. Iteration stops after the first error.
func (c *Client) ListChildren(ctx context.Context, blockID string, batchSize int) iter.Seq2[notionapi.Block, error] {
	batchSize = clampBatchSize(batchSize)

	return func(yield func(notionapi.Block, error) bool) {
		var cursor notionapi.Cursor

		for {
			if err := c.limiter.Wait(ctx); err != nil {
				yield(nil, err)
				return
			}

			c.logger.Debug("listing block children", "block_id", blockID, "cursor", cursor, "page_size", batchSize)
			resp, err := c.blocks.GetChildren(ctx, notionapi.BlockID(blockID), &notionapi.Pagination{
				StartCursor: cursor,
				PageSize:    batchSize,
			})
			if err != nil {
				yield(nil, fmt.Errorf("listing children of %s: %w", blockID, c.handleError(err)))
				return
			}
			if resp == nil {
				yield(nil, fmt.Errorf("listing children of %s: %w", blockID, ErrMalformedResponse))
				return
			}
			c.markRequestSuccess()

			for _, block := range resp.Results {
				if !yield(block, nil) {
					return
				}
			}

			if !resp.HasMore {
				return
			}
			if resp.NextCursor == "" {
				yield(nil, fmt.Errorf("listing children of %s: has_more without next_cursor: %w", blockID, ErrMalformedResponse))
				return
			}
			cursor = notionapi.Cursor(resp.NextCursor)
		}
	}
}

func clampBatchSize(n int) int {
	if n <= 0 {
		return DefaultListBatchSize
	}
	return min(n, MaxPageSize)
}

// ClearChildren deletes every child block of blockID, one request per
// block. A failure part way through leaves the already deleted blocks gone.
func (c *Client) ClearChildren(ctx context.Context, blockID string) error {
	deleted := 0
	for block, err := range c.ListChildren(ctx, blockID, c.listBatchSize) {
		if err != nil {
			return err
		}
		if err := c.deleteBlock(ctx, block.GetID()); err != nil {
			return fmt.Errorf("clearing %s after %d deletions: %w", blockID, deleted, err)
		}
		deleted++
	}

	c.logger.Debug("cleared block children", "block_id", blockID, "deleted", deleted)
	return nil
}

func (c *Client) deleteBlock(ctx context.Context, id notionapi.BlockID) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	c.logger.Debug("deleting block", "block_id", id)
	if _, err := c.blocks.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting block %s: %w", id, c.handleError(err))
	}
	c.markRequestSuccess()
	return nil
}

// AppendMarkdown converts markdown to blocks and appends them under
// blockID after the preamble blocks.
func (c *Client) AppendMarkdown(ctx context.Context, blockID, markdown string, preamble ...notionapi.Block) error {
	body := transform.MarkdownToBlocks(markdown)

	blocks := make([]notionapi.Block, 0, len(preamble)+len(body))
	blocks = append(blocks, preamble...)
	blocks = append(blocks, body...)

	return c.AppendBlocks(ctx, blockID, blocks)
}

// AppendBlocks appends blocks under blockID in order, at most
// MaxAppendChildren per request.
func (c *Client) AppendBlocks(ctx context.Context, blockID string, blocks []notionapi.Block) error {
	offset := 0
	for chunk := range slices.Chunk(blocks, MaxAppendChildren) {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		c.logger.Debug("appending blocks", "block_id", blockID, "offset", offset, "count", len(chunk))
		_, err := c.blocks.AppendChildren(ctx, notionapi.BlockID(blockID), &notionapi.AppendBlockChildrenRequest{
			Children: chunk,
		})
		if err != nil {
			return fmt.Errorf("appending blocks %d-%d of %d: %w", offset, offset+len(chunk), len(blocks), c.handleError(err))
		}
		c.markRequestSuccess()
		offset += len(chunk)
	}
	return nil
}

// handleError classifies API errors and backs off on rate limiting.
func (c *Client) handleError(err error) error {
	err = classify(err)
	if IsRateLimited(err) {
		// notionapi does not expose response headers, so the default
		// duration is used and widened by the limiter on repeats.
		retryDuration := ParseRetryAfter("")
		c.limiter.SetRetryAfter(retryDuration)
		c.logger.Warn("rate limited by Notion API", "retry_after", retryDuration)
	}
	return err
}

func (c *Client) markRequestSuccess() {
	c.limiter.ResetThrottleState()
}

// ExtractPageTitle extracts the title from a page's properties.
func ExtractPageTitle(page *notionapi.Page) string {
	if page == nil || page.Properties == nil {
		return ""
	}

	for _, prop := range page.Properties {
		if titleProp, ok := prop.(*notionapi.TitleProperty); ok {
			return extractRichTextPlain(titleProp.Title)
		}
	}
	return ""
}

// HasProperty reports whether the page schema defines a property named name.
func HasProperty(page *notionapi.Page, name string) bool {
	if page == nil || page.Properties == nil {
		return false
	}
	_, ok := page.Properties[name]
	return ok
}

// PropertyType returns the type of the named property, or "" if absent.
func PropertyType(page *notionapi.Page, name string) notionapi.PropertyType {
	if !HasProperty(page, name) {
		return ""
	}
	return page.Properties[name].GetType()
}

func extractRichTextPlain(richText []notionapi.RichText) string {
	var b strings.Builder
	for _, rt := range richText {
		b.WriteString(rt.PlainText)
	}
	return b.String()
}
