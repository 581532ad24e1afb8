package bookstack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is a minimal BookStack REST client covering the book, chapter
// and page endpoints the publisher needs.
type Client struct {
	baseURL    string
	apiToken   string
	apiSecret  string
	httpClient *http.Client
}

type Book struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type Chapter struct {
	ID     int    `json:"id"`
	BookID int    `json:"book_id"`
	Name   string `json:"name"`
}

type Page struct {
	ID        int    `json:"id"`
	ChapterID int    `json:"chapter_id"`
	Name      string `json:"name"`
}

type Tag struct {
	Name string `json:"name"`
}

func NewClient(baseURL, apiToken, apiSecret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiToken:  apiToken,
		apiSecret: apiSecret,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) ListBooks(ctx context.Context) ([]Book, error) {
	var resp struct {
		Data []Book `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/books", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	return resp.Data, nil
}

func (c *Client) CreateBook(ctx context.Context, name, description string) (*Book, error) {
	body := map[string]string{
		"name":        name,
		"description": description,
	}
	var book Book
	if err := c.do(ctx, http.MethodPost, "/api/books", body, &book); err != nil {
		return nil, fmt.Errorf("failed to create book %q: %w", name, err)
	}
	return &book, nil
}

func (c *Client) ListChapters(ctx context.Context, bookID int) ([]Chapter, error) {
	var resp struct {
		Data []Chapter `json:"data"`
	}
	path := fmt.Sprintf("/api/books/%d/chapters", bookID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list chapters: %w", err)
	}
	return resp.Data, nil
}

func (c *Client) CreateChapter(ctx context.Context, bookID int, name, description string) (*Chapter, error) {
	body := map[string]interface{}{
		"name":        name,
		"description": description,
		"book_id":     bookID,
	}
	var chapter Chapter
	path := fmt.Sprintf("/api/books/%d/chapters", bookID)
	if err := c.do(ctx, http.MethodPost, path, body, &chapter); err != nil {
		return nil, fmt.Errorf("failed to create chapter %q: %w", name, err)
	}
	return &chapter, nil
}

func (c *Client) ListPages(ctx context.Context, chapterID int) ([]Page, error) {
	var resp struct {
		Data []Page `json:"data"`
	}
	path := fmt.Sprintf("/api/chapters/%d/pages", chapterID)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list pages: %w", err)
	}
	return resp.Data, nil
}

func (c *Client) CreatePage(ctx context.Context, chapterID int, name, markdown string, tags []Tag) (*Page, error) {
	body := map[string]interface{}{
		"name":       name,
		"markdown":   markdown,
		"tags":       tags,
		"chapter_id": chapterID,
	}
	var page Page
	path := fmt.Sprintf("/api/chapters/%d/pages", chapterID)
	if err := c.do(ctx, http.MethodPost, path, body, &page); err != nil {
		return nil, fmt.Errorf("failed to create page %q: %w", name, err)
	}
	return &page, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", fmt.Sprintf("Token %s:%s", c.apiToken, c.apiSecret))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s %s returned status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
