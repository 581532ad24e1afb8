package publish

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/unkaku-1/BEwithU/internal/publish/bookstack"
	"github.com/unkaku-1/BEwithU/internal/storage/models"
	"github.com/unkaku-1/BEwithU/pkg/logger"
)

const maxTags = 5

// Gateway upserts knowledge items into the wiki. Deduplication is by
// exact, case-sensitive page title within the target chapter; the wiki is
// the system of record, nothing is tracked locally. Semantically
// duplicate titles produced by separate runs are a known limitation of
// this strategy and are not reconciled.
type Gateway struct {
	client      *bookstack.Client
	bookName    string
	chapterName string
}

// Result counts the outcome of one publish pass.
type Result struct {
	Created int
	Skipped int
	Failed  int
}

func NewGateway(client *bookstack.Client, bookName, chapterName string) *Gateway {
	return &Gateway{
		client:      client,
		bookName:    bookName,
		chapterName: chapterName,
	}
}

// Publish ensures the book and chapter exist, then creates one page per
// item whose title is not already present. A failed page create is logged
// and skipped; remaining items are still attempted. Book or chapter
// failures abort the pass, since nothing can be published without them.
func (g *Gateway) Publish(ctx context.Context, items []models.KnowledgeItem) (Result, error) {
	var result Result

	if len(items) == 0 {
		logger.Info("No knowledge items to publish")
		return result, nil
	}

	book, err := g.ensureBook(ctx)
	if err != nil {
		return result, err
	}

	chapter, err := g.ensureChapter(ctx, book.ID)
	if err != nil {
		return result, err
	}

	pages, err := g.client.ListPages(ctx, chapter.ID)
	if err != nil {
		return result, err
	}

	existing := make(map[string]struct{}, len(pages))
	for _, page := range pages {
		existing[page.Name] = struct{}{}
	}

	for _, item := range items {
		if _, ok := existing[item.Title]; ok {
			result.Skipped++
			logger.Debug("Page already exists, skipping",
				zap.String("title", item.Title),
			)
			continue
		}

		tags := make([]bookstack.Tag, 0, maxTags)
		for _, kw := range item.Keywords {
			if len(tags) == maxTags {
				break
			}
			tags = append(tags, bookstack.Tag{Name: kw})
		}

		if _, err := g.client.CreatePage(ctx, chapter.ID, item.Title, item.Content, tags); err != nil {
			result.Failed++
			logger.Warn("Failed to create page",
				zap.String("title", item.Title),
				zap.String("source", item.Source),
				zap.Error(err),
			)
			continue
		}

		existing[item.Title] = struct{}{}
		result.Created++
	}

	logger.Info("Knowledge items published",
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)

	return result, nil
}

func (g *Gateway) ensureBook(ctx context.Context) (*bookstack.Book, error) {
	books, err := g.client.ListBooks(ctx)
	if err != nil {
		return nil, err
	}

	for i := range books {
		if books[i].Name == g.bookName {
			return &books[i], nil
		}
	}

	book, err := g.client.CreateBook(ctx, g.bookName, "Generated by the automated knowledge extractor")
	if err != nil {
		return nil, fmt.Errorf("failed to ensure book: %w", err)
	}

	logger.Info("Book created", zap.String("name", g.bookName), zap.Int("id", book.ID))
	return book, nil
}

func (g *Gateway) ensureChapter(ctx context.Context, bookID int) (*bookstack.Chapter, error) {
	chapters, err := g.client.ListChapters(ctx, bookID)
	if err != nil {
		return nil, err
	}

	for i := range chapters {
		if chapters[i].Name == g.chapterName {
			return &chapters[i], nil
		}
	}

	chapter, err := g.client.CreateChapter(ctx, bookID, g.chapterName, "Knowledge items mined from conversations and tickets")
	if err != nil {
		return nil, fmt.Errorf("failed to ensure chapter: %w", err)
	}

	logger.Info("Chapter created", zap.String("name", g.chapterName), zap.Int("id", chapter.ID))
	return chapter, nil
}
